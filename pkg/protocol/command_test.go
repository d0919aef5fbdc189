package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMemoryEncode(t *testing.T) {
	c := ReadMemory{Address: 0x00A0, Len: 16}
	b, err := c.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA0, 0x00, 0x10}, b)
}

func TestWriteMemoryRejectsOversizePayload(t *testing.T) {
	c := WriteMemory{Address: 0, Bytes: make([]byte, MaxWritePayload+1)}
	_, err := c.Encode()
	assert.Error(t, err)
}

func TestChunkWriteMemorySpansAddresses(t *testing.T) {
	data := make([]byte, MaxWritePayload*2+5)
	cmds := ChunkWriteMemory(0x1000, data)
	require.Len(t, cmds, 3)
	assert.Equal(t, uint16(0x1000), cmds[0].Address)
	assert.Equal(t, uint16(0x1000+MaxWritePayload), cmds[1].Address)
	assert.Equal(t, uint16(0x1000+2*MaxWritePayload), cmds[2].Address)
	assert.Len(t, cmds[2].Bytes, 5)
}

func TestReadFloatsResponseRoundTrip(t *testing.T) {
	values := []float32{1.5, -2.25, 0}
	payload := make([]byte, 0, 12)
	for _, v := range values {
		wc := WriteFloat{Value: v}
		enc, err := wc.Encode()
		require.NoError(t, err)
		payload = append(payload, enc[2:]...) // strip address, keep just the float bytes
	}
	got, err := DecodeReadFloatsResponse(payload)
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestReadHardwareIdRoundTrip(t *testing.T) {
	payload := []byte{10, 3, 0x78, 0x56, 0x34, 0x12}
	hw, err := DecodeReadHardwareIdResponse(payload)
	require.NoError(t, err)
	assert.Equal(t, HardwareID{HwID: 10, DspVersion: 3, Serial: 0x12345678}, hw)
}

func TestReadMasterStatusRoundTrip(t *testing.T) {
	payload := []byte{1, 2, 0x10, 0x00, 0x01}
	ms, err := DecodeReadMasterStatusResponse(payload)
	require.NoError(t, err)
	assert.Equal(t, MasterStatusWire{Preset: 1, Source: 2, HalfDB: 0x10, Mute: false, Dirac: true}, ms)
}

func TestChunkWriteFirTapsRespectsBudget(t *testing.T) {
	taps := make([]float32, 30)
	cmds := ChunkWriteFirTaps(0, taps)
	for _, c := range cmds {
		enc, err := c.Encode()
		require.NoError(t, err)
		assert.LessOrEqual(t, len(enc)-2, MaxWritePayload)
	}
}

func TestEncodeCommandFramePrependsOpcode(t *testing.T) {
	frame, err := EncodeCommandFrame(SetVolume{HalfDB: 0x10})
	require.NoError(t, err)
	assert.Equal(t, byte(OpSetVolume), frame[0])
	assert.Equal(t, []byte{0x10}, frame[1:])
}

func TestCheckNack(t *testing.T) {
	assert.NoError(t, CheckNack(Response{Opcode: OpAck}))
	assert.Error(t, CheckNack(Response{Opcode: OpNack}))
}
