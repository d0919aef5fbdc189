package mockdevice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidsp-audio/minidsp-go/pkg/codec"
	"github.com/minidsp-audio/minidsp-go/pkg/protocol"
	"github.com/minidsp-audio/minidsp-go/pkg/registry"
)

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	d, ok := registry.LookupByName("2x4HD")
	require.True(t, ok)
	dev := New(Options{Descriptor: d, Serial: 0xBEEF, DspVersion: 5, DisableLevelGenerator: true})
	t.Cleanup(func() { dev.Close() })
	return dev
}

func roundTrip(t *testing.T, dev *Device, ctx context.Context, cmd protocol.Command) protocol.Response {
	t.Helper()
	body, err := cmd.Encode()
	require.NoError(t, err)
	payload := append([]byte{byte(cmd.Opcode())}, body...)
	frame, err := codec.Encode(payload)
	require.NoError(t, err)

	require.NoError(t, dev.WriteFrame(ctx, frame))
	f, err := dev.ReadFrame(ctx)
	require.NoError(t, err)
	resp, err := protocol.DecodeFrame(f.Payload)
	require.NoError(t, err)
	return resp
}

func TestReadHardwareIdReturnsConfiguredIdentity(t *testing.T) {
	dev := newTestDevice(t)
	ctx := context.Background()

	resp := roundTrip(t, dev, ctx, protocol.ReadHardwareId{})
	hw, err := protocol.DecodeReadHardwareIdResponse(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint8(10), hw.HwID)
	assert.Equal(t, uint8(5), hw.DspVersion)
	assert.Equal(t, uint32(0xBEEF), hw.Serial)
}

func TestWriteFloatThenReadMemoryRoundTrips(t *testing.T) {
	dev := newTestDevice(t)
	ctx := context.Background()

	d, _ := registry.LookupByName("2x4HD")
	sym, err := d.Resolve("input.0.gain")
	require.NoError(t, err)

	ack := roundTrip(t, dev, ctx, protocol.WriteFloat{Address: sym.Address, Value: -6.0})
	assert.Equal(t, protocol.OpWriteFloat, ack.Opcode)

	resp := roundTrip(t, dev, ctx, protocol.ReadMemory{Address: sym.Address, Len: 4})
	bytes, err := protocol.DecodeReadMemoryResponse(resp.Payload)
	require.NoError(t, err)
	assert.Len(t, bytes, 4)
}

func TestSetConfigDelaysItsAck(t *testing.T) {
	dev := newTestDevice(t)
	dev.responseDelay = 50 * time.Millisecond
	ctx := context.Background()

	body, err := protocol.SetConfig{Preset: 2}.Encode()
	require.NoError(t, err)
	frame, err := codec.Encode(append([]byte{byte(protocol.OpSetConfig)}, body...))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, dev.WriteFrame(ctx, frame))
	f, err := dev.ReadFrame(ctx)
	require.NoError(t, err)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	resp, err := protocol.DecodeFrame(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, protocol.OpSetConfig, resp.Opcode)

	d, _ := registry.LookupByName("2x4HD")
	sym, err := d.Resolve("master.preset")
	require.NoError(t, err)
	dev.mu.Lock()
	got := dev.mem[sym.Address]
	dev.mu.Unlock()
	assert.Equal(t, byte(2), got)
}

func TestReadMasterStatusReflectsPriorWrites(t *testing.T) {
	dev := newTestDevice(t)
	ctx := context.Background()

	muteAck := roundTrip(t, dev, ctx, protocol.SetMute{On: true})
	assert.Equal(t, protocol.OpSetMute, muteAck.Opcode)

	resp := roundTrip(t, dev, ctx, protocol.ReadMasterStatus{})
	status, err := protocol.DecodeReadMasterStatusResponse(resp.Payload)
	require.NoError(t, err)
	assert.True(t, status.Mute)
}

func TestReadFloatsReturnsFactoryLevels(t *testing.T) {
	dev := newTestDevice(t)
	ctx := context.Background()

	d, _ := registry.LookupByName("2x4HD")
	resp := roundTrip(t, dev, ctx, protocol.ReadFloats{Address: d.InputMeterAddr, Count: uint8(d.Inputs)})
	levels, err := protocol.DecodeReadFloatsResponse(resp.Payload)
	require.NoError(t, err)
	require.Len(t, levels, d.Inputs)
	for _, v := range levels {
		assert.InDelta(t, -90.0, v, 0.01)
	}
}

func TestUnknownOpcodeNacks(t *testing.T) {
	dev := newTestDevice(t)
	ctx := context.Background()

	frame, err := codec.Encode([]byte{0x99})
	require.NoError(t, err)
	require.NoError(t, dev.WriteFrame(ctx, frame))
	f, err := dev.ReadFrame(ctx)
	require.NoError(t, err)
	resp, err := protocol.DecodeFrame(f.Payload)
	require.NoError(t, err)
	assert.ErrorIs(t, protocol.CheckNack(resp), protocol.ErrDeviceNack)
}

func TestCloseUnblocksReadFrame(t *testing.T) {
	dev := newTestDevice(t)
	errCh := make(chan error, 1)
	go func() {
		_, err := dev.ReadFrame(context.Background())
		errCh <- err
	}()
	require.NoError(t, dev.Close())
	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("ReadFrame did not unblock after Close")
	}
}
