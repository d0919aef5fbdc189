package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKnownVector(t *testing.T) {
	frame, err := Encode([]byte{0x31, 0x17})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x31, 0x17, 0x4C}, frame)
}

func TestRoundTrip(t *testing.T) {
	for _, payload := range [][]byte{
		{0x00},
		{0x31, 0x17},
		make([]byte, MaxPayloadLen),
	} {
		frame, err := Encode(payload)
		require.NoError(t, err)

		decoded, err := Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, payload, decoded)
	}
}

func TestEncodeRejectsOversizePayload(t *testing.T) {
	_, err := Encode(make([]byte, MaxPayloadLen+1))
	assert.Error(t, err)
}

func TestDecodeDetectsLengthMismatch(t *testing.T) {
	frame, err := Encode([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	frame[0]++ // corrupt LEN
	_, err = Decode(frame)
	assert.True(t, errors.Is(err, ErrFrameCorrupt))
}

func TestDecodeDetectsCRCMismatch(t *testing.T) {
	frame, err := Encode([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	frame[len(frame)-1] ^= 0xFF // corrupt CRC
	_, err = Decode(frame)
	assert.True(t, errors.Is(err, ErrFrameCorrupt))
}

func TestSingleBitFlipAlwaysDetectedInLenOrCRC(t *testing.T) {
	frame, err := Encode([]byte{0xAA, 0x55, 0x01})
	require.NoError(t, err)

	for _, idx := range []int{0, len(frame) - 1} {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), frame...)
			corrupt[idx] ^= 1 << bit
			_, err := Decode(corrupt)
			assert.Error(t, err, "idx=%d bit=%d", idx, bit)
		}
	}
}
