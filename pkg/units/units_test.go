package units

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt16GainKnownVectors(t *testing.T) {
	enc := NewInt16Gain(DefaultGainTable)

	cases := []struct {
		dB   float64
		want byte
	}{
		{-8.0, 0x10},
		{0.0, 0x00},
		{-127.0, 0xFE},
	}
	for _, c := range cases {
		got, err := enc.Encode(c.dB)
		require.NoError(t, err)
		assert.Equal(t, []byte{c.want}, got, "dB=%v", c.dB)
	}
}

func TestInt16GainSaturates(t *testing.T) {
	enc := NewInt16Gain(DefaultGainTable)

	deep, err := enc.Encode(-200.0)
	require.NoError(t, err)
	floor, err := enc.Encode(-127.0)
	require.NoError(t, err)
	assert.Equal(t, floor, deep)

	above, err := enc.Encode(5.0)
	require.NoError(t, err)
	zero, err := enc.Encode(0.0)
	require.NoError(t, err)
	assert.Equal(t, zero, above)
}

func TestFloat32LERoundTrip(t *testing.T) {
	var f Float32LE
	b, err := f.Encode(-3.25)
	require.NoError(t, err)
	require.Len(t, b, 4)

	v, err := f.Decode(b)
	require.NoError(t, err)
	assert.InDelta(t, -3.25, v, 1e-6)
}

func TestFloat32LERejectsNonFinite(t *testing.T) {
	var f Float32LE
	_, err := f.Encode(1.0 / zero())
	assert.True(t, errors.Is(err, ErrEncodingRange))
}

func zero() float64 { return 0 }

func TestInt32FixedRoundTripAndRange(t *testing.T) {
	var q Int32Fixed1_31
	b, err := q.Encode(0.5)
	require.NoError(t, err)
	v, err := q.Decode(b)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-8)

	_, err = q.Encode(1.0)
	assert.True(t, errors.Is(err, ErrEncodingRange))
	_, err = q.Encode(-1.5)
	assert.True(t, errors.Is(err, ErrEncodingRange))
}

func TestBoolEncodings(t *testing.T) {
	set := Bool{Kind: BoolSet}
	b, _ := set.Encode(true)
	assert.Equal(t, []byte{0x01}, b)
	b, _ = set.Encode(false)
	assert.Equal(t, []byte{0x02}, b)

	bypass := Bool{Kind: BoolBypass}
	b, _ = bypass.Encode(true)
	assert.Equal(t, []byte{0x03}, b)
	b, _ = bypass.Encode(false)
	assert.Equal(t, []byte{0x04}, b)

	v, err := set.Decode([]byte{0x03})
	require.NoError(t, err)
	assert.True(t, v)
}

func TestEnumRoundTrip(t *testing.T) {
	e := Enum{Codes: map[Source]byte{
		SourceAnalog:  0x00,
		SourceToslink: 0x01,
		SourceUsb:     0x02,
	}}

	b, err := e.Encode(SourceToslink)
	require.NoError(t, err)
	src, err := e.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, SourceToslink, src)

	_, err = e.Encode(SourceBluetooth)
	assert.True(t, errors.Is(err, ErrEncodingRange))
}

func TestDurationRoundTrip(t *testing.T) {
	d := Duration{SampleRateHz: 48000}
	b, err := d.Encode(10.0)
	require.NoError(t, err)
	ms, err := d.Decode(b)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, ms, 0.05)
}

func TestBiquadCoeffs5RoundTrip(t *testing.T) {
	var c BiquadCoeffs5
	b, err := c.Encode(Identity)
	require.NoError(t, err)
	require.Len(t, b, 20)

	got, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, Identity, got)
}

func TestFirTapBlockCapacity(t *testing.T) {
	block := FirTapBlock{Capacity: 4}
	_, err := block.Encode([]float32{1, 2, 3, 4, 5})
	assert.True(t, errors.Is(err, ErrEncodingRange))

	b, err := block.Encode([]float32{1, 0, 0, 0})
	require.NoError(t, err)
	taps, err := block.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0}, taps)
}
