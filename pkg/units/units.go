// Package units converts between user-facing logical values (decibels,
// milliseconds, hertz, booleans, enums) and the scalar on-wire formats
// the device firmware expects, grounded on the teacher's GetFrequency/
// SetFrequency/GetSyncWord-style conversion functions in
// pkg/registers/access.go, generalized into one encoder per wire format.
package units

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrEncodingRange is returned when a logical value falls outside an
// encoding's domain and the encoding is not declared saturating.
var ErrEncodingRange = errors.New("units: value out of range")

// Tag names an on-wire encoding, matching the EncodingTag variants of
// the device spec registry (spec.md §3).
type Tag string

const (
	TagFloat32LE     Tag = "Float32LE"
	TagInt16Gain     Tag = "Int16Gain"
	TagInt32Fixed    Tag = "Int32Fixed"
	TagBool          Tag = "Bool"
	TagEnumSource    Tag = "Enum(Source)"
	TagDuration      Tag = "Duration"
	TagBiquadCoeffs5 Tag = "BiquadCoeffs5"
	TagFirTapBlock   Tag = "FirTapBlock"
	TagUint8         Tag = "Uint8"
)

// Uint8 encodes a small unsigned integer (preset index, slot count) as a
// single raw byte with no scaling.
type Uint8 struct{}

func (Uint8) Encode(v uint8) ([]byte, error) {
	return []byte{v}, nil
}

func (Uint8) Decode(b []byte) (uint8, error) {
	if len(b) != 1 {
		return 0, fmt.Errorf("units: Uint8 needs 1 byte, got %d", len(b))
	}
	return b[0], nil
}

// Float32LE encodes/decodes a little-endian IEEE-754 float, used for
// generic parameters addressed directly as floats.
type Float32LE struct{}

func (Float32LE) Encode(v float64) ([]byte, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %v is not finite", ErrEncodingRange, v)
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	return buf, nil
}

func (Float32LE) Decode(b []byte) (float64, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("units: Float32LE needs 4 bytes, got %d", len(b))
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
}

// GainTable maps a quantized half-dB step index to its on-wire byte.
// Products differ in their exact lookup table; a linear half-dB table
// (0 == 0dB, 0xFE == -127dB) is the common case used by Int16Gain below
// and documented directly by spec.md §8 scenario 3.
type GainTable struct {
	// StepDB is the dB resolution of one wire increment (0.5 for
	// half-dB tables).
	StepDB float64
	// MinDB is the most negative representable gain.
	MinDB float64
}

// DefaultGainTable is the half-dB, -127..0dB table used by master volume
// and most per-channel gain parameters.
var DefaultGainTable = GainTable{StepDB: 0.5, MinDB: -127.0}

// Int16Gain quantizes a dB value into a single on-wire byte via tbl,
// saturating to tbl's domain (§4.4: "Out-of-range values clamp to the
// domain when a saturating encoding is declared").
type Int16Gain struct {
	Table GainTable
}

func NewInt16Gain(tbl GainTable) Int16Gain { return Int16Gain{Table: tbl} }

func (e Int16Gain) Encode(dB float64) ([]byte, error) {
	clamped := dB
	if clamped < e.Table.MinDB {
		clamped = e.Table.MinDB
	}
	if clamped > 0 {
		clamped = 0
	}
	steps := math.Round(-clamped / e.Table.StepDB)
	return []byte{byte(steps)}, nil
}

func (e Int16Gain) Decode(b []byte) (float64, error) {
	if len(b) != 1 {
		return 0, fmt.Errorf("units: Int16Gain needs 1 byte, got %d", len(b))
	}
	return -float64(b[0]) * e.Table.StepDB, nil
}

// Int32Fixed1_31 encodes a value in [-1.0, 1.0) as a Q1.31 big-endian
// fixed-point word, used by a small set of legacy parameters (§6).
type Int32Fixed1_31 struct{}

const q31Scale = float64(1 << 31)

func (Int32Fixed1_31) Encode(v float64) ([]byte, error) {
	if v < -1.0 || v >= 1.0 {
		return nil, fmt.Errorf("%w: %v outside [-1.0, 1.0)", ErrEncodingRange, v)
	}
	fixed := int32(math.Round(v * q31Scale))
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(fixed))
	return buf, nil
}

func (Int32Fixed1_31) Decode(b []byte) (float64, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("units: Int32Fixed needs 4 bytes, got %d", len(b))
	}
	fixed := int32(binary.BigEndian.Uint32(b))
	return float64(fixed) / q31Scale, nil
}

// BoolKind distinguishes the two on-wire byte pairs used for booleans:
// a plain set/clear pair and the bypass-specific pair (§4.4).
type BoolKind int

const (
	BoolSet BoolKind = iota
	BoolBypass
)

// Bool encodes a logical boolean as 0x01/0x02 (set) or 0x03/0x04
// (bypass), per §4.4.
type Bool struct {
	Kind BoolKind
}

func (e Bool) Encode(v bool) ([]byte, error) {
	switch e.Kind {
	case BoolSet:
		if v {
			return []byte{0x01}, nil
		}
		return []byte{0x02}, nil
	case BoolBypass:
		if v {
			return []byte{0x03}, nil
		}
		return []byte{0x04}, nil
	default:
		return nil, fmt.Errorf("units: unknown bool kind %d", e.Kind)
	}
}

func (e Bool) Decode(b []byte) (bool, error) {
	if len(b) != 1 {
		return false, fmt.Errorf("units: Bool needs 1 byte, got %d", len(b))
	}
	switch b[0] {
	case 0x01, 0x03:
		return true, nil
	case 0x02, 0x04:
		return false, nil
	default:
		return false, fmt.Errorf("%w: byte 0x%02X is not a valid bool encoding", ErrEncodingRange, b[0])
	}
}

// Source enumerates the input-source variants of spec.md §6.
type Source string

const (
	SourceNotInstalled Source = "NotInstalled"
	SourceAnalog       Source = "Analog"
	SourceToslink      Source = "Toslink"
	SourceSpdif        Source = "Spdif"
	SourceUsb          Source = "Usb"
	SourceAesEbu       Source = "AesEbu"
	SourceRca          Source = "Rca"
	SourceXlr          Source = "Xlr"
	SourceLan          Source = "Lan"
	SourceI2S          Source = "I2S"
	SourceBluetooth    Source = "Bluetooth"
)

// Enum encodes a Source through a product-specific code table, since
// §4.4 states the wire code is product-dependent.
type Enum struct {
	Codes map[Source]byte
}

func (e Enum) Encode(v Source) ([]byte, error) {
	code, ok := e.Codes[v]
	if !ok {
		return nil, fmt.Errorf("%w: source %q not valid for this product", ErrEncodingRange, v)
	}
	return []byte{code}, nil
}

func (e Enum) Decode(b []byte) (Source, error) {
	if len(b) != 1 {
		return "", fmt.Errorf("units: Enum needs 1 byte, got %d", len(b))
	}
	for src, code := range e.Codes {
		if code == b[0] {
			return src, nil
		}
	}
	return "", fmt.Errorf("%w: code 0x%02X not a valid source for this product", ErrEncodingRange, b[0])
}

// Duration converts milliseconds to/from a sample count at the device's
// sample rate, per §4.4.
type Duration struct {
	SampleRateHz float64
}

func (e Duration) Encode(ms float64) ([]byte, error) {
	if ms < 0 {
		return nil, fmt.Errorf("%w: duration %v ms is negative", ErrEncodingRange, ms)
	}
	samples := uint32(math.Round(ms / 1000.0 * e.SampleRateHz))
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, samples)
	return buf, nil
}

func (e Duration) Decode(b []byte) (float64, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("units: Duration needs 4 bytes, got %d", len(b))
	}
	samples := binary.LittleEndian.Uint32(b)
	return float64(samples) / e.SampleRateHz * 1000.0, nil
}

// Biquad holds the five IEEE-754 coefficients of one biquad section, in
// b0,b1,b2,a1,a2 order (spec.md §3/§4.4).
type Biquad struct {
	B0, B1, B2, A1, A2 float64
}

// Identity is the canonical "cleared" biquad: a pass-through filter.
var Identity = Biquad{B0: 1, B1: 0, B2: 0, A1: 0, A2: 0}

// BiquadCoeffs5 encodes a Biquad as 20 bytes of little-endian float32,
// b0,b1,b2,a1,a2 order.
type BiquadCoeffs5 struct{}

func (BiquadCoeffs5) Encode(b Biquad) ([]byte, error) {
	var f Float32LE
	out := make([]byte, 0, 20)
	for _, v := range []float64{b.B0, b.B1, b.B2, b.A1, b.A2} {
		enc, err := f.Encode(v)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

func (BiquadCoeffs5) Decode(b []byte) (Biquad, error) {
	if len(b) != 20 {
		return Biquad{}, fmt.Errorf("units: BiquadCoeffs5 needs 20 bytes, got %d", len(b))
	}
	var f Float32LE
	vals := make([]float64, 5)
	for i := range vals {
		v, err := f.Decode(b[i*4 : i*4+4])
		if err != nil {
			return Biquad{}, err
		}
		vals[i] = v
	}
	return Biquad{B0: vals[0], B1: vals[1], B2: vals[2], A1: vals[3], A2: vals[4]}, nil
}

// FirTapBlock encodes a slice of FIR taps as consecutive little-endian
// float32 values.
type FirTapBlock struct {
	// Capacity is the product's maximum tap count; Encode rejects
	// longer slices.
	Capacity int
}

func (e FirTapBlock) Encode(taps []float32) ([]byte, error) {
	if len(taps) > e.Capacity {
		return nil, fmt.Errorf("%w: %d taps exceeds capacity %d", ErrEncodingRange, len(taps), e.Capacity)
	}
	var f Float32LE
	out := make([]byte, 0, len(taps)*4)
	for _, t := range taps {
		enc, err := f.Encode(float64(t))
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

func (FirTapBlock) Decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("units: FirTapBlock needs a multiple of 4 bytes, got %d", len(b))
	}
	var f Float32LE
	taps := make([]float32, len(b)/4)
	for i := range taps {
		v, err := f.Decode(b[i*4 : i*4+4])
		if err != nil {
			return nil, err
		}
		taps[i] = float32(v)
	}
	return taps, nil
}
