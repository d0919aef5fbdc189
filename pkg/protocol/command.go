package protocol

import (
	"encoding/binary"
	"fmt"
)

// Command is the closed sum over every protocol command variant
// (spec.md §4.2). Opcode identifies which variant a frame carries;
// Encode produces the frame payload (before codec framing).
type Command interface {
	Opcode() Opcode
	Encode() ([]byte, error)
}

// MaxWritePayload is the largest number of data bytes a single
// WriteMemory/WriteFirTaps frame may carry, leaving room for the
// 4-byte address+length header within a 64-byte frame budget.
const MaxWritePayload = 58

// ReadMemory requests len bytes starting at address.
type ReadMemory struct {
	Address uint16
	Len     uint8
}

func (ReadMemory) Opcode() Opcode { return OpReadMemory }

func (c ReadMemory) Encode() ([]byte, error) {
	buf := make([]byte, 3)
	binary.LittleEndian.PutUint16(buf[0:2], c.Address)
	buf[2] = c.Len
	return buf, nil
}

// DecodeReadMemoryResponse extracts the returned bytes from a
// ReadMemory response payload.
func DecodeReadMemoryResponse(payload []byte) ([]byte, error) {
	return payload, nil
}

// WriteMemory writes bytes starting at address. Callers chunk payloads
// larger than MaxWritePayload into multiple WriteMemory commands
// (spec.md §4.2).
type WriteMemory struct {
	Address uint16
	Bytes   []byte
}

func (WriteMemory) Opcode() Opcode { return OpWriteMemory }

func (c WriteMemory) Encode() ([]byte, error) {
	if len(c.Bytes) > MaxWritePayload {
		return nil, fmt.Errorf("protocol: WriteMemory payload of %d bytes exceeds max %d", len(c.Bytes), MaxWritePayload)
	}
	buf := make([]byte, 2, 2+len(c.Bytes))
	binary.LittleEndian.PutUint16(buf[0:2], c.Address)
	return append(buf, c.Bytes...), nil
}

// ChunkWriteMemory splits data into a sequence of WriteMemory commands
// of at most MaxWritePayload bytes each, at consecutive addresses.
func ChunkWriteMemory(address uint16, data []byte) []WriteMemory {
	var cmds []WriteMemory
	for offset := 0; offset < len(data); offset += MaxWritePayload {
		end := offset + MaxWritePayload
		if end > len(data) {
			end = len(data)
		}
		cmds = append(cmds, WriteMemory{
			Address: address + uint16(offset),
			Bytes:   data[offset:end],
		})
	}
	return cmds
}

// ReadFloats performs a one-shot bulk read of count consecutive
// float32LE values starting at address, used for meter endpoints.
type ReadFloats struct {
	Address uint16
	Count   uint8
}

func (ReadFloats) Opcode() Opcode { return OpReadFloats }

func (c ReadFloats) Encode() ([]byte, error) {
	buf := make([]byte, 3)
	binary.LittleEndian.PutUint16(buf[0:2], c.Address)
	buf[2] = c.Count
	return buf, nil
}

// DecodeReadFloatsResponse decodes a ReadFloats response payload into
// its constituent float32 values.
func DecodeReadFloatsResponse(payload []byte) ([]float32, error) {
	if len(payload)%4 != 0 {
		return nil, fmt.Errorf("protocol: ReadFloats response length %d not a multiple of 4", len(payload))
	}
	out := make([]float32, len(payload)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(payload[i*4 : i*4+4])
		out[i] = float32FromBits(bits)
	}
	return out, nil
}

// WriteFloat writes a single float32LE value at address.
type WriteFloat struct {
	Address uint16
	Value   float32
}

func (WriteFloat) Opcode() Opcode { return OpWriteFloat }

func (c WriteFloat) Encode() ([]byte, error) {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf[0:2], c.Address)
	binary.LittleEndian.PutUint32(buf[2:6], float32Bits(c.Value))
	return buf, nil
}

// WriteBiquad maps to a 20-byte write of five float32LE coefficients at
// address (b0,b1,b2,a1,a2 order).
type WriteBiquad struct {
	Address uint16
	Coeffs  [5]float32
}

func (WriteBiquad) Opcode() Opcode { return OpWriteBiquad }

func (c WriteBiquad) Encode() ([]byte, error) {
	buf := make([]byte, 2, 22)
	binary.LittleEndian.PutUint16(buf[0:2], c.Address)
	for _, v := range c.Coeffs {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, float32Bits(v))
		buf = append(buf, b...)
	}
	return buf, nil
}

// WriteBiquadBypass toggles a biquad's bypass flag at address.
type WriteBiquadBypass struct {
	Address uint16
	Bypass  bool
}

func (WriteBiquadBypass) Opcode() Opcode { return OpWriteBiquadBypass }

func (c WriteBiquadBypass) Encode() ([]byte, error) {
	buf := make([]byte, 3)
	binary.LittleEndian.PutUint16(buf[0:2], c.Address)
	if c.Bypass {
		buf[2] = 0x03
	} else {
		buf[2] = 0x04
	}
	return buf, nil
}

// SetConfig selects preset and is fire-and-forget at the wire level:
// the device reboots its DSP and subsequent commands block until an
// ack frame arrives or the 3s SetConfig timeout expires (spec.md §4.2).
type SetConfig struct {
	Preset uint8
}

func (SetConfig) Opcode() Opcode { return OpSetConfig }

func (c SetConfig) Encode() ([]byte, error) {
	return []byte{c.Preset}, nil
}

// SetSource selects the active input source by product-specific code.
type SetSource struct {
	Code uint8
}

func (SetSource) Opcode() Opcode { return OpSetSource }

func (c SetSource) Encode() ([]byte, error) {
	return []byte{c.Code}, nil
}

// SetMute toggles master mute.
type SetMute struct {
	On bool
}

func (SetMute) Opcode() Opcode { return OpSetMute }

func (c SetMute) Encode() ([]byte, error) {
	if c.On {
		return []byte{0x01}, nil
	}
	return []byte{0x02}, nil
}

// SetVolume sets master volume in half-decibel units (0..0xFE
// representing 0..-127dB, spec.md §4.2).
type SetVolume struct {
	HalfDB uint8
}

func (SetVolume) Opcode() Opcode { return OpSetVolume }

func (c SetVolume) Encode() ([]byte, error) {
	return []byte{c.HalfDB}, nil
}

// SetDirac toggles Dirac Live processing.
type SetDirac struct {
	On bool
}

func (SetDirac) Opcode() Opcode { return OpSetDirac }

func (c SetDirac) Encode() ([]byte, error) {
	if c.On {
		return []byte{0x01}, nil
	}
	return []byte{0x02}, nil
}

// ReadHardwareId requests the device's hardware id, DSP version and
// serial number.
type ReadHardwareId struct{}

func (ReadHardwareId) Opcode() Opcode { return OpReadHardwareId }

func (ReadHardwareId) Encode() ([]byte, error) { return nil, nil }

// HardwareID is the decoded response to ReadHardwareId.
type HardwareID struct {
	HwID       uint8
	DspVersion uint8
	Serial     uint32
}

// DecodeReadHardwareIdResponse decodes a ReadHardwareId response
// payload: hw_id(1) + dsp_version(1) + serial(4 LE).
func DecodeReadHardwareIdResponse(payload []byte) (HardwareID, error) {
	if len(payload) < 6 {
		return HardwareID{}, fmt.Errorf("protocol: ReadHardwareId response too short: %d bytes", len(payload))
	}
	return HardwareID{
		HwID:       payload[0],
		DspVersion: payload[1],
		Serial:     binary.LittleEndian.Uint32(payload[2:6]),
	}, nil
}

// ReadMasterStatus requests the device's global preset/source/volume/
// mute/Dirac state.
type ReadMasterStatus struct{}

func (ReadMasterStatus) Opcode() Opcode { return OpReadMasterStatus }

func (ReadMasterStatus) Encode() ([]byte, error) { return nil, nil }

// MasterStatusWire is the decoded response to ReadMasterStatus, in
// on-wire units (half-dB volume, raw source/preset codes).
type MasterStatusWire struct {
	Preset  uint8
	Source  uint8
	HalfDB  uint8
	Mute    bool
	Dirac   bool
}

// DecodeReadMasterStatusResponse decodes a ReadMasterStatus response
// payload: preset(1) + source(1) + volume(1) + mute(1) + dirac(1).
func DecodeReadMasterStatusResponse(payload []byte) (MasterStatusWire, error) {
	if len(payload) < 5 {
		return MasterStatusWire{}, fmt.Errorf("protocol: ReadMasterStatus response too short: %d bytes", len(payload))
	}
	return MasterStatusWire{
		Preset: payload[0],
		Source: payload[1],
		HalfDB: payload[2],
		Mute:   payload[3] == 0x01,
		Dirac:  payload[4] == 0x01,
	}, nil
}

// WriteFirTaps writes a contiguous block of FIR taps starting at
// address. Callers chunk with ChunkWriteFirTaps.
type WriteFirTaps struct {
	Address uint16
	Taps    []float32
}

func (WriteFirTaps) Opcode() Opcode { return OpWriteFirTaps }

func (c WriteFirTaps) Encode() ([]byte, error) {
	buf := make([]byte, 2, 2+len(c.Taps)*4)
	binary.LittleEndian.PutUint16(buf[0:2], c.Address)
	for _, t := range c.Taps {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, float32Bits(t))
		buf = append(buf, b...)
	}
	return buf, nil
}

// tapsPerChunk is how many float32 taps fit in MaxWritePayload bytes.
const tapsPerChunk = MaxWritePayload / 4

// ChunkWriteFirTaps splits taps into a sequence of WriteFirTaps
// commands of at most tapsPerChunk taps each (14 floats = 56 bytes per
// frame, under the 58-byte payload budget).
func ChunkWriteFirTaps(address uint16, taps []float32) []WriteFirTaps {
	var cmds []WriteFirTaps
	for offset := 0; offset < len(taps); offset += tapsPerChunk {
		end := offset + tapsPerChunk
		if end > len(taps) {
			end = len(taps)
		}
		cmds = append(cmds, WriteFirTaps{
			Address: address + uint16(offset*4),
			Taps:    taps[offset:end],
		})
	}
	return cmds
}

// NoOp is used by the multiplexer as a liveness probe; it carries no
// payload and expects an echoed ack.
type NoOp struct{}

func (NoOp) Opcode() Opcode { return OpNoOp }

func (NoOp) Encode() ([]byte, error) { return nil, nil }
