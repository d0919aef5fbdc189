// Package mockdevice is the in-memory device of spec.md §4.9: it speaks
// the same codec as real hardware by implementing transport.Transport
// directly, so the exact same pkg/mux and pkg/session stack that drives
// a USB-HID or TCP device can be driven against it for end-to-end
// testing. Grounded on the pack's mutex-guarded fake register idiom
// (go-lpc-mim's fakeDev/fakeReg32 wrapping) combined with the teacher's
// own flat register-file model in pkg/registers/registers.go.
package mockdevice

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/minidsp-audio/minidsp-go/pkg/codec"
	"github.com/minidsp-audio/minidsp-go/pkg/protocol"
	"github.com/minidsp-audio/minidsp-go/pkg/registry"
	"github.com/minidsp-audio/minidsp-go/pkg/transport"
)

// DefaultResponseDelay is how long SetConfig's ack is held back by
// default, simulating the DSP program reload a real preset change
// triggers (spec.md §4.9).
const DefaultResponseDelay = 200 * time.Millisecond

// Options configures a Device.
type Options struct {
	Descriptor     *registry.Descriptor
	Serial         uint32
	DspVersion     uint8
	ResponseDelay  time.Duration
	// DisableLevelGenerator stops the synthetic level-meter ticker;
	// level readbacks then always return the descriptor's factory
	// default (-90.0) until a test writes the meter block directly.
	DisableLevelGenerator bool
}

// Device is an in-memory register file speaking the minidsp-family
// framed protocol. It is safe for concurrent use.
type Device struct {
	d             *registry.Descriptor
	serial        uint32
	dspVersion    uint8
	responseDelay time.Duration

	mu  sync.Mutex
	mem [65536]byte

	out    chan transport.Frame
	stopCh chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// New constructs a Device prepopulated with opts.Descriptor's factory
// defaults. Call Open before driving it through a Mux/Session.
func New(opts Options) *Device {
	if opts.ResponseDelay == 0 {
		opts.ResponseDelay = DefaultResponseDelay
	}
	dev := &Device{
		d:             opts.Descriptor,
		serial:        opts.Serial,
		dspVersion:    opts.DspVersion,
		responseDelay: opts.ResponseDelay,
		out:           make(chan transport.Frame, 16),
		stopCh:        make(chan struct{}),
	}
	if dev.dspVersion == 0 {
		dev.dspVersion = opts.Descriptor.Firmware.Min
	}
	populateFactoryDefaults(dev.d, &dev.mem)

	if !opts.DisableLevelGenerator {
		dev.wg.Add(1)
		go dev.runLevelGenerator()
	}
	return dev
}

func (dev *Device) Open(ctx context.Context) error { return nil }

// WriteFrame decodes frame (LEN|PAYLOAD|CRC8) and applies the command
// it carries to the register file, queuing the appropriate response (or
// none, for SetConfig's delayed ack) onto the read side.
func (dev *Device) WriteFrame(ctx context.Context, frame []byte) error {
	payload, err := codec.Decode(frame)
	if err != nil {
		return fmt.Errorf("mockdevice: decode frame: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("mockdevice: empty command payload")
	}

	opcode := protocol.Opcode(payload[0])
	body := payload[1:]

	select {
	case <-dev.stopCh:
		return transport.ErrClosed
	default:
	}

	resp, delay := dev.apply(opcode, body)
	if delay > 0 {
		dev.wg.Add(1)
		go func() {
			defer dev.wg.Done()
			select {
			case <-time.After(delay):
			case <-dev.stopCh:
				return
			}
			dev.send(resp)
		}()
		return nil
	}

	dev.send(resp)
	return nil
}

func (dev *Device) send(resp protocol.Response) {
	frame := transport.Frame{Payload: append([]byte{byte(resp.Opcode)}, resp.Payload...)}
	select {
	case dev.out <- frame:
	case <-dev.stopCh:
	}
}

// ReadFrame blocks until a response is queued by WriteFrame (or the
// periodic level generator, which mutates registers in place rather
// than pushing unsolicited frames, since get_status reads them
// on-demand per spec.md §4.7).
func (dev *Device) ReadFrame(ctx context.Context) (transport.Frame, error) {
	select {
	case f := <-dev.out:
		return f, nil
	case <-dev.stopCh:
		return transport.Frame{}, transport.ErrClosed
	case <-ctx.Done():
		return transport.Frame{}, ctx.Err()
	}
}

func (dev *Device) Close() error {
	dev.closeOnce.Do(func() {
		close(dev.stopCh)
	})
	dev.wg.Wait()
	return nil
}

// apply executes one decoded command against the register file and
// returns the response to send plus how long to delay sending it
// (zero for every command but SetConfig).
func (dev *Device) apply(opcode protocol.Opcode, body []byte) (protocol.Response, time.Duration) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	switch opcode {
	case protocol.OpReadMemory:
		if len(body) < 3 {
			return nackResp(opcode), 0
		}
		addr := binary.LittleEndian.Uint16(body[0:2])
		n := int(body[2])
		return protocol.Response{Opcode: opcode, Payload: dev.readLocked(addr, n)}, 0

	case protocol.OpWriteMemory:
		if len(body) < 2 {
			return nackResp(opcode), 0
		}
		addr := binary.LittleEndian.Uint16(body[0:2])
		dev.writeLocked(addr, body[2:])
		return ackResp(opcode), 0

	case protocol.OpReadFloats:
		if len(body) < 3 {
			return nackResp(opcode), 0
		}
		addr := binary.LittleEndian.Uint16(body[0:2])
		count := int(body[2])
		return protocol.Response{Opcode: opcode, Payload: dev.readLocked(addr, count*4)}, 0

	case protocol.OpWriteFloat:
		if len(body) < 6 {
			return nackResp(opcode), 0
		}
		addr := binary.LittleEndian.Uint16(body[0:2])
		dev.writeLocked(addr, body[2:6])
		return ackResp(opcode), 0

	case protocol.OpWriteBiquad:
		if len(body) < 22 {
			return nackResp(opcode), 0
		}
		addr := binary.LittleEndian.Uint16(body[0:2])
		dev.writeLocked(addr, body[2:22])
		return ackResp(opcode), 0

	case protocol.OpWriteBiquadBypass:
		if len(body) < 3 {
			return nackResp(opcode), 0
		}
		addr := binary.LittleEndian.Uint16(body[0:2])
		dev.writeLocked(addr, body[2:3])
		return ackResp(opcode), 0

	case protocol.OpWriteFirTaps:
		if len(body) < 2 {
			return nackResp(opcode), 0
		}
		addr := binary.LittleEndian.Uint16(body[0:2])
		dev.writeLocked(addr, body[2:])
		return ackResp(opcode), 0

	case protocol.OpSetConfig:
		if len(body) < 1 {
			return nackResp(opcode), 0
		}
		if sym, err := dev.d.Resolve("master.preset"); err == nil {
			dev.writeLocked(sym.Address, body[:1])
		}
		return ackResp(opcode), dev.responseDelay

	case protocol.OpSetSource:
		if len(body) < 1 {
			return nackResp(opcode), 0
		}
		if sym, err := dev.d.Resolve("master.source"); err == nil {
			dev.writeLocked(sym.Address, body[:1])
		}
		return ackResp(opcode), 0

	case protocol.OpSetMute:
		if len(body) < 1 {
			return nackResp(opcode), 0
		}
		if sym, err := dev.d.Resolve("master.mute"); err == nil {
			dev.writeLocked(sym.Address, body[:1])
		}
		return ackResp(opcode), 0

	case protocol.OpSetVolume:
		if len(body) < 1 {
			return nackResp(opcode), 0
		}
		if sym, err := dev.d.Resolve("master.volume"); err == nil {
			dev.writeLocked(sym.Address, body[:1])
		}
		return ackResp(opcode), 0

	case protocol.OpSetDirac:
		if len(body) < 1 {
			return nackResp(opcode), 0
		}
		if sym, err := dev.d.Resolve("master.dirac"); err == nil {
			dev.writeLocked(sym.Address, body[:1])
		}
		return ackResp(opcode), 0

	case protocol.OpReadHardwareId:
		payload := make([]byte, 6)
		payload[0] = dev.d.HwID
		payload[1] = dev.dspVersion
		binary.LittleEndian.PutUint32(payload[2:6], dev.serial)
		return protocol.Response{Opcode: opcode, Payload: payload}, 0

	case protocol.OpReadMasterStatus:
		payload := make([]byte, 5)
		for i, name := range []string{"master.preset", "master.source", "master.volume", "master.mute", "master.dirac"} {
			if sym, err := dev.d.Resolve(name); err == nil {
				payload[i] = dev.mem[sym.Address]
			}
		}
		return protocol.Response{Opcode: opcode, Payload: payload}, 0

	case protocol.OpNoOp:
		return ackResp(opcode), 0

	default:
		return nackResp(opcode), 0
	}
}

func ackResp(opcode protocol.Opcode) protocol.Response {
	return protocol.Response{Opcode: opcode}
}

func nackResp(opcode protocol.Opcode) protocol.Response {
	return protocol.Response{Opcode: protocol.OpNack, Payload: []byte{byte(opcode)}}
}

func (dev *Device) readLocked(addr uint16, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = dev.mem[(int(addr)+i)&0xFFFF]
	}
	return out
}

func (dev *Device) writeLocked(addr uint16, data []byte) {
	for i, b := range data {
		dev.mem[(int(addr)+i)&0xFFFF] = b
	}
}

// runLevelGenerator periodically writes synthetic sine-derived level
// readings into the input/output meter blocks so a subsequent
// get_status sees live-looking data (spec.md §4.9).
func (dev *Device) runLevelGenerator() {
	defer dev.wg.Done()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var phase float64
	for {
		select {
		case <-ticker.C:
			phase += 0.3
			dev.mu.Lock()
			writeLevels(dev.mem[:], dev.d.InputMeterAddr, dev.d.Inputs, phase)
			writeLevels(dev.mem[:], dev.d.OutputMeterAddr, dev.d.Outputs, phase+1.0)
			dev.mu.Unlock()
		case <-dev.stopCh:
			return
		}
	}
}

func writeLevels(mem []byte, base uint16, count int, phase float64) {
	for i := 0; i < count; i++ {
		v := float32(-20.0 + 10.0*math.Sin(phase+float64(i)*0.5))
		addr := int(base) + i*4
		binary.LittleEndian.PutUint32(mem[addr:addr+4], math.Float32bits(v))
	}
}
