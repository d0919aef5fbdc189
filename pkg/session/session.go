// Package session is the high-level object model of spec.md §4.7: it
// composes pkg/mux and pkg/registry into the operations a controller
// actually wants (set a PEQ biquad, change source, apply a config
// delta atomically) instead of raw opcodes and addresses. Grounded on
// pkg/config/config.go's dump/apply-with-state-restore pattern,
// generalized from one fixed register struct to the full input/output/
// master object model a minidsp-family descriptor declares.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/minidsp-audio/minidsp-go/pkg/mux"
	"github.com/minidsp-audio/minidsp-go/pkg/protocol"
	"github.com/minidsp-audio/minidsp-go/pkg/registry"
	"github.com/minidsp-audio/minidsp-go/pkg/transport"
	"github.com/minidsp-audio/minidsp-go/pkg/units"
)

// State is the session's lifecycle state (spec.md §4.7).
type State int

const (
	StateClosed State = iota
	StateProbing
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateProbing:
		return "Probing"
	case StateOpen:
		return "Open"
	default:
		return "Unknown"
	}
}

var (
	// ErrNotOpen is returned by any operation attempted outside StateOpen.
	ErrNotOpen = errors.New("session: not open")
	// ErrAlreadyOpen is returned by Open on a session that is already
	// probing or open.
	ErrAlreadyOpen = errors.New("session: already open")
)

// Options configures Open.
type Options struct {
	// ForceKind, if non-empty, names a registry product to use unchecked,
	// skipping ReadHardwareId/firmware-range validation (spec.md §4.7/§4.8).
	ForceKind string
	// QueueDepth overrides the multiplexer's default request queue depth.
	QueueDepth int
}

// Session is the stateful façade over one device connection.
type Session struct {
	mu    sync.RWMutex
	state State

	t  transport.Transport
	mx *mux.Mux
	d  *registry.Descriptor
	hw protocol.HardwareID

	// applyMu serializes apply_config, the master-field convenience
	// setters and GetStatus against each other at the session level, per spec.md
	// §4.7 "Concurrency inside apply_config".
	applyMu sync.Mutex

	events    *broadcaster
	stopPump  chan struct{}
	closeOnce sync.Once
}

// Open probes t (or trusts opts.ForceKind), transitioning
// Closed -> Probing -> Open.
func Open(ctx context.Context, t transport.Transport, opts Options) (*Session, error) {
	s := &Session{t: t, state: StateClosed, events: newBroadcaster(), stopPump: make(chan struct{})}

	s.mu.Lock()
	s.state = StateProbing
	s.mu.Unlock()

	mx := mux.New(t)
	if opts.QueueDepth > 0 {
		mx.SetQueueDepth(opts.QueueDepth)
	}
	if err := mx.Start(ctx); err != nil {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		return nil, fmt.Errorf("session: start multiplexer: %w", err)
	}
	s.mx = mx

	var d *registry.Descriptor
	var hw protocol.HardwareID

	if opts.ForceKind != "" {
		found, ok := registry.LookupByName(opts.ForceKind)
		if !ok {
			mx.Close()
			s.mu.Lock()
			s.state = StateClosed
			s.mu.Unlock()
			return nil, fmt.Errorf("session: force_kind %q not in registry", opts.ForceKind)
		}
		d = found
	} else {
		resp, err := mx.Submit(ctx, protocol.ReadHardwareId{})
		if err != nil {
			mx.Close()
			s.mu.Lock()
			s.state = StateClosed
			s.mu.Unlock()
			return nil, fmt.Errorf("session: read hardware id: %w", err)
		}
		decoded, err := protocol.DecodeReadHardwareIdResponse(resp.Payload)
		if err != nil {
			mx.Close()
			s.mu.Lock()
			s.state = StateClosed
			s.mu.Unlock()
			return nil, err
		}
		hw = decoded

		found, ok := registry.Lookup(hw.HwID)
		if !ok {
			mx.Close()
			s.mu.Lock()
			s.state = StateClosed
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: unknown hw_id 0x%02X", ErrUnsupportedFirmware, hw.HwID)
		}
		if !found.Firmware.Contains(hw.DspVersion) {
			mx.Close()
			s.mu.Lock()
			s.state = StateClosed
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s dsp_version %d outside %d..%d",
				ErrUnsupportedFirmware, found.Name, hw.DspVersion, found.Firmware.Min, found.Firmware.Max)
		}
		d = found
	}

	s.mu.Lock()
	s.d = d
	s.hw = hw
	s.state = StateOpen
	s.mu.Unlock()

	go s.runEventPump()

	return s, nil
}

// Descriptor returns the registry entry this session opened against.
func (s *Session) Descriptor() *registry.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) requireOpen() (*registry.Descriptor, *mux.Mux, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateOpen {
		return nil, nil, ErrNotOpen
	}
	return s.d, s.mx, nil
}

// Close tears down the multiplexer and transitions to Closed.
func (s *Session) Close() error {
	s.mu.Lock()
	s.state = StateClosed
	mx := s.mx
	s.mu.Unlock()

	s.closeOnce.Do(func() { close(s.stopPump) })
	s.events.closeAll()

	if mx == nil {
		return nil
	}
	return mx.Close()
}

// write lowers a resolved symbol + logical value to the wire command(s)
// appropriate for its encoding tag. Dedicated master-level opcodes
// (volume/source/mute/dirac/preset) are not routed through here; see
// SetVolume et al.
func (s *Session) write(ctx context.Context, mx *mux.Mux, d *registry.Descriptor, sym registry.Symbol, v interface{}) error {
	switch sym.Encoding {
	case units.TagFloat32LE:
		fv, ok := v.(float64)
		if !ok {
			return fmt.Errorf("session: expected float64 for %v, got %T", sym.Encoding, v)
		}
		_, err := mx.Submit(ctx, protocol.WriteFloat{Address: sym.Address, Value: float32(fv)})
		return err

	case units.TagInt16Gain:
		dB, ok := v.(float64)
		if !ok {
			return fmt.Errorf("session: expected float64 for %v, got %T", sym.Encoding, v)
		}
		enc, err := d.GainEncoder().Encode(dB)
		if err != nil {
			return err
		}
		_, err = mx.Submit(ctx, protocol.WriteMemory{Address: sym.Address, Bytes: enc})
		return err

	case units.TagBool:
		bv, ok := v.(bool)
		if !ok {
			return fmt.Errorf("session: expected bool for %v, got %T", sym.Encoding, v)
		}
		enc, err := (units.Bool{Kind: units.BoolSet}).Encode(bv)
		if err != nil {
			return err
		}
		_, err = mx.Submit(ctx, protocol.WriteMemory{Address: sym.Address, Bytes: enc})
		return err

	case units.TagDuration:
		ms, ok := v.(float64)
		if !ok {
			return fmt.Errorf("session: expected float64 ms for %v, got %T", sym.Encoding, v)
		}
		enc, err := d.DurationEncoder().Encode(ms)
		if err != nil {
			return err
		}
		_, err = mx.Submit(ctx, protocol.WriteMemory{Address: sym.Address, Bytes: enc})
		return err

	case units.TagEnumSource:
		src, ok := v.(units.Source)
		if !ok {
			return fmt.Errorf("session: expected units.Source for %v, got %T", sym.Encoding, v)
		}
		enc, err := d.SourceEncoder().Encode(src)
		if err != nil {
			return err
		}
		_, err = mx.Submit(ctx, protocol.WriteMemory{Address: sym.Address, Bytes: enc})
		return err

	case units.TagUint8:
		u, ok := v.(uint8)
		if !ok {
			return fmt.Errorf("session: expected uint8 for %v, got %T", sym.Encoding, v)
		}
		enc, _ := units.Uint8{}.Encode(u)
		_, err := mx.Submit(ctx, protocol.WriteMemory{Address: sym.Address, Bytes: enc})
		return err

	default:
		return fmt.Errorf("session: symbol encoding %v is not writable via write()", sym.Encoding)
	}
}

// writeBiquad writes a full 5-coefficient biquad at b0Addr, then its
// bypass flag at bypassAddr (both resolved by the caller from the
// registry, rather than assumed from a fixed byte offset).
func (s *Session) writeBiquad(ctx context.Context, mx *mux.Mux, b0Addr, bypassAddr uint16, coeffs units.Biquad, bypass bool) error {
	_, err := mx.Submit(ctx, protocol.WriteBiquad{
		Address: b0Addr,
		Coeffs:  [5]float32{float32(coeffs.B0), float32(coeffs.B1), float32(coeffs.B2), float32(coeffs.A1), float32(coeffs.A2)},
	})
	if err != nil {
		return err
	}
	_, err = mx.Submit(ctx, protocol.WriteBiquadBypass{Address: bypassAddr, Bypass: bypass})
	return err
}
