package session

import (
	"fmt"

	"context"

	"github.com/minidsp-audio/minidsp-go/pkg/mux"
	"github.com/minidsp-audio/minidsp-go/pkg/protocol"
	"github.com/minidsp-audio/minidsp-go/pkg/registry"
)

// ApplyConfig lowers delta to a sequence of writes under the session's
// apply lock, so overlapping ApplyConfig/master-setter calls serialize
// at the session level and never interleave (spec.md §4.7 "Concurrency
// inside apply_config"). master_status.preset, if present, is written
// and acked before any other write in the call (spec.md §8
// "Preset-first"). Every index and symbol the delta touches is resolved
// up front by validateConfigDelta; an invalid delta is rejected whole,
// before master_status.preset's reboot-triggering write or any other
// write reaches the transport (spec.md §3).
func (s *Session) ApplyConfig(ctx context.Context, delta ConfigDelta) error {
	d, mx, err := s.requireOpen()
	if err != nil {
		return err
	}

	if err := validateConfigDelta(d, delta); err != nil {
		return fmt.Errorf("session: apply_config rejected: %w", err)
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if delta.MasterStatus != nil && delta.MasterStatus.Preset != nil {
		if _, err := mx.Submit(ctx, protocol.SetConfig{Preset: *delta.MasterStatus.Preset}); err != nil {
			return fmt.Errorf("session: apply_config preset: %w", err)
		}
	}

	if delta.MasterStatus != nil {
		if err := s.applyMasterDelta(ctx, mx, d, delta.MasterStatus); err != nil {
			return err
		}
	}

	for _, in := range delta.Inputs {
		if err := s.applyInputDelta(ctx, mx, d, in); err != nil {
			return fmt.Errorf("session: apply_config input %d: %w", in.Index, err)
		}
	}
	for _, out := range delta.Outputs {
		if err := s.applyOutputDelta(ctx, mx, d, out); err != nil {
			return fmt.Errorf("session: apply_config output %d: %w", out.Index, err)
		}
	}
	return nil
}

func (s *Session) applyMasterDelta(ctx context.Context, mx *mux.Mux, d *registry.Descriptor, delta *MasterStatusDelta) error {
	if delta.Volume != nil {
		enc, err := d.GainEncoder().Encode(*delta.Volume)
		if err != nil {
			return err
		}
		if _, err := mx.Submit(ctx, protocol.SetVolume{HalfDB: enc[0]}); err != nil {
			return err
		}
	}
	if delta.Source != nil {
		code, err := d.SourceEncoder().Encode(*delta.Source)
		if err != nil {
			return err
		}
		if _, err := mx.Submit(ctx, protocol.SetSource{Code: code[0]}); err != nil {
			return err
		}
	}
	if delta.Mute != nil {
		if _, err := mx.Submit(ctx, protocol.SetMute{On: *delta.Mute}); err != nil {
			return err
		}
	}
	if delta.Dirac != nil {
		if _, err := mx.Submit(ctx, protocol.SetDirac{On: *delta.Dirac}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) applyInputDelta(ctx context.Context, mx *mux.Mux, d *registry.Descriptor, in InputDelta) error {
	prefix := fmt.Sprintf("input.%d.", in.Index)

	if in.Gain != nil {
		sym, err := d.Resolve(prefix + "gain")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, *in.Gain); err != nil {
			return err
		}
	}
	if in.Mute != nil {
		sym, err := d.Resolve(prefix + "mute")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, *in.Mute); err != nil {
			return err
		}
	}
	for _, p := range in.Peq {
		if err := s.applyPeqDelta(ctx, mx, d, fmt.Sprintf("input.%d.peq.%d", in.Index, p.Index), p); err != nil {
			return err
		}
	}
	for _, r := range in.Routing {
		if err := s.applyRoutingDelta(ctx, mx, d, in.Index, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) applyOutputDelta(ctx context.Context, mx *mux.Mux, d *registry.Descriptor, out OutputDelta) error {
	prefix := fmt.Sprintf("output.%d.", out.Index)

	if out.Gain != nil {
		sym, err := d.Resolve(prefix + "gain")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, *out.Gain); err != nil {
			return err
		}
	}
	if out.Mute != nil {
		sym, err := d.Resolve(prefix + "mute")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, *out.Mute); err != nil {
			return err
		}
	}
	if out.Invert != nil {
		sym, err := d.Resolve(prefix + "invert")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, *out.Invert); err != nil {
			return err
		}
	}
	if out.Delay != nil {
		sym, err := d.Resolve(prefix + "delay")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, *out.Delay); err != nil {
			return err
		}
	}
	for _, p := range out.Peq {
		if err := s.applyPeqDelta(ctx, mx, d, fmt.Sprintf("output.%d.peq.%d", out.Index, p.Index), p); err != nil {
			return err
		}
	}
	for _, x := range out.Crossover {
		group := x.Index / d.CrossoverPerGroup
		slot := x.Index % d.CrossoverPerGroup
		if err := s.applyPeqDelta(ctx, mx, d, fmt.Sprintf("output.%d.crossover.%d.%d", out.Index, group, slot), x); err != nil {
			return err
		}
	}
	if out.Compressor != nil {
		if err := s.applyCompressorDelta(ctx, mx, d, out.Index, *out.Compressor); err != nil {
			return err
		}
	}
	if out.Fir != nil {
		if err := s.applyFirDelta(ctx, mx, d, out.Index, *out.Fir); err != nil {
			return err
		}
	}
	return nil
}

// applyPeqDelta reads the slot's current coefficients/bypass first so a
// delta touching only one of {coeff, bypass} doesn't clobber the other:
// WriteBiquad and WriteBiquadBypass are separate wire operations.
func (s *Session) applyPeqDelta(ctx context.Context, mx *mux.Mux, d *registry.Descriptor, prefix string, p PeqDelta) error {
	b0, err := d.Resolve(prefix + ".b0")
	if err != nil {
		return err
	}
	bypassSym, err := d.Resolve(prefix + ".bypass")
	if err != nil {
		return err
	}

	if p.Coeff != nil {
		if _, err := mx.Submit(ctx, protocol.WriteBiquad{
			Address: b0.Address,
			Coeffs: [5]float32{
				float32(p.Coeff.B0), float32(p.Coeff.B1), float32(p.Coeff.B2),
				float32(p.Coeff.A1), float32(p.Coeff.A2),
			},
		}); err != nil {
			return err
		}
	}
	if p.Bypass != nil {
		if _, err := mx.Submit(ctx, protocol.WriteBiquadBypass{Address: bypassSym.Address, Bypass: *p.Bypass}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) applyRoutingDelta(ctx context.Context, mx *mux.Mux, d *registry.Descriptor, inputIdx int, r RoutingDelta) error {
	prefix := fmt.Sprintf("input.%d.routing.%d.", inputIdx, r.Index)
	if r.Mute != nil {
		sym, err := d.Resolve(prefix + "enable")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, !*r.Mute); err != nil {
			return err
		}
	}
	if r.Gain != nil {
		sym, err := d.Resolve(prefix + "gain")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, *r.Gain); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) applyCompressorDelta(ctx context.Context, mx *mux.Mux, d *registry.Descriptor, outputIdx int, delta CompressorDelta) error {
	prefix := fmt.Sprintf("output.%d.compressor.", outputIdx)

	if delta.Bypass != nil {
		sym, err := d.Resolve(prefix + "bypass")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, *delta.Bypass); err != nil {
			return err
		}
	}
	if delta.Threshold != nil {
		sym, err := d.Resolve(prefix + "threshold")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, *delta.Threshold); err != nil {
			return err
		}
	}
	if delta.Ratio != nil {
		sym, err := d.Resolve(prefix + "ratio")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, *delta.Ratio); err != nil {
			return err
		}
	}
	if delta.Attack != nil {
		sym, err := d.Resolve(prefix + "attack")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, *delta.Attack); err != nil {
			return err
		}
	}
	if delta.Release != nil {
		sym, err := d.Resolve(prefix + "release")
		if err != nil {
			return err
		}
		if err := s.write(ctx, mx, d, sym, *delta.Release); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) applyFirDelta(ctx context.Context, mx *mux.Mux, d *registry.Descriptor, outputIdx int, delta FirDelta) error {
	out := s.Output(outputIdx)
	if delta.Coefficients != nil {
		if err := out.UploadFIR(ctx, delta.Coefficients); err != nil {
			return err
		}
	}
	if delta.Bypass != nil && delta.Coefficients == nil {
		bypassSym, err := d.Resolve(fmt.Sprintf("output.%d.fir.bypass", outputIdx))
		if err != nil {
			return err
		}
		if _, err := mx.Submit(ctx, protocol.WriteBiquadBypass{Address: bypassSym.Address, Bypass: *delta.Bypass}); err != nil {
			return err
		}
	}
	return nil
}
