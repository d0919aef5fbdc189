package session

import (
	"fmt"

	"github.com/minidsp-audio/minidsp-go/pkg/registry"
	"github.com/minidsp-audio/minidsp-go/pkg/units"
)

// validateConfigDelta resolves every symbol delta would touch and checks
// every index against the descriptor's channel/slot counts, without
// submitting a single wire command. ApplyConfig calls this before its
// first Submit so an invalid delta is rejected whole (spec.md §3: "no
// partial effects are observable on the transport when validation
// fails") instead of failing mid-sequence after earlier fields, or
// master_status.preset itself, have already reached the device.
func validateConfigDelta(d *registry.Descriptor, delta ConfigDelta) error {
	if delta.MasterStatus != nil {
		if err := validateMasterDelta(d, delta.MasterStatus); err != nil {
			return fmt.Errorf("session: apply_config master_status: %w", err)
		}
	}
	for _, in := range delta.Inputs {
		if err := validateInputDelta(d, in); err != nil {
			return fmt.Errorf("session: apply_config input %d: %w", in.Index, err)
		}
	}
	for _, out := range delta.Outputs {
		if err := validateOutputDelta(d, out); err != nil {
			return fmt.Errorf("session: apply_config output %d: %w", out.Index, err)
		}
	}
	return nil
}

func validateMasterDelta(d *registry.Descriptor, delta *MasterStatusDelta) error {
	if delta.Source != nil {
		if _, err := d.SourceEncoder().Encode(*delta.Source); err != nil {
			return err
		}
	}
	return nil
}

func validateInputDelta(d *registry.Descriptor, in InputDelta) error {
	if in.Index < 0 || in.Index >= d.Inputs {
		return fmt.Errorf("%w: input index %d outside 0..%d", registry.ErrUnknownSymbol, in.Index, d.Inputs-1)
	}
	prefix := fmt.Sprintf("input.%d.", in.Index)
	if in.Gain != nil {
		if _, err := d.Resolve(prefix + "gain"); err != nil {
			return err
		}
	}
	if in.Mute != nil {
		if _, err := d.Resolve(prefix + "mute"); err != nil {
			return err
		}
	}
	for _, p := range in.Peq {
		if p.Index < 0 || p.Index >= d.PeqPerInput {
			return fmt.Errorf("%w: peq index %d outside 0..%d", registry.ErrUnknownSymbol, p.Index, d.PeqPerInput-1)
		}
		if err := validatePeqSymbols(d, fmt.Sprintf("input.%d.peq.%d", in.Index, p.Index)); err != nil {
			return err
		}
	}
	for _, r := range in.Routing {
		if r.Index < 0 || r.Index >= d.Outputs {
			return fmt.Errorf("%w: routing output index %d outside 0..%d", registry.ErrUnknownSymbol, r.Index, d.Outputs-1)
		}
		routingPrefix := fmt.Sprintf("input.%d.routing.%d.", in.Index, r.Index)
		if r.Mute != nil {
			if _, err := d.Resolve(routingPrefix + "enable"); err != nil {
				return err
			}
		}
		if r.Gain != nil {
			if _, err := d.Resolve(routingPrefix + "gain"); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateOutputDelta(d *registry.Descriptor, out OutputDelta) error {
	if out.Index < 0 || out.Index >= d.Outputs {
		return fmt.Errorf("%w: output index %d outside 0..%d", registry.ErrUnknownSymbol, out.Index, d.Outputs-1)
	}
	prefix := fmt.Sprintf("output.%d.", out.Index)
	if out.Gain != nil {
		if _, err := d.Resolve(prefix + "gain"); err != nil {
			return err
		}
	}
	if out.Mute != nil {
		if _, err := d.Resolve(prefix + "mute"); err != nil {
			return err
		}
	}
	if out.Invert != nil {
		if _, err := d.Resolve(prefix + "invert"); err != nil {
			return err
		}
	}
	if out.Delay != nil {
		if _, err := d.Resolve(prefix + "delay"); err != nil {
			return err
		}
	}
	for _, p := range out.Peq {
		if p.Index < 0 || p.Index >= d.PeqPerOutput {
			return fmt.Errorf("%w: peq index %d outside 0..%d", registry.ErrUnknownSymbol, p.Index, d.PeqPerOutput-1)
		}
		if err := validatePeqSymbols(d, fmt.Sprintf("output.%d.peq.%d", out.Index, p.Index)); err != nil {
			return err
		}
	}
	crossoverSlots := d.CrossoverGroups * d.CrossoverPerGroup
	for _, x := range out.Crossover {
		if x.Index < 0 || x.Index >= crossoverSlots {
			return fmt.Errorf("%w: crossover index %d outside 0..%d", registry.ErrUnknownSymbol, x.Index, crossoverSlots-1)
		}
		group := x.Index / d.CrossoverPerGroup
		slot := x.Index % d.CrossoverPerGroup
		if err := validatePeqSymbols(d, fmt.Sprintf("output.%d.crossover.%d.%d", out.Index, group, slot)); err != nil {
			return err
		}
	}
	if out.Compressor != nil {
		if err := validateCompressorDelta(d, out.Index, *out.Compressor); err != nil {
			return err
		}
	}
	if out.Fir != nil {
		if err := validateFirDelta(d, out.Index, *out.Fir); err != nil {
			return err
		}
	}
	return nil
}

func validatePeqSymbols(d *registry.Descriptor, prefix string) error {
	if _, err := d.Resolve(prefix + ".b0"); err != nil {
		return err
	}
	if _, err := d.Resolve(prefix + ".bypass"); err != nil {
		return err
	}
	return nil
}

func validateCompressorDelta(d *registry.Descriptor, outputIdx int, delta CompressorDelta) error {
	prefix := fmt.Sprintf("output.%d.compressor.", outputIdx)
	if delta.Bypass != nil {
		if _, err := d.Resolve(prefix + "bypass"); err != nil {
			return err
		}
	}
	if delta.Threshold != nil {
		if _, err := d.Resolve(prefix + "threshold"); err != nil {
			return err
		}
	}
	if delta.Ratio != nil {
		if _, err := d.Resolve(prefix + "ratio"); err != nil {
			return err
		}
	}
	if delta.Attack != nil {
		if _, err := d.Resolve(prefix + "attack"); err != nil {
			return err
		}
	}
	if delta.Release != nil {
		if _, err := d.Resolve(prefix + "release"); err != nil {
			return err
		}
	}
	return nil
}

// validateFirDelta mirrors applyFirDelta's own branching: Coefficients
// routes through UploadFIR (which resolves both fir.taps and
// fir.bypass itself), while a bare Bypass only ever touches fir.bypass.
func validateFirDelta(d *registry.Descriptor, outputIdx int, delta FirDelta) error {
	if delta.Coefficients != nil {
		if len(delta.Coefficients) > d.FirCapacity {
			return fmt.Errorf("%w: %d taps exceeds %s's FIR capacity of %d",
				units.ErrEncodingRange, len(delta.Coefficients), d.Name, d.FirCapacity)
		}
		if _, err := d.Resolve(fmt.Sprintf("output.%d.fir.taps", outputIdx)); err != nil {
			return err
		}
		if _, err := d.Resolve(fmt.Sprintf("output.%d.fir.bypass", outputIdx)); err != nil {
			return err
		}
		return nil
	}
	if delta.Bypass != nil {
		if _, err := d.Resolve(fmt.Sprintf("output.%d.fir.bypass", outputIdx)); err != nil {
			return err
		}
	}
	return nil
}
