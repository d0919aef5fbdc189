package session

import (
	"context"
	"fmt"

	"github.com/minidsp-audio/minidsp-go/pkg/registry"
)

// InputHandle scopes gain/mute/PEQ/routing operations to one input
// channel (spec.md §4.7 "input(i)").
type InputHandle struct {
	s *Session
	i int
}

// Input returns a scoped handle for input channel i. It performs no
// I/O and does not validate i against the descriptor until an
// operation is actually called.
func (s *Session) Input(i int) InputHandle { return InputHandle{s: s, i: i} }

func (h InputHandle) resolve(d *registry.Descriptor, suffix string) (registry.Symbol, error) {
	return d.Resolve(fmt.Sprintf("input.%d.%s", h.i, suffix))
}

// SetGain sets the input channel's gain in decibels.
func (h InputHandle) SetGain(ctx context.Context, dB float64) error {
	d, mx, err := h.s.requireOpen()
	if err != nil {
		return err
	}
	sym, err := h.resolve(d, "gain")
	if err != nil {
		return err
	}
	return h.s.write(ctx, mx, d, sym, dB)
}

// SetMute mutes/unmutes the input channel.
func (h InputHandle) SetMute(ctx context.Context, on bool) error {
	d, mx, err := h.s.requireOpen()
	if err != nil {
		return err
	}
	sym, err := h.resolve(d, "mute")
	if err != nil {
		return err
	}
	return h.s.write(ctx, mx, d, sym, on)
}

// SetPeq writes biquad slot k's coefficients and bypass flag.
func (h InputHandle) SetPeq(ctx context.Context, k int, coeffs Biquad, bypass bool) error {
	d, mx, err := h.s.requireOpen()
	if err != nil {
		return err
	}
	prefix := fmt.Sprintf("input.%d.peq.%d", h.i, k)
	return h.s.writePeqSlot(ctx, mx, d, prefix, coeffs, bypass)
}

// SetRouting sets the gain/enable for the cell routing this input into
// output o.
func (h InputHandle) SetRouting(ctx context.Context, o int, enable bool, gainDB float64) error {
	d, mx, err := h.s.requireOpen()
	if err != nil {
		return err
	}
	enableSym, err := h.resolve(d, fmt.Sprintf("routing.%d.enable", o))
	if err != nil {
		return err
	}
	if err := h.s.write(ctx, mx, d, enableSym, enable); err != nil {
		return err
	}
	gainSym, err := h.resolve(d, fmt.Sprintf("routing.%d.gain", o))
	if err != nil {
		return err
	}
	return h.s.write(ctx, mx, d, gainSym, gainDB)
}

// OutputHandle scopes gain/mute/PEQ/crossover/compressor/FIR operations
// to one output channel (spec.md §4.7 "output(j)").
type OutputHandle struct {
	s *Session
	j int
}

// Output returns a scoped handle for output channel j.
func (s *Session) Output(j int) OutputHandle { return OutputHandle{s: s, j: j} }

func (h OutputHandle) resolve(d *registry.Descriptor, suffix string) (registry.Symbol, error) {
	return d.Resolve(fmt.Sprintf("output.%d.%s", h.j, suffix))
}

// SetGain sets the output channel's gain in decibels.
func (h OutputHandle) SetGain(ctx context.Context, dB float64) error {
	d, mx, err := h.s.requireOpen()
	if err != nil {
		return err
	}
	sym, err := h.resolve(d, "gain")
	if err != nil {
		return err
	}
	return h.s.write(ctx, mx, d, sym, dB)
}

// SetMute mutes/unmutes the output channel.
func (h OutputHandle) SetMute(ctx context.Context, on bool) error {
	d, mx, err := h.s.requireOpen()
	if err != nil {
		return err
	}
	sym, err := h.resolve(d, "mute")
	if err != nil {
		return err
	}
	return h.s.write(ctx, mx, d, sym, on)
}

// SetInvert toggles output polarity inversion.
func (h OutputHandle) SetInvert(ctx context.Context, on bool) error {
	d, mx, err := h.s.requireOpen()
	if err != nil {
		return err
	}
	sym, err := h.resolve(d, "invert")
	if err != nil {
		return err
	}
	return h.s.write(ctx, mx, d, sym, on)
}

// SetDelay sets the output's delay in milliseconds.
func (h OutputHandle) SetDelay(ctx context.Context, ms float64) error {
	d, mx, err := h.s.requireOpen()
	if err != nil {
		return err
	}
	sym, err := h.resolve(d, "delay")
	if err != nil {
		return err
	}
	return h.s.write(ctx, mx, d, sym, ms)
}

// SetPeq writes biquad slot k's coefficients and bypass flag.
func (h OutputHandle) SetPeq(ctx context.Context, k int, coeffs Biquad, bypass bool) error {
	d, mx, err := h.s.requireOpen()
	if err != nil {
		return err
	}
	prefix := fmt.Sprintf("output.%d.peq.%d", h.j, k)
	return h.s.writePeqSlot(ctx, mx, d, prefix, coeffs, bypass)
}

// SetCrossover writes crossover group g, slot k's coefficients and
// bypass flag.
func (h OutputHandle) SetCrossover(ctx context.Context, g, k int, coeffs Biquad, bypass bool) error {
	d, mx, err := h.s.requireOpen()
	if err != nil {
		return err
	}
	prefix := fmt.Sprintf("output.%d.crossover.%d.%d", h.j, g, k)
	return h.s.writePeqSlot(ctx, mx, d, prefix, coeffs, bypass)
}

// SetCompressor applies a partial compressor update.
func (h OutputHandle) SetCompressor(ctx context.Context, delta CompressorDelta) error {
	d, mx, err := h.s.requireOpen()
	if err != nil {
		return err
	}
	return h.s.applyCompressorDelta(ctx, mx, d, h.j, delta)
}
