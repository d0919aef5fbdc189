package session

import (
	"context"
	"fmt"

	"github.com/minidsp-audio/minidsp-go/pkg/mux"
	"github.com/minidsp-audio/minidsp-go/pkg/registry"
)

// writePeqSlot resolves prefix's five coefficient symbols plus its
// bypass symbol and writes coeffs/bypass as one WriteBiquad +
// WriteBiquadBypass pair.
func (s *Session) writePeqSlot(ctx context.Context, mx *mux.Mux, d *registry.Descriptor, prefix string, coeffs Biquad, bypass bool) error {
	b0, err := d.Resolve(prefix + ".b0")
	if err != nil {
		return err
	}
	bypassSym, err := d.Resolve(prefix + ".bypass")
	if err != nil {
		return err
	}
	return s.writeBiquad(ctx, mx, b0.Address, bypassSym.Address, coeffs, bypass)
}

// ImportPEQ applies biquads, produced by an external parser (e.g. a REW
// export), to consecutive PEQ slots of channel starting at slotStart
// (spec.md §4.7 "import_peq"). If fewer biquads than slots are given,
// the remaining slots are cleared to Identity with bypass=false. If
// more biquads than slots are given, the extras are discarded and a
// non-nil *ImportPEQWarning is returned alongside a nil error.
func (h InputHandle) ImportPEQ(ctx context.Context, slotStart, slotCount int, biquads []Biquad) (*ImportPEQWarning, error) {
	return h.s.importPEQ(ctx, func(k int, b Biquad) error { return h.SetPeq(ctx, k, b, false) }, slotStart, slotCount, biquads)
}

// ImportPEQ applies biquads to consecutive output PEQ slots. See
// InputHandle.ImportPEQ for slot-count semantics.
func (h OutputHandle) ImportPEQ(ctx context.Context, slotStart, slotCount int, biquads []Biquad) (*ImportPEQWarning, error) {
	return h.s.importPEQ(ctx, func(k int, b Biquad) error { return h.SetPeq(ctx, k, b, false) }, slotStart, slotCount, biquads)
}

// ImportPEQWarning reports that import_peq received more biquads than
// slots and had to discard the excess (spec.md §4.7).
type ImportPEQWarning struct {
	Discarded int
}

func (w *ImportPEQWarning) Error() string {
	return fmt.Sprintf("session: import_peq discarded %d biquads exceeding the slot range", w.Discarded)
}

func (s *Session) importPEQ(ctx context.Context, setSlot func(k int, b Biquad) error, slotStart, slotCount int, biquads []Biquad) (*ImportPEQWarning, error) {
	var warning *ImportPEQWarning
	n := len(biquads)
	if n > slotCount {
		warning = &ImportPEQWarning{Discarded: n - slotCount}
		biquads = biquads[:slotCount]
		n = slotCount
	}

	for k := 0; k < slotCount; k++ {
		slot := slotStart + k
		if k < n {
			if err := setSlot(slot, biquads[k]); err != nil {
				return warning, fmt.Errorf("session: import_peq slot %d: %w", slot, err)
			}
			continue
		}
		if err := setSlot(slot, Identity); err != nil {
			return warning, fmt.Errorf("session: import_peq clear slot %d: %w", slot, err)
		}
	}
	return warning, nil
}
