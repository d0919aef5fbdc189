package session

import (
	"context"
	"fmt"

	"github.com/minidsp-audio/minidsp-go/pkg/protocol"
	"github.com/minidsp-audio/minidsp-go/pkg/units"
)

// UploadFIR validates taps against the descriptor's FIR capacity, writes
// them as WriteFirTaps commands (protocol.ChunkWriteFirTaps) starting at
// the output's fir.taps address, then un-bypasses the filter. A chunk-write
// failure leaves a partially-written tap bank, so the bypass flag is
// restored to whatever it was before the call rather than left enabled
// over that half-written bank (spec.md §4.7 "restores bypass on
// failure"). An empty taps slice clears the bank's bypass flag to true,
// leaving its contents untouched (spec.md §8 scenario 5).
func (h OutputHandle) UploadFIR(ctx context.Context, taps []float32) error {
	d, mx, err := h.s.requireOpen()
	if err != nil {
		return err
	}
	if len(taps) > d.FirCapacity {
		return fmt.Errorf("%w: %d taps exceeds %s's FIR capacity of %d", units.ErrEncodingRange, len(taps), d.Name, d.FirCapacity)
	}

	tapsSym, err := h.resolve(d, "fir.taps")
	if err != nil {
		return err
	}
	bypassSym, err := h.resolve(d, "fir.bypass")
	if err != nil {
		return err
	}

	if len(taps) == 0 {
		_, err := mx.Submit(ctx, protocol.WriteBiquadBypass{Address: bypassSym.Address, Bypass: true})
		return err
	}

	wasBypassed, err := h.currentBypass(ctx, mx, bypassSym.Address)
	if err != nil {
		return err
	}

	for _, chunk := range protocol.ChunkWriteFirTaps(tapsSym.Address, taps) {
		if _, err := mx.Submit(ctx, chunk); err != nil {
			if _, restoreErr := mx.Submit(ctx, protocol.WriteBiquadBypass{Address: bypassSym.Address, Bypass: wasBypassed}); restoreErr != nil {
				return fmt.Errorf("session: upload_fir chunk at offset %d: %w (bypass restore also failed: %v)",
					chunk.Address-tapsSym.Address, err, restoreErr)
			}
			return fmt.Errorf("session: upload_fir chunk at offset %d: %w", chunk.Address-tapsSym.Address, err)
		}
	}

	_, err = mx.Submit(ctx, protocol.WriteBiquadBypass{Address: bypassSym.Address, Bypass: false})
	return err
}

// currentBypass reads the FIR bank's bypass flag by address, not by
// symbol name, since the caller has already resolved it once.
func (h OutputHandle) currentBypass(ctx context.Context, mx interface {
	Submit(context.Context, protocol.Command) (protocol.Response, error)
}, addr uint16) (bool, error) {
	resp, err := mx.Submit(ctx, protocol.ReadMemory{Address: addr, Len: 1})
	if err != nil {
		return false, fmt.Errorf("session: read current fir.bypass: %w", err)
	}
	raw, err := protocol.DecodeReadMemoryResponse(resp.Payload)
	if err != nil {
		return false, err
	}
	return (units.Bool{Kind: units.BoolBypass}).Decode(raw)
}
