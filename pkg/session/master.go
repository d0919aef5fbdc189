package session

import (
	"context"

	"github.com/minidsp-audio/minidsp-go/pkg/protocol"
	"github.com/minidsp-audio/minidsp-go/pkg/units"
)

// SetSource selects the active input source by dedicated opcode
// (spec.md §4.2/§4.7), resolving the product-specific wire code from
// the open descriptor's source table.
func (s *Session) SetSource(ctx context.Context, src units.Source) error {
	d, mx, err := s.requireOpen()
	if err != nil {
		return err
	}
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	code, err := d.SourceEncoder().Encode(src)
	if err != nil {
		return err
	}
	_, err = mx.Submit(ctx, protocol.SetSource{Code: code[0]})
	return err
}

// SetVolume sets master volume in decibels via the dedicated opcode.
func (s *Session) SetVolume(ctx context.Context, dB float64) error {
	d, mx, err := s.requireOpen()
	if err != nil {
		return err
	}
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	enc, err := d.GainEncoder().Encode(dB)
	if err != nil {
		return err
	}
	_, err = mx.Submit(ctx, protocol.SetVolume{HalfDB: enc[0]})
	return err
}

// SetMute toggles master mute.
func (s *Session) SetMute(ctx context.Context, on bool) error {
	_, mx, err := s.requireOpen()
	if err != nil {
		return err
	}
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	_, err = mx.Submit(ctx, protocol.SetMute{On: on})
	return err
}

// SetDirac toggles Dirac Live processing.
func (s *Session) SetDirac(ctx context.Context, on bool) error {
	_, mx, err := s.requireOpen()
	if err != nil {
		return err
	}
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	_, err = mx.Submit(ctx, protocol.SetDirac{On: on})
	return err
}

// SetPreset selects a configuration preset by the dedicated SetConfig
// opcode, which the device ack's only after it finishes reloading its
// DSP program (spec.md §4.2 "fire-and-forget at the wire level").
func (s *Session) SetPreset(ctx context.Context, preset uint8) error {
	_, mx, err := s.requireOpen()
	if err != nil {
		return err
	}
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	_, err = mx.Submit(ctx, protocol.SetConfig{Preset: preset})
	return err
}
