package session

import (
	"context"
	"fmt"

	"github.com/minidsp-audio/minidsp-go/pkg/protocol"
)

// GetStatus issues one ReadMasterStatus and two ReadFloats (input and
// output level meters) and returns all three together (spec.md §4.7).
// It holds the session's apply lock across the three requests, so no
// ApplyConfig or master-level setter can write between them; writes made
// through Input/Output handles do not take that lock.
func (s *Session) GetStatus(ctx context.Context) (Status, error) {
	d, mx, err := s.requireOpen()
	if err != nil {
		return Status{}, err
	}
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	master, err := s.getMasterStatus(ctx)
	if err != nil {
		return Status{}, err
	}

	inLevels, err := readLevels(ctx, mx, d.InputMeterAddr, d.Inputs)
	if err != nil {
		return Status{}, fmt.Errorf("session: read input levels: %w", err)
	}
	outLevels, err := readLevels(ctx, mx, d.OutputMeterAddr, d.Outputs)
	if err != nil {
		return Status{}, fmt.Errorf("session: read output levels: %w", err)
	}

	return Status{Master: master, InputLevels: inLevels, OutputLevels: outLevels}, nil
}

func readLevels(ctx context.Context, mx interface {
	Submit(context.Context, protocol.Command) (protocol.Response, error)
}, addr uint16, count int) ([]float64, error) {
	if count == 0 {
		return nil, nil
	}
	resp, err := mx.Submit(ctx, protocol.ReadFloats{Address: addr, Count: uint8(count)})
	if err != nil {
		return nil, err
	}
	vals, err := protocol.DecodeReadFloatsResponse(resp.Payload)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out, nil
}

// getMasterStatus issues a bare ReadMasterStatus and translates it into
// logical units.
func (s *Session) getMasterStatus(ctx context.Context) (MasterStatus, error) {
	d, mx, err := s.requireOpen()
	if err != nil {
		return MasterStatus{}, err
	}

	resp, err := mx.Submit(ctx, protocol.ReadMasterStatus{})
	if err != nil {
		return MasterStatus{}, err
	}
	wire, err := protocol.DecodeReadMasterStatusResponse(resp.Payload)
	if err != nil {
		return MasterStatus{}, err
	}

	volume, err := d.GainEncoder().Decode([]byte{wire.HalfDB})
	if err != nil {
		return MasterStatus{}, err
	}
	source, err := d.SourceEncoder().Decode([]byte{wire.Source})
	if err != nil {
		return MasterStatus{}, err
	}

	return MasterStatus{
		Preset: wire.Preset,
		Source: source,
		Volume: volume,
		Mute:   wire.Mute,
		Dirac:  wire.Dirac,
	}, nil
}

