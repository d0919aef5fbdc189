package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidsp-audio/minidsp-go/pkg/mockdevice"
	"github.com/minidsp-audio/minidsp-go/pkg/protocol"
	"github.com/minidsp-audio/minidsp-go/pkg/registry"
	"github.com/minidsp-audio/minidsp-go/pkg/transport"
	"github.com/minidsp-audio/minidsp-go/pkg/units"
)

func openTestSession(t *testing.T) *Session {
	t.Helper()
	d, ok := registry.LookupByName("2x4HD")
	require.True(t, ok)
	dev := mockdevice.New(mockdevice.Options{Descriptor: d, DspVersion: d.Firmware.Min, DisableLevelGenerator: true})

	s, err := Open(context.Background(), dev, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
func uint8Ptr(v uint8) *uint8     { return &v }

func TestOpenProbesAndResolvesDescriptor(t *testing.T) {
	s := openTestSession(t)
	assert.Equal(t, StateOpen, s.State())
	assert.Equal(t, "2x4HD", s.Descriptor().Name)
}

func TestOpenRejectsFirmwareOutsideRange(t *testing.T) {
	d, ok := registry.LookupByName("2x4HD")
	require.True(t, ok)
	dev := mockdevice.New(mockdevice.Options{Descriptor: d, DspVersion: d.Firmware.Max + 5, DisableLevelGenerator: true})
	defer dev.Close()

	_, err := Open(context.Background(), dev, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFirmware)
}

func TestOpenForceKindSkipsProbe(t *testing.T) {
	d, ok := registry.LookupByName("2x4HD")
	require.True(t, ok)
	dev := mockdevice.New(mockdevice.Options{Descriptor: d, DspVersion: d.Firmware.Min, DisableLevelGenerator: true})
	defer dev.Close()

	s, err := Open(context.Background(), dev, Options{ForceKind: "2x4HD"})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "2x4HD", s.Descriptor().Name)
}

func TestSetVolumeAndGetStatusRoundTrip(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SetVolume(ctx, -12.5))
	status, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.InDelta(t, -12.5, status.Master.Volume, 0.5)
}

func TestSetMuteReflectsInStatus(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SetMute(ctx, true))
	status, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Master.Mute)

	require.NoError(t, s.SetMute(ctx, false))
	status, err = s.GetStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Master.Mute)
}

func TestInputGainSucceedsAgainstDeclaredSymbol(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Input(0).SetGain(ctx, -6.0))

	d := s.Descriptor()
	_, err := d.Resolve("input.0.gain")
	require.NoError(t, err)
}

func TestInputGainRejectsUnknownChannel(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	err := s.Input(99).SetGain(ctx, -6.0)
	assert.ErrorIs(t, err, registry.ErrUnknownSymbol)
}

func TestApplyConfigWritesPresetFirst(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	delta := ConfigDelta{
		MasterStatus: &MasterStatusDelta{Preset: uint8Ptr(2), Volume: floatPtr(-3.0)},
		Inputs: []InputDelta{
			{Index: 0, Gain: floatPtr(-1.5)},
		},
	}
	require.NoError(t, s.ApplyConfig(ctx, delta))

	status, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), status.Master.Preset)
	assert.InDelta(t, -3.0, status.Master.Volume, 0.5)
}

func TestApplyConfigSerializesAgainstConcurrentCallers(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.ApplyConfig(ctx, ConfigDelta{
				Outputs: []OutputDelta{{Index: 0, Gain: floatPtr(float64(-i))}},
			})
		}(i)
	}
	wg.Wait()

	status, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.NotNil(t, status)
}

func TestImportPEQFillsRemainingSlotsWithIdentity(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	warning, err := s.Input(0).ImportPEQ(ctx, 0, 10, []Biquad{
		{B0: 1.1, B1: 0.2, B2: 0.1, A1: -0.3, A2: 0.05},
		{B0: 0.9, B1: -0.1, B2: 0.05, A1: 0.2, A2: -0.1},
	})
	require.NoError(t, err)
	assert.Nil(t, warning)
}

func TestImportPEQDiscardsExcessWithWarning(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	biquads := make([]Biquad, 12)
	for i := range biquads {
		biquads[i] = Identity
	}
	warning, err := s.Input(0).ImportPEQ(ctx, 0, 10, biquads)
	require.NoError(t, err)
	require.NotNil(t, warning)
	assert.Equal(t, 2, warning.Discarded)
}

func TestUploadFIRThenClear(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	taps := make([]float32, 200)
	for i := range taps {
		taps[i] = 0.001 * float32(i)
	}
	require.NoError(t, s.Output(0).UploadFIR(ctx, taps))
	require.NoError(t, s.Output(0).UploadFIR(ctx, nil))
}

func TestUploadFIRRejectsOversizeBank(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	d := s.Descriptor()
	taps := make([]float32, d.FirCapacity+1)
	err := s.Output(0).UploadFIR(ctx, taps)
	assert.ErrorIs(t, err, units.ErrEncodingRange)
}

// failAfterNWrites wraps a transport.Transport and fails the Nth+1
// WriteFrame whose opcode matches failOn, simulating a device that goes
// unresponsive partway through a chunked upload.
type failAfterNWrites struct {
	transport.Transport
	failOn protocol.Opcode
	afterN int
	seen   int
}

func (f *failAfterNWrites) WriteFrame(ctx context.Context, frame []byte) error {
	if len(frame) >= 2 && protocol.Opcode(frame[1]) == f.failOn {
		f.seen++
		if f.seen > f.afterN {
			return errors.New("injected write failure")
		}
	}
	return f.Transport.WriteFrame(ctx, frame)
}

func TestUploadFIRRestoresBypassOnChunkFailure(t *testing.T) {
	d, ok := registry.LookupByName("2x4HD")
	require.True(t, ok)
	dev := mockdevice.New(mockdevice.Options{Descriptor: d, DspVersion: d.Firmware.Min, DisableLevelGenerator: true})
	ft := &failAfterNWrites{Transport: dev, failOn: protocol.OpWriteFirTaps, afterN: 1}

	s, err := Open(context.Background(), ft, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	out := s.Output(0)
	require.NoError(t, out.UploadFIR(ctx, nil)) // bypass=true, contents untouched

	taps := make([]float32, 200) // more than tapsPerChunk, guarantees >1 chunk
	err = out.UploadFIR(ctx, taps)
	require.Error(t, err)

	sd, mx, err := s.requireOpen()
	require.NoError(t, err)
	bypassSym, err := sd.Resolve("output.0.fir.bypass")
	require.NoError(t, err)
	bypass, err := out.currentBypass(ctx, mx, bypassSym.Address)
	require.NoError(t, err)
	assert.True(t, bypass, "a failed chunk upload must restore the bypass flag that preceded it")
}

func TestApplyConfigRejectsOutOfRangeIndexWithoutPartialEffect(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	before, err := s.GetStatus(ctx)
	require.NoError(t, err)

	err = s.ApplyConfig(ctx, ConfigDelta{
		MasterStatus: &MasterStatusDelta{Preset: uint8Ptr(3)},
		Inputs:       []InputDelta{{Index: 99, Gain: floatPtr(-2.0)}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrUnknownSymbol)

	after, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Master.Preset, after.Master.Preset, "an invalid delta must not write master_status.preset")
}

func TestSubscribeEventsDeliversCurrentStatusImmediately(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SetVolume(ctx, -4.0))

	ch, unsub, err := s.SubscribeEvents(ctx)
	require.NoError(t, err)
	defer unsub()

	select {
	case status := <-ch:
		assert.InDelta(t, -4.0, status.Volume, 0.5)
	case <-time.After(time.Second):
		t.Fatal("did not receive initial status")
	}
}

func TestSnapshotSaveAndLoadRoundTrip(t *testing.T) {
	s := openTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.SetVolume(ctx, -8.0))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2x4HD", snap.Product)

	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, SaveSnapshot(snap, path))

	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.InDelta(t, -8.0, loaded.Status.Master.Volume, 0.5)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestCloseIsIdempotentAndStopsEventPump(t *testing.T) {
	s := openTestSession(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())
}

func TestOperationsFailAfterClose(t *testing.T) {
	s := openTestSession(t)
	require.NoError(t, s.Close())

	_, err := s.GetStatus(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
}
