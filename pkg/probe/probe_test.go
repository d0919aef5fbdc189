package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMockDefaultsToTwoByFourHD(t *testing.T) {
	tr, err := Open(context.Background(), "mock:?serial=42")
	require.NoError(t, err)
	defer tr.Close()

	d, hw, err := Probe(context.Background(), tr, Options{})
	require.NoError(t, err)
	assert.Equal(t, "2x4HD", d.Name)
	assert.Equal(t, uint8(10), hw.HwID)
	assert.Equal(t, uint32(42), hw.Serial)
}

func TestOpenMockParsesResponseDelay(t *testing.T) {
	tr, err := Open(context.Background(), "mock:?response_delay=10")
	require.NoError(t, err)
	defer tr.Close()

	d, _, err := Probe(context.Background(), tr, Options{})
	require.NoError(t, err)
	assert.Equal(t, "2x4HD", d.Name)
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "carrier-pigeon://nowhere")
	assert.Error(t, err)
}

func TestOpenRejectsUSBMissingVidPid(t *testing.T) {
	_, err := Open(context.Background(), "usb:1:10")
	assert.Error(t, err)
}

func TestOpenRejectsTCPMissingHost(t *testing.T) {
	_, err := Open(context.Background(), "tcp://")
	assert.Error(t, err)
}

func TestProbeForceKindSkipsFirmwareCheck(t *testing.T) {
	tr, err := Open(context.Background(), "mock:?serial=1")
	require.NoError(t, err)
	defer tr.Close()

	d, _, err := Probe(context.Background(), tr, Options{ForceKind: "2x4HD"})
	require.NoError(t, err)
	assert.Equal(t, "2x4HD", d.Name)
}

func TestProbeFailsWithExpiredContext(t *testing.T) {
	tr, err := Open(context.Background(), "mock:?serial=1")
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	_, _, err = Probe(ctx, tr, Options{})
	assert.Error(t, err)
}
