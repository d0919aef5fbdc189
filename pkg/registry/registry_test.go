package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownHwIDs(t *testing.T) {
	for _, hwID := range []byte{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20} {
		d, ok := Lookup(hwID)
		require.True(t, ok, "hw_id 0x%02X should be registered", hwID)
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.Symbols)
	}
}

func TestLookupUnknownHwID(t *testing.T) {
	_, ok := Lookup(0xFE)
	assert.False(t, ok)
}

func TestProbeSelectionMatchesEveryEntry(t *testing.T) {
	for _, d := range All() {
		got, ok := Lookup(d.HwID)
		require.True(t, ok)
		assert.Same(t, d, got)
	}
}

func TestResolveKnownSymbol(t *testing.T) {
	d, ok := Lookup(10)
	require.True(t, ok)

	sym, err := d.Resolve("input.0.peq.3.b0")
	require.NoError(t, err)
	assert.Equal(t, "Float32LE", string(sym.Encoding))
}

func TestResolveUnknownSymbolIsProgrammerError(t *testing.T) {
	d, ok := Lookup(10)
	require.True(t, ok)

	_, err := d.Resolve("input.99.peq.0.b0")
	assert.True(t, errors.Is(err, ErrUnknownSymbol))
}

func TestFirmwareRangeContains(t *testing.T) {
	r := FirmwareRange{Min: 1, Max: 20}
	assert.True(t, r.Contains(1))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(0))
	assert.False(t, r.Contains(21))
}

func TestNoSymbolAddressCollisionWithinDescriptor(t *testing.T) {
	for _, d := range All() {
		seen := map[uint16]string{}
		for name, sym := range d.Symbols {
			if other, exists := seen[sym.Address]; exists {
				t.Errorf("%s: address 0x%04X used by both %q and %q", d.Name, sym.Address, other, name)
			}
			seen[sym.Address] = name
		}
	}
}

func TestApplyOverridesRejectsUnknownSymbol(t *testing.T) {
	err := ApplyOverrides(&OverrideFile{Overrides: []Override{
		{Product: "2x4HD", Symbol: "does.not.exist", Address: 0x1234},
	}})
	assert.Error(t, err)
}

func TestApplyOverridesPatchesKnownSymbol(t *testing.T) {
	d, ok := Lookup(10)
	require.True(t, ok)
	before := d.Symbols["master.volume"].Address

	err := ApplyOverrides(&OverrideFile{Overrides: []Override{
		{Product: "2x4HD", Symbol: "master.volume", Address: before + 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, before+1, d.Symbols["master.volume"].Address)

	// restore for other tests in this process
	require.NoError(t, ApplyOverrides(&OverrideFile{Overrides: []Override{
		{Product: "2x4HD", Symbol: "master.volume", Address: before},
	}}))
}
