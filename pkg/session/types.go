package session

import "github.com/minidsp-audio/minidsp-go/pkg/units"

// MasterStatus is the device's global preset/source/volume/mute/Dirac
// state, in logical (not wire) units.
type MasterStatus struct {
	Preset  uint8        `json:"preset"`
	Source  units.Source `json:"source"`
	Volume  float64      `json:"volume"`
	Mute    bool         `json:"mute"`
	Dirac   bool         `json:"dirac"`
}

// Status is the atomic snapshot returned by GetStatus (spec.md §4.7).
type Status struct {
	Master       MasterStatus `json:"master"`
	InputLevels  []float64    `json:"input_levels"`
	OutputLevels []float64    `json:"output_levels"`
}

// Biquad is the logical five-coefficient filter section session
// callers work with; it is units.Biquad by another name so pkg/session
// doesn't force its callers to import pkg/units for ordinary use.
type Biquad = units.Biquad

// Identity is the canonical cleared biquad (pass-through).
var Identity = units.Identity
