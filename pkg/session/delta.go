package session

import "github.com/minidsp-audio/minidsp-go/pkg/units"

// ConfigDelta is a partial object matching the config delta format of
// spec.md §6: every field is optional, so ApplyConfig only touches
// parameters the caller actually named.
type ConfigDelta struct {
	MasterStatus *MasterStatusDelta `json:"master_status,omitempty"`
	Inputs       []InputDelta       `json:"inputs,omitempty"`
	Outputs      []OutputDelta      `json:"outputs,omitempty"`
}

// MasterStatusDelta is the optional-field master object of a ConfigDelta.
type MasterStatusDelta struct {
	Preset *uint8        `json:"preset,omitempty"`
	Source *units.Source `json:"source,omitempty"`
	Volume *float64      `json:"volume,omitempty"`
	Mute   *bool         `json:"mute,omitempty"`
	Dirac  *bool         `json:"dirac,omitempty"`
}

// PeqDelta sets one biquad slot's coefficients and/or bypass flag.
type PeqDelta struct {
	Index  int     `json:"index"`
	Coeff  *Biquad `json:"coeff,omitempty"`
	Bypass *bool   `json:"bypass,omitempty"`
}

// RoutingDelta sets one input->output routing cell.
type RoutingDelta struct {
	Index int      `json:"index"` // output index
	Gain  *float64 `json:"gain,omitempty"`
	Mute  *bool    `json:"mute,omitempty"`
}

// InputDelta is one input channel's partial update.
type InputDelta struct {
	Index   int            `json:"index"`
	Gain    *float64       `json:"gain,omitempty"`
	Mute    *bool          `json:"mute,omitempty"`
	Peq     []PeqDelta     `json:"peq,omitempty"`
	Routing []RoutingDelta `json:"routing,omitempty"`
}

// CompressorDelta is an output's compressor stage partial update.
type CompressorDelta struct {
	Bypass    *bool    `json:"bypass,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Ratio     *float64 `json:"ratio,omitempty"`
	Attack    *float64 `json:"attack,omitempty"`
	Release   *float64 `json:"release,omitempty"`
}

// FirDelta is an output's FIR stage partial update. Setting Coefficients
// re-uploads the full tap bank via UploadFIR's chunking/bypass dance;
// Bypass alone just flips the bypass flag.
type FirDelta struct {
	Bypass       *bool     `json:"bypass,omitempty"`
	Coefficients []float32 `json:"coefficients,omitempty"`
}

// OutputDelta is one output channel's partial update. Crossover entries
// address a flattened (group, slot) pair: Index = group*PerGroup + slot.
type OutputDelta struct {
	Index      int              `json:"index"`
	Gain       *float64         `json:"gain,omitempty"`
	Mute       *bool            `json:"mute,omitempty"`
	Invert     *bool            `json:"invert,omitempty"`
	Delay      *float64         `json:"delay,omitempty"`
	Peq        []PeqDelta       `json:"peq,omitempty"`
	Crossover  []PeqDelta       `json:"crossover,omitempty"`
	Compressor *CompressorDelta `json:"compressor,omitempty"`
	Fir        *FirDelta        `json:"fir,omitempty"`
}
