// Package registry is the device spec registry (spec.md §4.3): one
// Descriptor per supported product, each enumerating every addressable
// symbol's firmware address and wire encoding. A registry entry is pure
// data, generated from the vendor's plugin XML in the real product;
// here each registry_<product>.go file plays the role of that generated
// artifact, grounded on the teacher's flat RegisterMap + address-const
// style in pkg/registers/registers.go, generalized to a symbol table
// because address derivation is not formulaic across products.
package registry

import (
	"fmt"
	"sync"

	"github.com/minidsp-audio/minidsp-go/pkg/units"
)

// Symbol is one addressable parameter: a firmware memory address and
// the wire encoding used to read/write it.
type Symbol struct {
	Address  uint16
	Encoding units.Tag
}

// FirmwareRange is an inclusive [Min, Max] range of allowed DSP firmware
// versions for a product.
type FirmwareRange struct {
	Min, Max uint8
}

// Contains reports whether version falls within r.
func (r FirmwareRange) Contains(version uint8) bool {
	return version >= r.Min && version <= r.Max
}

// Descriptor is the immutable, per-product record of spec.md §3
// "Product descriptor".
type Descriptor struct {
	Name     string
	HwID     byte
	Firmware FirmwareRange

	Inputs, Outputs                     int
	PeqPerInput, PeqPerOutput            int
	CrossoverGroups, CrossoverPerGroup   int
	FirCapacity                         int
	HasCompressor                       bool
	Presets                             int
	Sources                             []units.Source
	SampleRateHz                        float64

	// Symbols maps a canonical compositional name (spec.md §4.3) to
	// its resolved address and encoding.
	Symbols map[string]Symbol

	// SourceCodes is the product-specific Source -> wire-code table
	// consumed by units.Enum.
	SourceCodes map[units.Source]byte

	// InputMeterAddr/OutputMeterAddr are the base addresses of the
	// contiguous Inputs/Outputs-long float32 level-meter blocks read by
	// ReadFloats (spec.md §4.7 get_status).
	InputMeterAddr, OutputMeterAddr uint16
}

// ErrUnknownSymbol is returned by Resolve when path is not declared by
// the descriptor. Per spec.md §3 this is a programmer error, not a
// device error, and callers should treat it as such (e.g. panic in a
// generated binding) rather than retrying.
var ErrUnknownSymbol = fmt.Errorf("registry: unknown symbol")

// Resolve looks up path (e.g. "input.0.peq.3.b0") in d's symbol table.
func (d *Descriptor) Resolve(path string) (Symbol, error) {
	sym, ok := d.Symbols[path]
	if !ok {
		return Symbol{}, fmt.Errorf("%w: %q not declared for %s", ErrUnknownSymbol, path, d.Name)
	}
	return sym, nil
}

// MustResolve is Resolve but panics on failure, for call sites that have
// already validated the path is one of the descriptor's fixed, compiled
// names (e.g. "master.volume").
func (d *Descriptor) MustResolve(path string) Symbol {
	sym, err := d.Resolve(path)
	if err != nil {
		panic(err)
	}
	return sym
}

// GainEncoder returns the Int16Gain encoder for this product's volume
// and channel gain parameters.
func (d *Descriptor) GainEncoder() units.Int16Gain {
	return units.NewInt16Gain(units.DefaultGainTable)
}

// SourceEncoder returns this product's Source enum encoder.
func (d *Descriptor) SourceEncoder() units.Enum {
	return units.Enum{Codes: d.SourceCodes}
}

// DurationEncoder returns this product's delay-duration encoder.
func (d *Descriptor) DurationEncoder() units.Duration {
	return units.Duration{SampleRateHz: d.SampleRateHz}
}

// NewDescriptor builds an empty (symbol-less) Descriptor from a
// product's shape. Each registry_<product>.go file fills Symbols via
// Build with its own AddressPlan and then calls register.
func NewDescriptor(name string, hwID byte, fw FirmwareRange, inputs, outputs, peqPerInput, peqPerOutput,
	crossoverGroups, crossoverPerGroup, firCapacity int, hasCompressor bool, presets int,
	sources []units.Source, sourceCodes map[units.Source]byte, sampleRateHz float64) *Descriptor {
	return &Descriptor{
		Name:              name,
		HwID:              hwID,
		Firmware:          fw,
		Inputs:            inputs,
		Outputs:           outputs,
		PeqPerInput:       peqPerInput,
		PeqPerOutput:      peqPerOutput,
		CrossoverGroups:   crossoverGroups,
		CrossoverPerGroup: crossoverPerGroup,
		FirCapacity:       firCapacity,
		HasCompressor:     hasCompressor,
		Presets:           presets,
		Sources:           sources,
		SampleRateHz:      sampleRateHz,
		SourceCodes:       sourceCodes,
		Symbols:           map[string]Symbol{},
	}
}

var (
	mu       sync.RWMutex
	registry = map[byte]*Descriptor{}
)

// register is called from each product file's init().
func register(d *Descriptor) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[d.HwID]; exists {
		panic(fmt.Sprintf("registry: duplicate hw_id 0x%02X for %s", d.HwID, d.Name))
	}
	registry[d.HwID] = d
}

// Lookup resolves a registry entry by hw_id, as returned by
// ReadHardwareId (spec.md §4.8).
func Lookup(hwID byte) (*Descriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := registry[hwID]
	return d, ok
}

// LookupByName resolves a registry entry by product name, for
// force_kind (spec.md §4.7).
func LookupByName(name string) (*Descriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	for _, d := range registry {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// All returns every registered descriptor, for tests and discovery
// tooling.
func All() []*Descriptor {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]*Descriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	return out
}
