package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Override patches a single symbol's address, for the handful of
// products where the upstream symbol table is internally inconsistent
// (spec.md §9: "several products' compressor address ranges appear
// inconsistent in the upstream symbol tables... flag mismatches in
// tests rather than fixing them"). Overrides are an operator escape
// hatch, not a silent correction: ApplyOverrides only ever changes
// symbols explicitly named in the file.
type Override struct {
	Product string `yaml:"product"`
	Symbol  string `yaml:"symbol"`
	Address uint16 `yaml:"address"`
}

// OverrideFile is the on-disk YAML format consumed by LoadOverrides.
type OverrideFile struct {
	Overrides []Override `yaml:"overrides"`
}

// LoadOverrides reads and parses path as a YAML OverrideFile.
func LoadOverrides(path string) (*OverrideFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: failed to read overrides: %w", err)
	}
	var f OverrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("registry: failed to parse overrides: %w", err)
	}
	return &f, nil
}

// ApplyOverrides mutates the live registry entries named in f, replacing
// the addressed of the named symbols. It fails if an override names a
// product or symbol that does not exist, so a typo in the override file
// cannot silently no-op.
func ApplyOverrides(f *OverrideFile) error {
	mu.Lock()
	defer mu.Unlock()

	for _, o := range f.Overrides {
		d, ok := lookupByNameLocked(o.Product)
		if !ok {
			return fmt.Errorf("registry: override references unknown product %q", o.Product)
		}
		sym, ok := d.Symbols[o.Symbol]
		if !ok {
			return fmt.Errorf("registry: override references unknown symbol %q for %s", o.Symbol, o.Product)
		}
		sym.Address = o.Address
		d.Symbols[o.Symbol] = sym
	}
	return nil
}

func lookupByNameLocked(name string) (*Descriptor, bool) {
	for _, d := range registry {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}
