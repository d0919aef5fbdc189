package mockdevice

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/minidsp-audio/minidsp-go/pkg/registry"
	"github.com/minidsp-audio/minidsp-go/pkg/units"
)

// populateFactoryDefaults writes a sane power-on value into every
// symbol d declares plus its meter blocks, so a freshly opened Device
// reads back plausible data before any write ever reaches it.
func populateFactoryDefaults(d *registry.Descriptor, mem *[65536]byte) {
	for _, sym := range d.Symbols {
		writeDefault(mem, sym)
	}

	// Biquads are addressed as five independent Float32LE symbols
	// (b0..a2), each zeroed above; b0 needs 1.0 instead so every PEQ
	// and crossover slot starts life as the identity filter.
	for name, sym := range d.Symbols {
		if strings.HasSuffix(name, ".b0") {
			binary.LittleEndian.PutUint32(mem[sym.Address:], math.Float32bits(1))
		}
	}

	for i := 0; i < d.Inputs; i++ {
		addr := int(d.InputMeterAddr) + i*4
		binary.LittleEndian.PutUint32(mem[addr:addr+4], math.Float32bits(-90.0))
	}
	for i := 0; i < d.Outputs; i++ {
		addr := int(d.OutputMeterAddr) + i*4
		binary.LittleEndian.PutUint32(mem[addr:addr+4], math.Float32bits(-90.0))
	}
}

// writeDefault writes the zero value appropriate to sym's encoding.
// Booleans default to 0x02, the Set pair's false byte, which Bool.Decode
// also reads as false for bypass-pair symbols; gains default to 0dB,
// sources to the table's first declared code.
func writeDefault(mem *[65536]byte, sym registry.Symbol) {
	switch sym.Encoding {
	case units.TagFloat32LE:
		binary.LittleEndian.PutUint32(mem[sym.Address:], math.Float32bits(0))
	case units.TagInt16Gain:
		mem[sym.Address] = 0x00 // 0dB
	case units.TagInt32Fixed:
		binary.BigEndian.PutUint32(mem[sym.Address:], 0)
	case units.TagBool:
		mem[sym.Address] = 0x02 // false
	case units.TagEnumSource:
		mem[sym.Address] = 0x00
	case units.TagDuration:
		binary.LittleEndian.PutUint32(mem[sym.Address:], 0)
	case units.TagUint8:
		mem[sym.Address] = 0x00
	case units.TagBiquadCoeffs5:
		// not currently emitted by the registry builder; biquads are
		// five independent Float32LE symbols instead (see the .b0 pass
		// in populateFactoryDefaults).
	case units.TagFirTapBlock:
		// zero taps is already the array's zero value.
	}
}
