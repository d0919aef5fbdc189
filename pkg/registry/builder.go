package registry

import (
	"fmt"

	"github.com/minidsp-audio/minidsp-go/pkg/units"
)

// AddressPlan is the per-product base-address table a registry_*.go
// file supplies to build. Real products extract these from the vendor
// plugin's XML (spec.md §4.3); each product's bases and strides differ
// and are not derivable from one another, which is why every
// registry_<product>.go file declares its own plan rather than sharing
// formulaic offsets.
type AddressPlan struct {
	Descriptor *Descriptor

	InputBase       uint16 // input.<i>.{gain,mute}, stride InputStride
	InputStride     uint16
	InputPeqBase    uint16 // input.<i>.peq.<k>.*, stride InputPeqInputStride/InputPeqSlotStride
	InputPeqInputStride uint16
	InputPeqSlotStride  uint16
	RoutingBase         uint16 // input.<i>.routing.<o>.*, stride RoutingInputStride/RoutingOutputStride
	RoutingInputStride  uint16
	RoutingOutputStride uint16

	OutputBase          uint16 // output.<j>.{gain,mute,invert,delay}, stride OutputStride
	OutputStride        uint16
	OutputPeqBase       uint16
	OutputPeqOutputStride uint16
	OutputPeqSlotStride   uint16
	CrossoverBase         uint16
	CrossoverOutputStride uint16
	CrossoverGroupStride  uint16
	CrossoverSlotStride   uint16
	CompressorBase        uint16
	CompressorOutputStride uint16
	FirBase               uint16
	FirOutputStride       uint16
	FirTapStride          uint16

	MasterBase uint16 // master.{volume,mute,source,preset,dirac}, consecutive bytes

	InputMeterBase  uint16 // Inputs-long contiguous float32 block
	OutputMeterBase uint16 // Outputs-long contiguous float32 block
}

// field offsets within one gain/mute-style record and one peq record.
const (
	offGain   = 0
	offMute   = 1
	offInvert = 2
	offDelay  = 3

	offB0     = 0
	offB1     = 4
	offB2     = 8
	offA1     = 12
	offA2     = 16
	offBypass = 20

	offRouteEnable = 0
	offRouteGain   = 1

	offCompBypass    = 0
	offCompThreshold = 1
	offCompRatio     = 5
	offCompAttack    = 9
	offCompRelease   = 13

	offFirBypass = 0
)

// Build assembles the full compositional symbol table for plan,
// following the name layout of spec.md §4.3.
func Build(plan AddressPlan) map[string]Symbol {
	d := plan.Descriptor
	d.InputMeterAddr = plan.InputMeterBase
	d.OutputMeterAddr = plan.OutputMeterBase
	syms := map[string]Symbol{}

	for i := 0; i < d.Inputs; i++ {
		base := plan.InputBase + uint16(i)*plan.InputStride
		syms[fmt.Sprintf("input.%d.gain", i)] = Symbol{base + offGain, units.TagInt16Gain}
		syms[fmt.Sprintf("input.%d.mute", i)] = Symbol{base + offMute, units.TagBool}

		for k := 0; k < d.PeqPerInput; k++ {
			peqBase := plan.InputPeqBase + uint16(i)*plan.InputPeqInputStride + uint16(k)*plan.InputPeqSlotStride
			addBiquadSymbols(syms, fmt.Sprintf("input.%d.peq.%d", i, k), peqBase)
		}

		for o := 0; o < d.Outputs; o++ {
			routeBase := plan.RoutingBase + uint16(i)*plan.RoutingInputStride + uint16(o)*plan.RoutingOutputStride
			syms[fmt.Sprintf("input.%d.routing.%d.enable", i, o)] = Symbol{routeBase + offRouteEnable, units.TagBool}
			syms[fmt.Sprintf("input.%d.routing.%d.gain", i, o)] = Symbol{routeBase + offRouteGain, units.TagInt16Gain}
		}
	}

	for j := 0; j < d.Outputs; j++ {
		base := plan.OutputBase + uint16(j)*plan.OutputStride
		syms[fmt.Sprintf("output.%d.gain", j)] = Symbol{base + offGain, units.TagInt16Gain}
		syms[fmt.Sprintf("output.%d.mute", j)] = Symbol{base + offMute, units.TagBool}
		syms[fmt.Sprintf("output.%d.invert", j)] = Symbol{base + offInvert, units.TagBool}
		syms[fmt.Sprintf("output.%d.delay", j)] = Symbol{base + offDelay, units.TagDuration}

		for k := 0; k < d.PeqPerOutput; k++ {
			peqBase := plan.OutputPeqBase + uint16(j)*plan.OutputPeqOutputStride + uint16(k)*plan.OutputPeqSlotStride
			addBiquadSymbols(syms, fmt.Sprintf("output.%d.peq.%d", j, k), peqBase)
		}

		for g := 0; g < d.CrossoverGroups; g++ {
			for k := 0; k < d.CrossoverPerGroup; k++ {
				xoBase := plan.CrossoverBase +
					uint16(j)*plan.CrossoverOutputStride +
					uint16(g)*plan.CrossoverGroupStride +
					uint16(k)*plan.CrossoverSlotStride
				addBiquadSymbols(syms, fmt.Sprintf("output.%d.crossover.%d.%d", j, g, k), xoBase)
			}
		}

		if d.HasCompressor {
			compBase := plan.CompressorBase + uint16(j)*plan.CompressorOutputStride
			syms[fmt.Sprintf("output.%d.compressor.bypass", j)] = Symbol{compBase + offCompBypass, units.TagBool}
			syms[fmt.Sprintf("output.%d.compressor.threshold", j)] = Symbol{compBase + offCompThreshold, units.TagFloat32LE}
			syms[fmt.Sprintf("output.%d.compressor.ratio", j)] = Symbol{compBase + offCompRatio, units.TagFloat32LE}
			syms[fmt.Sprintf("output.%d.compressor.attack", j)] = Symbol{compBase + offCompAttack, units.TagDuration}
			syms[fmt.Sprintf("output.%d.compressor.release", j)] = Symbol{compBase + offCompRelease, units.TagDuration}
		}

		if d.FirCapacity > 0 {
			firBase := plan.FirBase + uint16(j)*plan.FirOutputStride
			syms[fmt.Sprintf("output.%d.fir.bypass", j)] = Symbol{firBase + offFirBypass, units.TagBool}
			syms[fmt.Sprintf("output.%d.fir.taps", j)] = Symbol{firBase + plan.FirTapStride, units.TagFirTapBlock}
		}
	}

	syms["master.volume"] = Symbol{plan.MasterBase + 0, units.TagInt16Gain}
	syms["master.mute"] = Symbol{plan.MasterBase + 1, units.TagBool}
	syms["master.source"] = Symbol{plan.MasterBase + 2, units.TagEnumSource}
	syms["master.preset"] = Symbol{plan.MasterBase + 3, units.TagUint8}
	syms["master.dirac"] = Symbol{plan.MasterBase + 4, units.TagBool}

	return syms
}

// CommonPlan returns the address layout shared by every product except
// 2x4HD (which predates it and keeps its own tighter, hand-extracted
// layout). It is spaced generously enough to avoid section overlap for
// any product in the registry (up to 12 channels, 10 PEQ slots, 4
// crossover groups of 4 biquads).
func CommonPlan(d *Descriptor) AddressPlan {
	return AddressPlan{
		Descriptor: d,

		InputBase:   0x0100,
		InputStride: 0x0010,

		InputPeqBase:        0x1000,
		InputPeqInputStride: 0x0100,
		InputPeqSlotStride:  0x0018,

		RoutingBase:         0x2000,
		RoutingInputStride:  0x0100,
		RoutingOutputStride: 0x0010,

		OutputBase:   0x3000,
		OutputStride: 0x0020,

		OutputPeqBase:         0x4000,
		OutputPeqOutputStride: 0x0100,
		OutputPeqSlotStride:   0x0018,

		CrossoverBase:         0x5000,
		CrossoverOutputStride: 0x0200,
		CrossoverGroupStride:  0x0060,
		CrossoverSlotStride:   0x0018,

		CompressorBase:         0x7000,
		CompressorOutputStride: 0x0020,

		FirBase:         0x8000,
		FirOutputStride: 0x0400,
		FirTapStride:    0x0004,

		MasterBase: 0x0000,

		InputMeterBase:  0xE000,
		OutputMeterBase: 0xE100,
	}
}

func addBiquadSymbols(syms map[string]Symbol, prefix string, base uint16) {
	syms[prefix+".b0"] = Symbol{base + offB0, units.TagFloat32LE}
	syms[prefix+".b1"] = Symbol{base + offB1, units.TagFloat32LE}
	syms[prefix+".b2"] = Symbol{base + offB2, units.TagFloat32LE}
	syms[prefix+".a1"] = Symbol{base + offA1, units.TagFloat32LE}
	syms[prefix+".a2"] = Symbol{base + offA2, units.TagFloat32LE}
	syms[prefix+".bypass"] = Symbol{base + offBypass, units.TagBool}
}
