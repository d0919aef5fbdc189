package registry

func init() {
	d := NewDescriptor(
		"2x4HD", 10,
		FirmwareRange{Min: 1, Max: 20},
		2, 4, // inputs, outputs
		10, 10, // peq per input, per output
		2, 2, // crossover groups, biquads per group
		4096, // FIR tap capacity per output
		false, 4, // compressor, presets
		analogToslinkSpdifUsb, analogToslinkSpdifUsbCodes,
		96000,
	)
	d.Symbols = Build(AddressPlan{
		Descriptor: d,

		InputBase:   0x0080,
		InputStride: 0x0010,

		InputPeqBase:        0x0100,
		InputPeqInputStride: 0x00F0,
		InputPeqSlotStride:  0x0018,

		RoutingBase:         0x0400,
		RoutingInputStride:  0x0040,
		RoutingOutputStride: 0x0008,

		OutputBase:   0x0800,
		OutputStride: 0x0020,

		OutputPeqBase:         0x0A00,
		OutputPeqOutputStride: 0x00F0,
		OutputPeqSlotStride:   0x0018,

		CrossoverBase:         0x1200,
		CrossoverOutputStride: 0x0060,
		CrossoverGroupStride:  0x0030,
		CrossoverSlotStride:   0x0018,

		FirBase:         0x2000,
		FirOutputStride: 0x0400,
		FirTapStride:    0x0004,

		MasterBase: 0x0000,

		InputMeterBase:  0x7000,
		OutputMeterBase: 0x7100,
	})
	register(d)
}
