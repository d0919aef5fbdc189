package registry

func init() {
	d := NewDescriptor(
		"DDRC-24", 16,
		FirmwareRange{Min: 1, Max: 8},
		2, 4,
		10, 10,
		2, 2,
		4096,
		false, 4, // Dirac Live convolution box; no classic compressor stage
		analogToslinkSpdifUsb, analogToslinkSpdifUsbCodes,
		96000,
	)
	d.Symbols = Build(CommonPlan(d))
	register(d)
}
