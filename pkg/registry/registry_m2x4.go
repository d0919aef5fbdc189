package registry

func init() {
	d := NewDescriptor(
		"M2x4", 19,
		FirmwareRange{Min: 1, Max: 5},
		2, 4,
		5, 5,
		0, 0, // no dedicated crossover section on the entry-level 2x4
		0,
		false, 4,
		analogToslinkSpdifUsb, analogToslinkSpdifUsbCodes,
		48000,
	)
	d.Symbols = Build(CommonPlan(d))
	register(d)
}
