package registry

func init() {
	d := NewDescriptor(
		"Flex", 11,
		FirmwareRange{Min: 1, Max: 15},
		2, 4,
		10, 10,
		2, 2,
		4096,
		false, 4,
		analogToslinkSpdifUsb, analogToslinkSpdifUsbCodes,
		96000,
	)
	d.Symbols = Build(CommonPlan(d))
	register(d)
}
