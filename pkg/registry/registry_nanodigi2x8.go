package registry

func init() {
	d := NewDescriptor(
		"nanoDigi2x8", 20,
		FirmwareRange{Min: 1, Max: 6},
		2, 8,
		10, 10,
		4, 2,
		0,
		false, 4,
		fullSourceSet, fullSourceSetCodes,
		96000,
	)
	d.Symbols = Build(CommonPlan(d))
	register(d)
}
