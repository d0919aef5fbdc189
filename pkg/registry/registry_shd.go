package registry

func init() {
	d := NewDescriptor(
		"SHD", 15,
		FirmwareRange{Min: 1, Max: 30},
		8, 8,
		10, 10,
		4, 4,
		4096,
		true, 4,
		fullSourceSet, fullSourceSetCodes,
		96000,
	)
	d.Symbols = Build(CommonPlan(d))
	register(d)
}
