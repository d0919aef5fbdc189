package registry

func init() {
	d := NewDescriptor(
		"DDRC-88BM", 17,
		FirmwareRange{Min: 1, Max: 8},
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
