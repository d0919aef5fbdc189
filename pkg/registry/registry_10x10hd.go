package registry

func init() {
	d := NewDescriptor(
		"10x10hd", 14,
		FirmwareRange{Min: 1, Max: 12},
		10, 10,
		10, 10,
		2, 4,
		512,
		true, 4,
		fullSourceSet, fullSourceSetCodes,
		96000,
	)
	d.Symbols = Build(CommonPlan(d))
	register(d)
}
