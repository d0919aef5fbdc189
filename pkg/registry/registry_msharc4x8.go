package registry

func init() {
	d := NewDescriptor(
		"msharc4x8", 12,
		FirmwareRange{Min: 1, Max: 10},
		4, 8,
		6, 6,
		4, 4,
		0, // miniSHARC has no user-loadable FIR bank
		true, 4,
		fullSourceSet, fullSourceSetCodes,
		96000,
	)
	d.Symbols = Build(CommonPlan(d))
	register(d)
}
