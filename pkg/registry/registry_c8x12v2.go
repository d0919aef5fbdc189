package registry

func init() {
	d := NewDescriptor(
		"C8x12v2", 18,
		FirmwareRange{Min: 1, Max: 6},
		8, 12,
		6, 6,
		4, 4,
		0, // commercial C-DSP installs run fixed DSP programs, no user FIR bank
		true, 4,
		fullSourceSet, fullSourceSetCodes,
		48000,
	)
	d.Symbols = Build(CommonPlan(d))
	register(d)
}
