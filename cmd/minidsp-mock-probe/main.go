// minidsp-mock-probe: probe an in-memory mock device and print its
// resolved product descriptor.
//
// This mirrors cmd/lsys1's device-enumeration role, but against the
// mock: transport of spec.md §6 instead of real USB hardware, so the
// library can be exercised end-to-end without a device attached.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/minidsp-audio/minidsp-go/pkg/probe"
)

func main() {
	url := flag.String("url", "mock:?serial=1", "transport URL (usb:, tcp:, or mock:)")
	forceKind := flag.String("force-kind", "", "trust this registry product name, skipping firmware validation")
	timeout := flag.Duration("timeout", 3*time.Second, "probe timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	t, err := probe.Open(ctx, *url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer t.Close()

	d, hw, err := probe.Probe(ctx, t, probe.Options{ForceKind: *forceKind})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("product:      %s\n", d.Name)
	fmt.Printf("hw_id:        0x%02X\n", hw.HwID)
	fmt.Printf("dsp_version:  %d (range %d..%d)\n", hw.DspVersion, d.Firmware.Min, d.Firmware.Max)
	fmt.Printf("serial:       %d\n", hw.Serial)
	fmt.Printf("inputs:       %d\n", d.Inputs)
	fmt.Printf("outputs:      %d\n", d.Outputs)
	fmt.Printf("peq/input:    %d\n", d.PeqPerInput)
	fmt.Printf("peq/output:   %d\n", d.PeqPerOutput)
	fmt.Printf("fir capacity: %d\n", d.FirCapacity)
	fmt.Printf("compressor:   %v\n", d.HasCompressor)
	fmt.Printf("presets:      %d\n", d.Presets)
}
