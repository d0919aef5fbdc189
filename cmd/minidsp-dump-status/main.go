// minidsp-dump-status: connect to a device and dump its current status
// to a JSON snapshot file.
//
// This mirrors cmd/ys1-dump-config's connect/read/save shape, generalized
// from one fixed radio register struct to session.GetStatus's full
// master/input/output object model.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/minidsp-audio/minidsp-go/pkg/probe"
	"github.com/minidsp-audio/minidsp-go/pkg/session"
)

func main() {
	transportURL := flag.String("url", "mock:?serial=1", "transport URL (usb:, tcp:, or mock:)")
	forceKind := flag.String("force-kind", "", "trust this registry product name, skipping firmware validation")
	outputFile := flag.String("o", "", "output file path (default: stdout)")
	timeout := flag.Duration("timeout", 5*time.Second, "connect + status timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	t, err := probe.Open(ctx, *transportURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer t.Close()

	s, err := session.Open(ctx, t, session.Options{ForceKind: *forceKind})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *outputFile == "" {
		printSnapshot(snap)
		return
	}
	if err := session.SaveSnapshot(snap, *outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Status saved to %s\n", *outputFile)
}

func printSnapshot(snap session.Snapshot) {
	fmt.Printf("product:   %s (hw_id 0x%02X)\n", snap.Product, snap.HwID)
	fmt.Printf("captured:  %s\n", snap.Timestamp.Format(time.RFC3339))
	fmt.Printf("preset:    %d\n", snap.Status.Master.Preset)
	fmt.Printf("source:    %s\n", snap.Status.Master.Source)
	fmt.Printf("volume:    %.1f dB\n", snap.Status.Master.Volume)
	fmt.Printf("mute:      %v\n", snap.Status.Master.Mute)
	fmt.Printf("dirac:     %v\n", snap.Status.Master.Dirac)
	fmt.Printf("in levels:  %v\n", snap.Status.InputLevels)
	fmt.Printf("out levels: %v\n", snap.Status.OutputLevels)
}
