// Package probe resolves a transport URL into an open transport.Transport
// and validates a freshly opened device against the registry, grounded
// on pkg/yardstick/selector.go's DeviceSelector string-dispatch idiom
// (there: "", "serial", "bus:addr", "#N"; here: the three transport
// schemes of spec.md §6).
package probe

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/gousb"

	"github.com/minidsp-audio/minidsp-go/pkg/mockdevice"
	"github.com/minidsp-audio/minidsp-go/pkg/mux"
	"github.com/minidsp-audio/minidsp-go/pkg/protocol"
	"github.com/minidsp-audio/minidsp-go/pkg/registry"
	"github.com/minidsp-audio/minidsp-go/pkg/transport"
)

// DefaultMockProduct is the registry product a bare mock: URL spins up,
// since the URL grammar of spec.md §6 carries no product hint — only
// serial and response_delay. Every worked example in spec.md §8 probes
// a mock 2x4HD, so that is the default; a caller needing a different
// product should construct mockdevice.New directly.
const DefaultMockProduct = "2x4HD"

// Open parses url and returns an already-opened transport.Transport for
// one of the three schemes spec.md §6 declares:
//
//	usb:<bus>:<dev>?vid=<V>&pid=<P>
//	tcp://<host>:<port>[?name=<urlencoded>]
//	mock:?serial=<uint>[&response_delay=<ms>]
//
// Open itself only establishes the transport; call Probe next to
// validate the device against the registry.
func Open(ctx context.Context, rawURL string) (transport.Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("probe: parse url %q: %w", rawURL, err)
	}

	switch u.Scheme {
	case "usb":
		return openUSB(ctx, u)
	case "tcp":
		return openTCP(ctx, u)
	case "mock":
		return openMock(u)
	default:
		return nil, fmt.Errorf("probe: unknown transport scheme %q", u.Scheme)
	}
}

// hidTransport wraps transport.HID so Close also tears down the gousb
// context probe.Open allocated for it — the HID transport itself is
// bound to a caller-supplied *gousb.Context and has no opinion on who
// owns it (spec.md §4.5).
type hidTransport struct {
	*transport.HID
	usbCtx *gousb.Context
}

func (h *hidTransport) Close() error {
	err := h.HID.Close()
	h.usbCtx.Close()
	return err
}

func openUSB(ctx context.Context, u *url.URL) (transport.Transport, error) {
	// u.Opaque carries "<bus>:<dev>" for a scheme with no "//" authority.
	busDev := u.Opaque
	if busDev == "" {
		return nil, fmt.Errorf("probe: usb url %q missing bus:dev", u.String())
	}

	vidStr := u.Query().Get("vid")
	pidStr := u.Query().Get("pid")
	if vidStr == "" || pidStr == "" {
		return nil, fmt.Errorf("probe: usb url %q missing vid/pid query params", u.String())
	}
	vid, err := strconv.ParseUint(vidStr, 0, 16)
	if err != nil {
		return nil, fmt.Errorf("probe: invalid vid %q: %w", vidStr, err)
	}
	pid, err := strconv.ParseUint(pidStr, 0, 16)
	if err != nil {
		return nil, fmt.Errorf("probe: invalid pid %q: %w", pidStr, err)
	}

	usbCtx := gousb.NewContext()
	hid := transport.NewHID(usbCtx, gousb.ID(vid), gousb.ID(pid))
	t := &hidTransport{HID: hid, usbCtx: usbCtx}
	if err := t.Open(ctx); err != nil {
		usbCtx.Close()
		return nil, err
	}
	return t, nil
}

func openMock(u *url.URL) (transport.Transport, error) {
	d, ok := registry.LookupByName(DefaultMockProduct)
	if !ok {
		return nil, fmt.Errorf("probe: default mock product %q not in registry", DefaultMockProduct)
	}

	opts := mockdevice.Options{Descriptor: d}
	if s := u.Query().Get("serial"); s != "" {
		serial, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("probe: invalid mock serial %q: %w", s, err)
		}
		opts.Serial = uint32(serial)
	}
	if s := u.Query().Get("response_delay"); s != "" {
		ms, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("probe: invalid mock response_delay %q: %w", s, err)
		}
		opts.ResponseDelay = time.Duration(ms) * time.Millisecond
	}

	return mockdevice.New(opts), nil
}

func openTCP(ctx context.Context, u *url.URL) (transport.Transport, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("probe: tcp url %q missing host:port", u.String())
	}
	t := transport.NewTCP(u.Host)
	if err := t.Open(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Options configures Probe.
type Options struct {
	// ForceKind skips firmware-range validation, trusting the named
	// registry product (spec.md §4.8).
	ForceKind string
}

// ErrUnsupportedFirmware mirrors session.ErrUnsupportedFirmware; Probe
// does not import pkg/session (it is session.Open's lower-level
// building block, not a consumer of it) so it declares its own
// sentinel rather than create an import cycle.
var ErrUnsupportedFirmware = fmt.Errorf("probe: unsupported firmware")

// Probe starts a multiplexer on t just long enough to send one
// ReadHardwareId, resolves the registry entry for the returned hw_id,
// and enforces the firmware-range/force_kind rule of spec.md §4.8. It
// shuts the multiplexer down before returning, which also closes t, so
// a later session.Open needs a freshly opened transport (session.Open
// probes again through its own multiplexer — Probe is a standalone
// discovery-time check, e.g. for a "list compatible devices" tool, not a
// precursor every Open call must make).
func Probe(ctx context.Context, t transport.Transport, opts Options) (*registry.Descriptor, protocol.HardwareID, error) {
	mx := mux.New(t)
	if err := mx.Start(ctx); err != nil {
		return nil, protocol.HardwareID{}, fmt.Errorf("probe: start multiplexer: %w", err)
	}
	defer mx.Close()

	resp, err := mx.Submit(ctx, protocol.ReadHardwareId{})
	if err != nil {
		return nil, protocol.HardwareID{}, fmt.Errorf("probe: read hardware id: %w", err)
	}
	hw, err := protocol.DecodeReadHardwareIdResponse(resp.Payload)
	if err != nil {
		return nil, protocol.HardwareID{}, err
	}

	if opts.ForceKind != "" {
		d, ok := registry.LookupByName(opts.ForceKind)
		if !ok {
			return nil, hw, fmt.Errorf("probe: force_kind %q not in registry", opts.ForceKind)
		}
		return d, hw, nil
	}

	d, ok := registry.Lookup(hw.HwID)
	if !ok {
		return nil, hw, fmt.Errorf("%w: unknown hw_id 0x%02X", ErrUnsupportedFirmware, hw.HwID)
	}
	if !d.Firmware.Contains(hw.DspVersion) {
		return nil, hw, fmt.Errorf("%w: %s dsp_version %d outside %d..%d",
			ErrUnsupportedFirmware, d.Name, hw.DspVersion, d.Firmware.Min, d.Firmware.Max)
	}
	return d, hw, nil
}
