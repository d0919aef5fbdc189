package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/gousb"
)

// HIDReportSize is the fixed USB-HID report size every minidsp-family
// device uses (spec.md §4.1/§6).
const HIDReportSize = 64

// HID is the USB-HID transport, grounded on pkg/yardstick/device.go's
// gousb-backed endpoint wiring (claim interface, SetAutoDetach, paired
// IN/OUT endpoints, context-scoped ReadContext/WriteContext), adapted
// from one hardwired vendor/product id pair to the VID/PID supplied by
// a probed transport URL.
type HID struct {
	ctx *gousb.Context
	vid gousb.ID
	pid gousb.ID

	dev    *gousb.Device
	cfg    *gousb.Config
	iface  *gousb.Interface
	epIn   *gousb.InEndpoint
	epOut  *gousb.OutEndpoint

	mu sync.Mutex
	rf reframer
}

// NewHID constructs a HID transport bound to a specific USB context and
// vendor/product id. Call Open before use.
func NewHID(ctx *gousb.Context, vid, pid gousb.ID) *HID {
	return &HID{ctx: ctx, vid: vid, pid: pid}
}

func (h *HID) Open(ctx context.Context) error {
	dev, err := h.ctx.OpenDeviceWithVIDPID(h.vid, h.pid)
	if err != nil {
		return fmt.Errorf("transport: open usb device %v:%v: %w", h.vid, h.pid, err)
	}
	if dev == nil {
		return fmt.Errorf("transport: usb device %v:%v not found", h.vid, h.pid)
	}

	dev.SetAutoDetach(true)

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		return fmt.Errorf("transport: claim usb config: %w", err)
	}

	iface, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		return fmt.Errorf("transport: claim usb interface: %w", err)
	}

	epIn, err := iface.InEndpoint(1)
	if err != nil {
		iface.Close()
		cfg.Close()
		dev.Close()
		return fmt.Errorf("transport: open IN endpoint: %w", err)
	}

	epOut, err := iface.OutEndpoint(1)
	if err != nil {
		iface.Close()
		cfg.Close()
		dev.Close()
		return fmt.Errorf("transport: open OUT endpoint: %w", err)
	}

	h.dev, h.cfg, h.iface, h.epIn, h.epOut = dev, cfg, iface, epIn, epOut
	return nil
}

// WriteFrame pads frame to HIDReportSize with trailing 0xFF and prepends
// a 0x00 report-id byte, per spec.md §4.1.
func (h *HID) WriteFrame(ctx context.Context, frame []byte) error {
	if h.epOut == nil {
		return ErrClosed
	}
	if len(frame) > HIDReportSize {
		return fmt.Errorf("transport: frame of %d bytes exceeds HID report size %d", len(frame), HIDReportSize)
	}

	report := make([]byte, 1+HIDReportSize)
	report[0] = 0x00 // report id
	copy(report[1:], frame)
	for i := 1 + len(frame); i < len(report); i++ {
		report[i] = 0xFF
	}

	_, err := h.epOut.WriteContext(ctx, report)
	if err != nil {
		return fmt.Errorf("transport: hid write: %w", err)
	}
	return nil
}

// ReadFrame reads 64-byte HID reports, strips trailing 0xFF padding,
// and reframes the result into complete codec frames.
func (h *HID) ReadFrame(ctx context.Context) (Frame, error) {
	if h.epIn == nil {
		return Frame{}, ErrClosed
	}

	for {
		h.mu.Lock()
		payload, ok, err := h.rf.Next()
		h.mu.Unlock()
		if err != nil {
			continue
		}
		if ok {
			return Frame{Payload: payload, Unsolicited: isUnsolicited(payload)}, nil
		}

		buf := make([]byte, HIDReportSize)
		n, readErr := h.epIn.ReadContext(ctx, buf)
		if readErr != nil {
			return Frame{}, fmt.Errorf("transport: hid read: %w", readErr)
		}
		report := stripHIDPadding(buf[:n])
		h.mu.Lock()
		h.rf.Feed(report)
		h.mu.Unlock()
	}
}

// stripHIDPadding removes trailing 0xFF bytes from a HID report.
func stripHIDPadding(report []byte) []byte {
	end := len(report)
	for end > 0 && report[end-1] == 0xFF {
		end--
	}
	return report[:end]
}

func (h *HID) Close() error {
	if h.iface != nil {
		h.iface.Close()
	}
	if h.cfg != nil {
		h.cfg.Close()
	}
	if h.dev != nil {
		return h.dev.Close()
	}
	return nil
}
