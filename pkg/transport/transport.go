// Package transport is the narrow, frame-oriented byte channel contract
// of spec.md §4.5: open/write-frame/read-frame/close, implemented by
// HID, TCP and (in pkg/mockdevice) an in-memory backend, none of which
// leak their own packetization above this interface. Grounded on the
// teacher's gousb-backed Device in pkg/yardstick/device.go, generalized
// from one hardwired USB implementation to an interface with swappable
// backends.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by any operation on a Transport after Close has
// been called, or when the underlying channel closes unexpectedly.
var ErrClosed = errors.New("transport: closed")

// Frame is a single decoded wire frame (already stripped of length
// framing and CRC by pkg/codec) together with whether it is a solicited
// response or an unsolicited event (spec.md §4.5).
type Frame struct {
	Payload   []byte
	Unsolicited bool
}

// Transport is a single-producer/single-consumer byte-frame channel to
// one device instance. Concurrency safety across multiple callers is
// the multiplexer's job (pkg/mux), not the transport's (spec.md §4.5).
type Transport interface {
	// Open establishes the underlying channel. It is safe to call at
	// most once per Transport value.
	Open(ctx context.Context) error

	// WriteFrame sends one already-framed (LEN|PAYLOAD|CRC8) buffer.
	WriteFrame(ctx context.Context, frame []byte) error

	// ReadFrame blocks for the next complete frame, returning it
	// already stripped to its codec-level payload plus whether it was
	// unsolicited.
	ReadFrame(ctx context.Context) (Frame, error)

	// Close releases the underlying channel. Subsequent calls return
	// ErrClosed or are no-ops.
	Close() error
}
