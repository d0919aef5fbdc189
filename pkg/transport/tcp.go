package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// TCP is the plain length-framed stream transport used by the vendor's
// "plugin" relay (spec.md §4.5): no HID report padding, frames go out
// and come back exactly as pkg/codec produces them.
type TCP struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
	rf   reframer
}

// NewTCP constructs a TCP transport for addr ("host:port"). Call Open
// before use.
func NewTCP(addr string) *TCP {
	return &TCP{addr: addr}
}

func (t *TCP) Open(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("transport: tcp dial %s: %w", t.addr, err)
	}
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	return nil
}

func (t *TCP) WriteFrame(ctx context.Context, frame []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrClosed
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	_, err := conn.Write(frame)
	if err != nil {
		return fmt.Errorf("transport: tcp write: %w", err)
	}
	return nil
}

func (t *TCP) ReadFrame(ctx context.Context) (Frame, error) {
	for {
		t.mu.Lock()
		payload, ok, err := t.rf.Next()
		conn := t.conn
		t.mu.Unlock()

		if err != nil {
			// Corrupt frame: resynchronize and keep reading.
			continue
		}
		if ok {
			return Frame{Payload: payload, Unsolicited: isUnsolicited(payload)}, nil
		}
		if conn == nil {
			return Frame{}, ErrClosed
		}

		if deadline, ok := ctx.Deadline(); ok {
			conn.SetReadDeadline(deadline)
		}
		buf := make([]byte, 512)
		n, readErr := conn.Read(buf)
		if n > 0 {
			t.mu.Lock()
			t.rf.Feed(buf[:n])
			t.mu.Unlock()
		}
		if readErr != nil {
			return Frame{}, fmt.Errorf("transport: tcp read: %w", readErr)
		}
	}
}

func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
