// Package mux is the transport-agnostic multiplex layer of spec.md
// §4.6: a single-inflight, FIFO request/response dispatcher sitting on
// top of one pkg/transport.Transport, plus a lossy, state-style event
// broadcaster for unsolicited frames. Grounded on the teacher's
// background-goroutine + sync.RWMutex + stopChan shutdown idiom in
// pkg/scanner/scanner.go, generalized from a polling scan loop to a
// request-queue dispatch loop paired with an independent reader loop.
package mux

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/minidsp-audio/minidsp-go/pkg/codec"
	"github.com/minidsp-audio/minidsp-go/pkg/protocol"
	"github.com/minidsp-audio/minidsp-go/pkg/transport"
)

var (
	// ErrTimeout is returned when no response arrives within a
	// request's budget.
	ErrTimeout = errors.New("mux: timeout")
	// ErrBusy is returned when the bounded request queue is full.
	ErrBusy = errors.New("mux: busy")
	// ErrCancelled is returned when a caller's context is cancelled
	// before its request resolves.
	ErrCancelled = errors.New("mux: cancelled")
	// ErrClosed is returned by Submit after the mux has shut down, and
	// by in-flight requests when the transport closes under them.
	ErrClosed = errors.New("mux: closed")
)

// DefaultTimeout is the per-request budget for every command except
// SetConfig (spec.md §4.6).
const DefaultTimeout = 500 * time.Millisecond

// SetConfigTimeout is SetConfig's extended budget: the device reboots
// its DSP and is expected to drop frames transiently (spec.md §4.2/§4.6).
const SetConfigTimeout = 3 * time.Second

// DefaultQueueDepth is the bounded request queue's default capacity.
const DefaultQueueDepth = 32

type request struct {
	opcode  protocol.Opcode
	frame   []byte
	timeout time.Duration

	respCh chan protocol.Response
	errCh  chan error
}

// Mux serializes concurrent callers' commands onto one transport,
// matching responses by opcode and fanning out unsolicited frames to
// event subscribers.
type Mux struct {
	t transport.Transport

	queueDepth int

	mu       sync.Mutex
	queue    []*request
	awaiting *request
	notify   chan struct{}

	resolved chan protocol.Response

	subsMu sync.Mutex
	subs   map[int]chan protocol.Response
	nextID int

	closeOnce sync.Once
	closeCh   chan struct{}
	closeErr  error
}

// New constructs a Mux over an already-constructed (but not yet opened)
// transport. Call Start to open it and begin dispatching.
func New(t transport.Transport) *Mux {
	return &Mux{
		t:          t,
		queueDepth: DefaultQueueDepth,
		notify:     make(chan struct{}, 1),
		resolved:   make(chan protocol.Response, 1),
		subs:       map[int]chan protocol.Response{},
		closeCh:    make(chan struct{}),
	}
}

// SetQueueDepth overrides the bounded request queue's capacity. Must be
// called before Start.
func (m *Mux) SetQueueDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueDepth = depth
}

// Start opens the underlying transport and launches the dispatch and
// reader goroutines. ctx bounds transport.Open; the goroutines run
// until Close is called or the transport fails.
func (m *Mux) Start(ctx context.Context) error {
	if err := m.t.Open(ctx); err != nil {
		return fmt.Errorf("mux: open transport: %w", err)
	}
	go m.readLoop()
	go m.dispatchLoop()
	return nil
}

// Submit encodes and sends cmd, blocking until a matching response
// arrives, the per-command timeout elapses, ctx is cancelled, or the
// mux closes. Requests complete in submission order (spec.md §4.6
// "Ordering guarantee").
func (m *Mux) Submit(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	framePayload, err := protocol.EncodeCommandFrame(cmd)
	if err != nil {
		return protocol.Response{}, err
	}
	frame, err := codec.Encode(framePayload)
	if err != nil {
		return protocol.Response{}, err
	}

	req := &request{
		opcode:  cmd.Opcode(),
		frame:   frame,
		timeout: timeoutFor(cmd),
		respCh:  make(chan protocol.Response, 1),
		errCh:   make(chan error, 1),
	}

	m.mu.Lock()
	if len(m.queue) >= m.queueDepth {
		m.mu.Unlock()
		return protocol.Response{}, ErrBusy
	}
	m.queue = append(m.queue, req)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}

	select {
	case resp := <-req.respCh:
		return resp, nil
	case err := <-req.errCh:
		return protocol.Response{}, err
	case <-ctx.Done():
		m.cancel(req)
		return protocol.Response{}, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-m.closeCh:
		return protocol.Response{}, ErrClosed
	}
}

func timeoutFor(cmd protocol.Command) time.Duration {
	if cmd.Opcode() == protocol.OpSetConfig {
		return SetConfigTimeout
	}
	return DefaultTimeout
}

// cancel removes req from the queue if it hasn't been dispatched yet.
// If it's already in flight, its eventual response (or timeout) is
// simply discarded: the dispatch loop still owns it, but nobody is
// listening on req.respCh/errCh anymore (spec.md §4.6 Cancellation).
func (m *Mux) cancel(req *request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, q := range m.queue {
		if q == req {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// dispatchLoop pops one request at a time, writes its frame, and waits
// for either a matching response (relayed via m.resolved by readLoop)
// or its timeout. At most one request is ever on the wire (spec.md
// §4.6 "Scheduling model").
func (m *Mux) dispatchLoop() {
	for {
		req := m.popNext()
		if req == nil {
			return // closed
		}

		m.mu.Lock()
		m.awaiting = req
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), req.timeout)
		writeErr := m.t.WriteFrame(ctx, req.frame)
		if writeErr != nil {
			cancel()
			req.errCh <- fmt.Errorf("mux: write: %w", writeErr)
			m.clearAwaiting()
			continue
		}

		select {
		case resp := <-m.resolved:
			req.respCh <- resp
		case <-ctx.Done():
			req.errCh <- ErrTimeout
		case <-m.closeCh:
			cancel()
			req.errCh <- ErrClosed
			return
		}
		cancel()
		m.clearAwaiting()
	}
}

func (m *Mux) popNext() *request {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			req := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return req
		}
		m.mu.Unlock()

		select {
		case <-m.notify:
		case <-m.closeCh:
			return nil
		}
	}
}

func (m *Mux) clearAwaiting() {
	m.mu.Lock()
	m.awaiting = nil
	m.mu.Unlock()
}

// readLoop continuously consumes frames from the transport. Solicited
// frames matching the currently awaited opcode resolve it; mismatched
// or stale frames (from a timed-out request) are dropped, exactly as
// the teacher's parseResponse discards mismatched frames and
// resynchronizes on the next marker byte. Unsolicited frames are
// broadcast to event subscribers.
func (m *Mux) readLoop() {
	ctx := context.Background()
	for {
		frame, err := m.t.ReadFrame(ctx)
		if err != nil {
			m.shutdown(fmt.Errorf("mux: read: %w", err))
			return
		}

		resp, err := protocol.DecodeFrame(frame.Payload)
		if err != nil {
			continue // corrupt/short frame: resync on the next one
		}

		if frame.Unsolicited {
			m.broadcast(resp)
			continue
		}

		m.mu.Lock()
		aw := m.awaiting
		m.mu.Unlock()
		if aw == nil || resp.Opcode != aw.opcode {
			continue // stale response for a since-timed-out request
		}

		select {
		case m.resolved <- resp:
		default:
		}
	}
}

// broadcast delivers resp to every subscriber, coalescing into the next
// delivered event when a subscriber hasn't drained its previous one
// (spec.md §4.6 "lossy broadcast... state-style, not log-style").
func (m *Mux) broadcast(resp protocol.Response) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- resp:
		default:
			select {
			case <-ch: // drop the stale pending event
			default:
			}
			select {
			case ch <- resp:
			default:
			}
		}
	}
}

// Subscribe registers an event listener, returning its channel and an
// unsubscribe function.
func (m *Mux) Subscribe() (<-chan protocol.Response, func()) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id := m.nextID
	m.nextID++
	ch := make(chan protocol.Response, 1)
	m.subs[id] = ch
	return ch, func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		delete(m.subs, id)
	}
}

// Close shuts down the dispatch and reader goroutines and closes the
// underlying transport. All pending and in-flight requests fail with
// ErrClosed.
func (m *Mux) Close() error {
	m.closeOnce.Do(func() {
		close(m.closeCh)
		m.mu.Lock()
		pending := m.queue
		m.queue = nil
		m.mu.Unlock()
		for _, req := range pending {
			req.errCh <- ErrClosed
		}
		m.closeErr = m.t.Close()
	})
	return m.closeErr
}
