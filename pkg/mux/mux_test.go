package mux

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidsp-audio/minidsp-go/pkg/codec"
	"github.com/minidsp-audio/minidsp-go/pkg/protocol"
	"github.com/minidsp-audio/minidsp-go/pkg/transport"
)

// loopbackTransport echoes every written command frame back as an
// immediate ack with the same opcode, letting mux tests exercise
// ordering/backpressure without real hardware or a socket.
type loopbackTransport struct {
	mu      sync.Mutex
	frames  chan transport.Frame
	written [][]byte
	silent  bool // when true, never echoes (forces Timeout)
}

func newLoopback() *loopbackTransport {
	return &loopbackTransport{frames: make(chan transport.Frame, 64)}
}

func (l *loopbackTransport) Open(ctx context.Context) error { return nil }

func (l *loopbackTransport) WriteFrame(ctx context.Context, frame []byte) error {
	l.mu.Lock()
	l.written = append(l.written, append([]byte(nil), frame...))
	l.mu.Unlock()

	if l.silent {
		return nil
	}

	payload, err := codec.Decode(frame)
	if err != nil {
		return err
	}
	opcode := payload[0]

	respPayload := []byte{opcode}
	respFrame, err := codec.Encode(respPayload)
	if err != nil {
		return err
	}
	decoded, err := codec.Decode(respFrame)
	if err != nil {
		return err
	}
	l.frames <- transport.Frame{Payload: decoded}
	return nil
}

func (l *loopbackTransport) ReadFrame(ctx context.Context) (transport.Frame, error) {
	select {
	case f := <-l.frames:
		return f, nil
	case <-ctx.Done():
		return transport.Frame{}, ctx.Err()
	}
}

func (l *loopbackTransport) Close() error { return nil }

func TestSubmitResolvesOnMatchingOpcode(t *testing.T) {
	m := New(newLoopback())
	require.NoError(t, m.Start(context.Background()))
	defer m.Close()

	resp, err := m.Submit(context.Background(), protocol.NoOp{})
	require.NoError(t, err)
	assert.Equal(t, protocol.OpNoOp, resp.Opcode)
}

func TestConcurrentSubmissionsAllResolve(t *testing.T) {
	lt := newLoopback()
	m := New(lt)
	require.NoError(t, m.Start(context.Background()))
	defer m.Close()

	const n = 20
	results := make([]protocol.Opcode, n)
	var wg sync.WaitGroup
	start := make(chan struct{})

	// All n requests are released at once; each must resolve without
	// error and carry its own command's opcode back.
	for i := 0; i < n; i++ {
		wg.Add(1)
		idx := i
		go func() {
			defer wg.Done()
			<-start
			resp, err := m.Submit(context.Background(), protocol.SetVolume{HalfDB: byte(idx)})
			require.NoError(t, err)
			results[idx] = resp.Opcode
		}()
	}
	close(start)
	wg.Wait()

	for _, op := range results {
		assert.Equal(t, protocol.OpSetVolume, op)
	}
}

func TestTimeoutDoesNotBlockSubsequentRequests(t *testing.T) {
	lt := newLoopback()
	lt.silent = true
	m := New(lt)
	m.queueDepth = DefaultQueueDepth
	require.NoError(t, m.Start(context.Background()))
	defer m.Close()

	// The silent transport never answers, so the first request fails with
	// the default per-request timeout.
	start := time.Now()
	_, err := m.Submit(context.Background(), protocol.NoOp{})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	// Once the transport answers again, the next request is dispatched
	// and resolves normally.
	lt.silent = false
	resp, err := m.Submit(context.Background(), protocol.NoOp{})
	require.NoError(t, err)
	assert.Equal(t, protocol.OpNoOp, resp.Opcode)
}

// blockingTransport lets a test hold the dispatch loop inside WriteFrame
// until explicitly released, so the request queue's contents at a given
// instant are deterministic instead of racing the dispatch loop.
type blockingTransport struct {
	startedWrite chan struct{}
	release      chan struct{}
}

func newBlockingTransport() *blockingTransport {
	return &blockingTransport{
		startedWrite: make(chan struct{}, 8),
		release:      make(chan struct{}),
	}
}

func (b *blockingTransport) Open(ctx context.Context) error { return nil }

func (b *blockingTransport) WriteFrame(ctx context.Context, frame []byte) error {
	b.startedWrite <- struct{}{}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingTransport) ReadFrame(ctx context.Context) (transport.Frame, error) {
	<-ctx.Done()
	return transport.Frame{}, ctx.Err()
}

func (b *blockingTransport) Close() error { return nil }

func TestBusyWhenQueueFull(t *testing.T) {
	bt := newBlockingTransport()
	m := New(bt)
	m.queueDepth = 1
	require.NoError(t, m.Start(context.Background()))
	defer func() {
		close(bt.release)
		m.Close()
	}()

	// cmd1 is popped immediately and blocks inside WriteFrame, emptying
	// the queue while occupying the single in-flight dispatch slot.
	go m.Submit(context.Background(), protocol.NoOp{})
	<-bt.startedWrite

	// cmd2 now has room in the empty queue.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Submit(context.Background(), protocol.SetVolume{HalfDB: 1})
	}()

	// Wait until cmd2 is actually enqueued before judging the queue full.
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.queue) == 1
	}, time.Second, time.Millisecond)

	// cmd3 finds the queue at capacity.
	_, err := m.Submit(context.Background(), protocol.SetMute{On: true})
	assert.ErrorIs(t, err, ErrBusy)

	wg.Wait()
}

func TestCancellationRemovesQueuedRequest(t *testing.T) {
	lt := newLoopback()
	lt.silent = true
	m := New(lt)
	require.NoError(t, m.Start(context.Background()))
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Submit(ctx, protocol.NoOp{})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestSubscribeReceivesBroadcastEvent(t *testing.T) {
	lt := newLoopback()
	m := New(lt)
	require.NoError(t, m.Start(context.Background()))
	defer m.Close()

	ch, unsub := m.Subscribe()
	defer unsub()

	eventFrame := protocol.Response{Opcode: protocol.OpEvent, Payload: []byte{0x01}}
	m.broadcast(eventFrame)

	select {
	case got := <-ch:
		assert.Equal(t, eventFrame, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast event")
	}
}
