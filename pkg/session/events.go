package session

import (
	"context"
	"sync"
)

// broadcaster fans MasterStatus updates out to subscribers, coalescing
// into the next delivered update when a subscriber hasn't drained its
// previous one — the same lossy, state-style semantics pkg/mux applies
// to raw event frames, lifted one level to decoded status (spec.md
// §4.7 "subscribe_events").
type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan MasterStatus
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: map[int]chan MasterStatus{}}
}

func (b *broadcaster) subscribe() (chan MasterStatus, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan MasterStatus, 1)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

func (b *broadcaster) publish(status MasterStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- status:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- status:
			default:
			}
		}
	}
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

// SubscribeEvents delivers the current MasterStatus immediately, then a
// fresh snapshot each time an unsolicited event frame arrives from the
// device (spec.md §4.7: "delivers current snapshot then each diff").
// The device's event payload shape isn't specified further than
// "unsolicited frame", so each event triggers a ReadMasterStatus rather
// than attempting to decode a delta off the wire.
func (s *Session) SubscribeEvents(ctx context.Context) (<-chan MasterStatus, func(), error) {
	current, err := s.getMasterStatus(ctx)
	if err != nil {
		return nil, nil, err
	}

	ch, unsub := s.events.subscribe()
	select {
	case ch <- current:
	default:
	}
	return ch, unsub, nil
}

// runEventPump subscribes to the multiplexer's raw event stream and
// republishes a fresh master status on every unsolicited frame.
func (s *Session) runEventPump() {
	s.mu.RLock()
	mx := s.mx
	s.mu.RUnlock()
	if mx == nil {
		return
	}

	raw, unsub := mx.Subscribe()
	defer unsub()

	for {
		select {
		case _, ok := <-raw:
			if !ok {
				return
			}
			status, err := s.getMasterStatus(context.Background())
			if err != nil {
				continue
			}
			s.events.publish(status)
		case <-s.stopPump:
			return
		}
	}
}
