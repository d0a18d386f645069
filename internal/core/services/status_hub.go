package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

// StatusHub multicasts status events to any number of subscribers.
// New subscribers receive the most recently published event first.
// Publish never waits for a subscriber: each one has its own mailbox
// drained by a delivery goroutine.
type StatusHub struct {
	mu     sync.Mutex
	latest domain.StatusEvent
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
}

type subscriber struct {
	mu      sync.Mutex
	pending []domain.StatusEvent
	notify  chan struct{}
	done    chan struct{}
}

// NewStatusHub creates a hub seeded with an initial event.
func NewStatusHub(initial domain.StatusEvent) *StatusHub {
	return &StatusHub{
		latest: initial,
		subs:   make(map[uint64]*subscriber),
	}
}

// Publish stores ev as the most recent event and queues it for every subscriber.
// Publishing to a closed hub is a no-op.
func (h *StatusHub) Publish(ev domain.StatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.latest = ev
	for _, s := range h.subs {
		s.enqueue(ev)
	}
}

// Latest returns the most recently published event.
func (h *StatusHub) Latest() domain.StatusEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Subscribe returns a channel that yields the latest event followed by
// every event published afterwards, in publish order. The channel is
// closed when ctx is cancelled or the hub is closed.
func (h *StatusHub) Subscribe(ctx context.Context) <-chan domain.StatusEvent {
	out := make(chan domain.StatusEvent)
	s := &subscriber{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(out)
		return out
	}
	id := h.nextID
	h.nextID++
	s.enqueue(h.latest)
	h.subs[id] = s
	h.mu.Unlock()

	go h.deliver(ctx, id, s, out)
	return out
}

// subscribers returns the number of active subscribers.
func (h *StatusHub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later publishes are dropped.
func (h *StatusHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		close(s.done)
		delete(h.subs, id)
	}
}

func (h *StatusHub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// deliver drains a subscriber's mailbox into its channel.
func (h *StatusHub) deliver(ctx context.Context, id uint64, s *subscriber, out chan<- domain.StatusEvent) {
	defer close(out)
	defer h.remove(id)

	for {
		ev, ok := s.next()
		if !ok {
			select {
			case <-s.notify:
				continue
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

func (s *subscriber) enqueue(ev domain.StatusEvent) {
	s.mu.Lock()
	s.pending = append(s.pending, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) next() (domain.StatusEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return domain.StatusEvent{}, false
	}
	ev := s.pending[0]
	s.pending[0] = domain.StatusEvent{}
	s.pending = s.pending[1:]
	return ev, true
}
