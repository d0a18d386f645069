// Package feed fans document store mutation batches out to subscribers.
package feed

import (
	"context"
	"sync"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

// Feed delivers every published batch to every subscriber in order.
// Publish never blocks on a slow subscriber.
type Feed struct {
	mu     sync.Mutex
	subs   map[*mailbox]struct{}
	closed bool
}

type mailbox struct {
	mu      sync.Mutex
	pending []domain.DocumentChange
	notify  chan struct{}
	done    chan struct{}
}

// New creates an empty feed.
func New() *Feed {
	return &Feed{subs: make(map[*mailbox]struct{})}
}

// Publish queues a batch for all current subscribers. Empty batches are dropped.
func (f *Feed) Publish(ids ...string) {
	if len(ids) == 0 {
		return
	}
	change := domain.DocumentChange{IDs: append([]string(nil), ids...)}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for m := range f.subs {
		m.push(change)
	}
}

// Subscribe returns a channel of batches published after the call.
// It is closed when ctx is cancelled or the feed is closed.
func (f *Feed) Subscribe(ctx context.Context) <-chan domain.DocumentChange {
	out := make(chan domain.DocumentChange)
	m := &mailbox{notify: make(chan struct{}, 1), done: make(chan struct{})}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(out)
		return out
	}
	f.subs[m] = struct{}{}
	f.mu.Unlock()

	go func() {
		defer close(out)
		defer f.remove(m)
		for {
			change, ok := m.pop()
			if !ok {
				select {
				case <-m.notify:
					continue
				case <-ctx.Done():
					return
				case <-m.done:
					return
				}
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			case <-m.done:
				return
			}
		}
	}()
	return out
}

// Close ends all subscriptions.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for m := range f.subs {
		close(m.done)
		delete(f.subs, m)
	}
}

func (f *Feed) remove(m *mailbox) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, m)
}

func (m *mailbox) push(change domain.DocumentChange) {
	m.mu.Lock()
	m.pending = append(m.pending, change)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) pop() (domain.DocumentChange, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return domain.DocumentChange{}, false
	}
	change := m.pending[0]
	m.pending = m.pending[1:]
	return change, true
}
