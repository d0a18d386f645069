package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

func event(activity domain.ActivityLevel, attempt int) domain.StatusEvent {
	return domain.StatusEvent{Status: domain.ReplicationStatus{Activity: activity}, Attempt: attempt}
}

// receive reads one event or fails the test.
func receive(t *testing.T, ch <-chan domain.StatusEvent) domain.StatusEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.StatusEvent{}
	}
}

// assertNoEvent checks that nothing arrives for a short while.
func assertNoEvent(t *testing.T, ch <-chan domain.StatusEvent) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func assertClosed(t *testing.T, ch <-chan domain.StatusEvent) {
	t.Helper()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStatusHub_ReplaysSeed(t *testing.T) {
	hub := NewStatusHub(event(domain.ActivityStopped, 0))
	defer hub.Close()

	ch := hub.Subscribe(context.Background())
	assert.Equal(t, event(domain.ActivityStopped, 0), receive(t, ch))
	assertNoEvent(t, ch)
}

func TestStatusHub_LateSubscriberSeesLatestFirst(t *testing.T) {
	hub := NewStatusHub(domain.StatusEvent{})
	defer hub.Close()

	for i := 1; i <= 5; i++ {
		hub.Publish(event(domain.ActivityBusy, i))
	}

	ch := hub.Subscribe(context.Background())
	assert.Equal(t, 5, receive(t, ch).Attempt)

	hub.Publish(event(domain.ActivityStopped, 6))
	assert.Equal(t, event(domain.ActivityStopped, 6), receive(t, ch))
	assert.Equal(t, 6, hub.Latest().Attempt)
}

func TestStatusHub_MulticastInOrder(t *testing.T) {
	hub := NewStatusHub(domain.StatusEvent{})
	defer hub.Close()

	a := hub.Subscribe(context.Background())
	b := hub.Subscribe(context.Background())
	assert.Equal(t, 2, hub.subscribers())

	for i := 1; i <= 50; i++ {
		hub.Publish(event(domain.ActivityBusy, i))
	}

	for _, ch := range []<-chan domain.StatusEvent{a, b} {
		assert.Equal(t, 0, receive(t, ch).Attempt)
		for i := 1; i <= 50; i++ {
			assert.Equal(t, i, receive(t, ch).Attempt)
		}
	}
}

func TestStatusHub_PublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	hub := NewStatusHub(domain.StatusEvent{})
	defer hub.Close()

	slow := hub.Subscribe(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 1000; i++ {
			hub.Publish(event(domain.ActivityBusy, i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on an unread subscriber")
	}

	// Nothing was dropped.
	for i := 0; i <= 1000; i++ {
		assert.Equal(t, i, receive(t, slow).Attempt)
	}
}

func TestStatusHub_ContextCancelClosesSubscription(t *testing.T) {
	hub := NewStatusHub(domain.StatusEvent{})
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := hub.Subscribe(ctx)
	receive(t, ch)

	cancel()
	assertClosed(t, ch)
	require.Eventually(t, func() bool { return hub.subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStatusHub_CloseEndsSubscriptions(t *testing.T) {
	hub := NewStatusHub(domain.StatusEvent{})
	ch := hub.Subscribe(context.Background())
	receive(t, ch)

	hub.Close()
	hub.Close()
	assertClosed(t, ch)

	hub.Publish(event(domain.ActivityBusy, 9))
	assert.Equal(t, 0, hub.Latest().Attempt, "publish after close is dropped")

	late := hub.Subscribe(context.Background())
	assertClosed(t, late)
}
