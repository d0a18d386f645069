package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

func TestSyncCmd_Success(t *testing.T) {
	coord := newFakeCoordinator(
		domain.ReplicationStatus{Activity: domain.ActivityConnecting},
		domain.ReplicationStatus{Activity: domain.ActivityBusy, Progress: domain.Progress{Completed: 2, Total: 5}},
		domain.ReplicationStatus{Activity: domain.ActivityStopped, Progress: domain.Progress{Completed: 5, Total: 5}},
	)
	env := setupCLI(t, gatewayValues, &Runtime{Coordinator: coord})

	out, err := execute(context.Background(), "sync")

	require.NoError(t, err)
	assert.Contains(t, out, "Synchronising from gw.example.com/db...")
	assert.Contains(t, out, "[attempt 1] busy")
	assert.Contains(t, out, "Sync complete: 5/5 changes applied.")
	assert.Equal(t, 1, coord.requests)
	assert.Equal(t, 1, env.closed)
}

func TestSyncCmd_EngineError(t *testing.T) {
	coord := newFakeCoordinator(
		domain.ReplicationStatus{Activity: domain.ActivityStopped, Err: errors.New("401 unauthorized")},
	)
	setupCLI(t, gatewayValues, &Runtime{Coordinator: coord})

	out, err := execute(context.Background(), "sync")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync failed: 401 unauthorized")
	assert.Contains(t, out, "error: 401 unauthorized")
}

func TestSyncCmd_Offline(t *testing.T) {
	coord := newFakeCoordinator(domain.ReplicationStatus{Activity: domain.ActivityOffline})
	setupCLI(t, gatewayValues, &Runtime{Coordinator: coord})

	_, err := execute(context.Background(), "sync")
	assert.EqualError(t, err, "sync failed: gateway offline")
}

func TestSyncCmd_Timeout(t *testing.T) {
	coord := newFakeCoordinator(domain.ReplicationStatus{Activity: domain.ActivityBusy})
	setupCLI(t, gatewayValues, &Runtime{Coordinator: coord})

	start := time.Now()
	_, err := execute(context.Background(), "sync", "--timeout", "50ms")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSyncCmd_NotConfigured(t *testing.T) {
	setupCLI(t, nil, &Runtime{Coordinator: newFakeCoordinator()})

	_, err := execute(context.Background(), "sync")
	assert.ErrorIs(t, err, domain.ErrGatewayNotConfigured)
}

func TestFormatEvent(t *testing.T) {
	ev := domain.StatusEvent{
		Status:  domain.ReplicationStatus{Activity: domain.ActivityIdle, Progress: domain.Progress{Completed: 1, Total: 2}},
		Attempt: 3,
	}
	assert.Equal(t, "[attempt 3] idle       1/2", formatEvent(ev))

	ev.Status.Err = errors.New("boom")
	assert.Contains(t, formatEvent(ev), "error: boom")
}

func TestContinuousCmd_RunsUntilCancelled(t *testing.T) {
	coord := newFakeCoordinator()
	env := setupCLI(t, gatewayValues, &Runtime{Coordinator: coord})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var out string
	var err error
	go func() {
		defer close(done)
		out, err = execute(ctx, "continuous")
	}()

	require.Eventually(t, coord.ContinuousRunning, 2*time.Second, 5*time.Millisecond)
	coord.contHub.Publish(domain.StatusEvent{Status: domain.ReplicationStatus{Activity: domain.ActivityIdle}, Attempt: 1})
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("continuous did not stop")
	}
	require.NoError(t, err)
	assert.Contains(t, out, "Continuous sync with gw.example.com/db")
	assert.Contains(t, out, "[attempt 1] idle")
	assert.Contains(t, out, "Stopping continuous sync.")
	assert.Equal(t, []bool{true, false}, coord.toggles())
	assert.Equal(t, 1, env.closed)
}
