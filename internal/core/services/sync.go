package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
	"github.com/custodia-labs/replisync/internal/core/ports/driving"
	"github.com/custodia-labs/replisync/internal/logger"
)

// Ensure SyncCoordinator implements the interface.
var _ driving.SyncCoordinator = (*SyncCoordinator)(nil)

// startGapWarning is the gap between one-shot starts above which a start is
// logged as abnormally delayed.
const startGapWarning = 30000 * time.Millisecond

// SyncCoordinator serialises one-shot sync requests into a single running
// job plus at most one queued follow-up, and toggles an independent
// continuous job. Status from the engine is stamped with the current attempt
// and published to a StatusHub per lane.
type SyncCoordinator struct {
	sessions      *SessionTokenCache
	factory       *ReplicationJobFactory
	hub           *StatusHub
	continuousHub *StatusHub
	now           func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	busy      bool
	queued    bool
	attempt   int
	lastStart time.Time
	current   *domain.JobInfo
	closed    bool

	continuousRunning bool
	continuousAttempt int
	// continuousLive is the generation whose engine run has been started
	// and has not reported Stopped yet. Zero when no run is live.
	continuousLive int
	// continuousStopping is closed when the Stopped event answering a
	// disable request arrives. Nil when no stop is pending.
	continuousStopping chan struct{}

	// contMu serialises Start/Stop calls on the continuous handle.
	contMu sync.Mutex
}

// CoordinatorOption configures a SyncCoordinator.
type CoordinatorOption func(*SyncCoordinator)

// WithClock overrides the clock used for start-gap diagnostics.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *SyncCoordinator) {
		c.now = now
	}
}

// NewSyncCoordinator creates a coordinator that owns its credential cache,
// engine handles and status hubs.
func NewSyncCoordinator(
	gateway domain.GatewayConfig,
	provider driven.AccessTokenProvider,
	exchanger driven.SessionExchanger,
	certs driven.CertificateLoader,
	engine driven.ReplicatorFactory,
	opts ...CoordinatorOption,
) *SyncCoordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &SyncCoordinator{
		sessions:      NewSessionTokenCache(provider, exchanger),
		hub:           NewStatusHub(domain.StatusEvent{}),
		continuousHub: NewStatusHub(domain.StatusEvent{}),
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
	}
	c.factory = NewReplicationJobFactory(gateway, certs, c.sessions, engine, c.onStatus)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestSync starts a one-shot job if none is running. While a job runs,
// the first request queues one follow-up and later requests are coalesced.
func (c *SyncCoordinator) RequestSync() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.busy {
		if c.queued {
			return
		}
		c.queued = true
		logger.Debug("Sync requested during attempt %d, follow-up queued", c.attempt)
		return
	}
	c.startLocked()
}

// SetContinuous starts or stops the continuous job. Both directions are idempotent.
func (c *SyncCoordinator) SetContinuous(enabled bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if enabled {
		if c.continuousRunning {
			c.mu.Unlock()
			return
		}
		c.continuousRunning = true
		c.continuousAttempt++
		gen := c.continuousAttempt
		c.wg.Add(1)
		c.mu.Unlock()

		go c.runContinuous(gen)
		return
	}

	if !c.continuousRunning {
		c.mu.Unlock()
		return
	}
	c.continuousRunning = false
	c.mu.Unlock()

	c.contMu.Lock()
	defer c.contMu.Unlock()
	h, ok := c.factory.Handle(domain.ModeContinuous)
	if !ok {
		return
	}

	c.mu.Lock()
	if c.continuousLive != 0 && c.continuousStopping == nil {
		c.continuousStopping = make(chan struct{})
	}
	c.mu.Unlock()

	logger.Info("Stopping continuous replication")
	h.Stop()
}

// Subscribe returns the one-shot status stream.
func (c *SyncCoordinator) Subscribe(ctx context.Context) <-chan domain.StatusEvent {
	return c.hub.Subscribe(ctx)
}

// SubscribeContinuous returns the continuous status stream.
func (c *SyncCoordinator) SubscribeContinuous(ctx context.Context) <-chan domain.StatusEvent {
	return c.continuousHub.Subscribe(ctx)
}

// RefreshStatus publishes the one-shot replicator's current status.
// Before the first job the zero status is published.
func (c *SyncCoordinator) RefreshStatus() {
	var status domain.ReplicationStatus
	if h, ok := c.factory.Handle(domain.ModeOneShot); ok {
		status = h.Status()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hub.Publish(domain.StatusEvent{Status: status, Attempt: c.attempt})
}

// State returns the one-shot lane state.
func (c *SyncCoordinator) State() domain.SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.busy && c.queued:
		return domain.SyncRunningWithRetryQueued
	case c.busy:
		return domain.SyncRunning
	default:
		return domain.SyncIdle
	}
}

// ContinuousRunning reports whether the continuous job is running.
func (c *SyncCoordinator) ContinuousRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.continuousRunning
}

// InFlight returns the running one-shot job, if any.
func (c *SyncCoordinator) InFlight() (domain.JobInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.busy || c.current == nil {
		return domain.JobInfo{}, false
	}
	return *c.current, true
}

// Attempt returns the current one-shot attempt counter.
func (c *SyncCoordinator) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Close stops every job, ends all subscriptions and waits for pending
// start procedures to return.
func (c *SyncCoordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	err := c.factory.Close()
	c.hub.Close()
	c.continuousHub.Close()
	return err
}

// startLocked launches a one-shot start procedure (caller must hold lock).
func (c *SyncCoordinator) startLocked() {
	c.busy = true
	c.attempt++

	now := c.now()
	job := domain.JobInfo{
		ID:        uuid.NewString(),
		Mode:      domain.ModeOneShot,
		Attempt:   c.attempt,
		StartedAt: now,
	}
	c.current = &job
	c.logStartGap(now)
	c.lastStart = now

	c.wg.Add(1)
	go c.runOneShot(job)
}

// logStartGap records how long it has been since the previous one-shot start.
func (c *SyncCoordinator) logStartGap(now time.Time) {
	if c.lastStart.IsZero() {
		return
	}
	gap := now.Sub(c.lastStart)
	if gap > startGapWarning {
		logger.Warn("%s time since last replication much longer than expected: %.1f seconds",
			now.UTC().Format(time.RFC3339), gap.Seconds())
		return
	}
	logger.Debug("%s time since last replication: %.1f seconds", now.UTC().Format(time.RFC3339), gap.Seconds())
}

// runOneShot builds the one-shot handle and starts it.
func (c *SyncCoordinator) runOneShot(job domain.JobInfo) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			c.abortOneShot(job, fmt.Errorf("sync attempt %d panicked: %v", job.Attempt, r))
		}
	}()

	h, err := c.factory.BuildJob(c.ctx, domain.ModeOneShot)
	if err != nil {
		c.abortOneShot(job, err)
		return
	}

	logger.Info("Starting sync attempt %d (%s)", job.Attempt, job.ID)
	h.Start()
}

// abortOneShot returns the lane to idle after a start procedure failed.
// A queued follow-up is dropped because it would fail the same way.
func (c *SyncCoordinator) abortOneShot(job domain.JobInfo, err error) {
	logger.Warn("Sync attempt %d not started: %v", job.Attempt, err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt != job.Attempt || !c.busy {
		return
	}
	c.busy = false
	c.queued = false
	c.current = nil
	c.hub.Publish(domain.StatusEvent{
		Status:  domain.ReplicationStatus{Activity: domain.ActivityStopped, Err: err},
		Attempt: job.Attempt,
	})
}

// runContinuous builds and starts the continuous handle for generation gen.
func (c *SyncCoordinator) runContinuous(gen int) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			c.abortContinuous(gen, fmt.Errorf("continuous start panicked: %v", r))
		}
	}()

	h, err := c.factory.BuildJob(c.ctx, domain.ModeContinuous)
	if err != nil {
		c.abortContinuous(gen, err)
		return
	}

	// The previous run must report Stopped before the next one starts, so
	// its final event is never mistaken for the end of this run.
	if err := c.awaitContinuousStop(); err != nil {
		return
	}

	c.contMu.Lock()
	defer c.contMu.Unlock()

	c.mu.Lock()
	current := c.continuousRunning && c.continuousAttempt == gen && !c.closed
	if current {
		c.continuousLive = gen
	}
	c.mu.Unlock()
	if !current {
		return
	}

	logger.Info("Starting continuous replication")
	h.Start()
}

// awaitContinuousStop waits for a pending continuous stop to be reported.
func (c *SyncCoordinator) awaitContinuousStop() error {
	c.mu.Lock()
	stopping := c.continuousStopping
	c.mu.Unlock()
	if stopping == nil {
		return nil
	}

	logger.Debug("Waiting for the previous continuous run to stop")
	select {
	case <-stopping:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// abortContinuous clears the running flag after a failed continuous start.
func (c *SyncCoordinator) abortContinuous(gen int, err error) {
	logger.Warn("Continuous replication not started: %v", err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.continuousAttempt != gen || !c.continuousRunning {
		return
	}
	c.continuousRunning = false
	c.continuousHub.Publish(domain.StatusEvent{
		Status:  domain.ReplicationStatus{Activity: domain.ActivityStopped, Err: err},
		Attempt: gen,
	})
}

// onStatus receives engine status transitions for both lanes.
func (c *SyncCoordinator) onStatus(mode domain.ReplicationMode, status domain.ReplicationStatus) {
	if mode == domain.ModeContinuous {
		c.onContinuousStatus(status)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.hub.Publish(domain.StatusEvent{Status: status, Attempt: c.attempt})
	logger.Debug("Attempt %d: %s %s", c.attempt, status.Activity, status.Progress)

	if !status.Activity.IsTerminal() || !c.busy {
		return
	}
	if status.Err != nil {
		logger.Warn("Sync attempt %d ended with error: %v", c.attempt, status.Err)
	}

	c.busy = false
	c.current = nil
	if c.queued && !c.closed {
		c.queued = false
		c.startLocked()
	}
}

// onContinuousStatus publishes continuous status and notes when the job
// stops. A Stopped event answering a disable request only settles that
// request; the running flag then belongs to whatever was enabled since.
func (c *SyncCoordinator) onContinuousStatus(status domain.ReplicationStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	attempt := c.continuousLive
	if attempt == 0 {
		attempt = c.continuousAttempt
	}
	c.continuousHub.Publish(domain.StatusEvent{Status: status, Attempt: attempt})
	if status.Activity != domain.ActivityStopped {
		return
	}

	c.continuousLive = 0
	if c.continuousStopping != nil {
		close(c.continuousStopping)
		c.continuousStopping = nil
		return
	}
	c.continuousRunning = false
}
