package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
	"github.com/custodia-labs/replisync/internal/core/ports/driving"
	"github.com/custodia-labs/replisync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// attemptReporter is implemented by coordinators that expose their attempt counter.
type attemptReporter interface {
	Attempt() int
}

// Scheduler issues periodic sync requests to a coordinator.
// It is a pure core service with no external control API.
type Scheduler struct {
	config      domain.SchedulerConfig
	store       driven.SchedulerStore
	coordinator driving.SyncCoordinator
	tick        time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	coordinator driving.SyncCoordinator,
) *Scheduler {
	return &Scheduler{
		config:      config,
		store:       store,
		coordinator: coordinator,
		tick:        time.Minute,
	}
}

// SetTick changes how often due tasks are checked. Defaults to one minute.
func (s *Scheduler) SetTick(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.tick = d
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	// Initialise tasks in store
	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}
	s.logResume(ctx)

	// Run the main scheduler loop
	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// Summary returns the replication sync task and its request history.
// It returns nil when the task has never been stored.
func (s *Scheduler) Summary(ctx context.Context) (*domain.ScheduleSummary, error) {
	return s.store.Summarise(ctx, domain.TaskIDReplicationSync)
}

// logResume reports the stored schedule the daemon is picking up from.
func (s *Scheduler) logResume(ctx context.Context) {
	summary, err := s.Summary(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to read history: %v", err)
		return
	}
	if summary == nil || summary.Requests == 0 {
		return
	}
	logger.Info("Resuming schedule: %d requests on record, last at %s (attempt %d)",
		summary.Requests, summary.LastRequest.Local().Format(time.RFC3339), summary.LastAttempt)
	if summary.FailureStreak > 0 {
		logger.Warn("scheduler: last %d requests failed: %s", summary.FailureStreak, summary.Task.LastError)
	}
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if taskCfg := s.config.GetTaskConfig(domain.TaskIDReplicationSync); taskCfg.Enabled {
		if err := s.ensureTask(ctx, domain.TaskIDReplicationSync, "Replication Sync", taskCfg); err != nil {
			return err
		}
	}

	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		// Create new task
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now().Add(cfg.Interval),
		}
	} else {
		// Update interval if changed
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			// Recalculate next run from now
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	s.mu.Lock()
	tick := s.tick
	s.mu.Unlock()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || task.NextRun.Before(now) || task.NextRun.Equal(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDReplicationSync:
			result.Attempt, err = s.requestSync()
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		// Update task state
		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}

		// Record result for history
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}

		// Prune old history (keep last 100 results per task)
		if pruneErr := s.store.PruneHistory(ctx, 100); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// requestSync asks the coordinator for a one-shot sync. The request returns
// immediately, so the result records the attempt number rather than a
// document count.
func (s *Scheduler) requestSync() (int, error) {
	if s.coordinator == nil {
		return 0, nil
	}

	s.coordinator.RequestSync()
	if r, ok := s.coordinator.(attemptReporter); ok {
		return r.Attempt(), nil
	}
	return 0, nil
}
