package domain

import "time"

// ScheduledTask represents a recurring background task such as a periodic sync request.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// Success indicates whether the task completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// Attempt is the sync attempt number the coordinator reported after the request.
	Attempt int
}

// ScheduleSummary describes a scheduled task together with the requests it
// has issued. Counts cover the retained request history only.
type ScheduleSummary struct {
	Task ScheduledTask

	// Requests is how many sync requests are on record.
	Requests int

	// Failures is how many of those requests failed.
	Failures int

	// FailureStreak counts failed requests since the last successful one.
	FailureStreak int

	// LastAttempt is the coordinator attempt reported by the latest request.
	// Attempts restart from one with every process, so this is not a maximum.
	LastAttempt int

	// LastRequest is when the latest request was issued.
	LastRequest time.Time
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	// Enabled indicates whether this task should run.
	Enabled bool

	// Interval defines how often the task should run.
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSyncInterval is how often the scheduler requests a one-shot sync.
const DefaultSyncInterval = 5 * time.Minute

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDReplicationSync: {
				Enabled:  true,
				Interval: DefaultSyncInterval,
			},
		},
	}
}

// TaskIDReplicationSync is the built-in task that requests a one-shot sync.
const TaskIDReplicationSync = "replication-sync"
