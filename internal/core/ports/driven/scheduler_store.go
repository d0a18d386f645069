package driven

import (
	"context"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

// SchedulerStore persists the periodic sync schedule across restarts.
// It stores task state and the history of sync requests it issued.
type SchedulerStore interface {
	// GetTask retrieves a scheduled task by ID.
	// Returns nil and no error if the task does not exist.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns all scheduled tasks.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask persists a task's state.
	// Creates or updates the task based on ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// RecordResult logs one sync request and the attempt it produced.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// Summarise returns the task with counts over its request history.
	// Returns nil and no error if the task does not exist.
	Summarise(ctx context.Context, taskID string) (*domain.ScheduleSummary, error)

	// PruneHistory keeps the most recent 'keep' results per task.
	PruneHistory(ctx context.Context, keep int) error
}
