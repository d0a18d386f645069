package driving

import (
	"context"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

// Scheduler issues periodic sync requests to a SyncCoordinator.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// Summary returns the sync schedule and its request history, or nil
	// when no schedule has been stored yet.
	Summary(ctx context.Context) (*domain.ScheduleSummary, error)
}
