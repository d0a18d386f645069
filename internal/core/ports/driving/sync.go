package driving

import (
	"context"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

// SyncCoordinator schedules replication jobs and publishes their status.
//
// RequestSync and SetContinuous return immediately; outcomes are only
// observable through the status streams.
type SyncCoordinator interface {
	// RequestSync starts a one-shot sync, or queues exactly one follow-up
	// if a job is already running.
	RequestSync()

	// SetContinuous starts or stops the continuous job.
	SetContinuous(enabled bool)

	// Subscribe returns the one-shot status stream. The most recent event
	// is delivered first. The channel closes when ctx is cancelled.
	Subscribe(ctx context.Context) <-chan domain.StatusEvent

	// SubscribeContinuous returns the continuous job's status stream.
	SubscribeContinuous(ctx context.Context) <-chan domain.StatusEvent

	// RefreshStatus re-publishes the one-shot engine's current status.
	RefreshStatus()

	// State returns the one-shot lane state.
	State() domain.SyncState

	// ContinuousRunning reports whether the continuous job is running.
	ContinuousRunning() bool

	// InFlight returns the most recently launched one-shot job, if one is running.
	InFlight() (domain.JobInfo, bool)

	// Close stops all jobs and releases resources.
	Close() error
}
