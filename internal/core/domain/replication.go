package domain

import (
	"fmt"
	"time"
)

// ActivityLevel is the coarse state of a replication job as reported by the engine.
type ActivityLevel int

const (
	// ActivityStopped means the job has finished or was stopped.
	ActivityStopped ActivityLevel = iota
	// ActivityOffline means the remote endpoint is unreachable.
	ActivityOffline
	// ActivityConnecting means the job is establishing a connection.
	ActivityConnecting
	// ActivityIdle means a continuous job is caught up and waiting for changes.
	ActivityIdle
	// ActivityBusy means the job is transferring changes.
	ActivityBusy
)

// String returns a human-readable representation of the activity level.
func (a ActivityLevel) String() string {
	switch a {
	case ActivityStopped:
		return "stopped"
	case ActivityOffline:
		return "offline"
	case ActivityConnecting:
		return "connecting"
	case ActivityIdle:
		return "idle"
	case ActivityBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether a one-shot job in this activity level is finished.
func (a ActivityLevel) IsTerminal() bool {
	return a == ActivityStopped || a == ActivityOffline
}

// Progress counts replicated units for a job.
type Progress struct {
	// Completed is the number of changes applied locally.
	Completed uint64

	// Total is the number of changes received so far.
	Total uint64
}

// String formats progress as completed/total.
func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Completed, p.Total)
}

// ReplicationStatus is a point-in-time status emitted by the replication engine.
// Values are immutable once emitted.
type ReplicationStatus struct {
	Activity ActivityLevel
	Progress Progress

	// Err is an engine error attached to this status, if any.
	Err error
}

// StatusEvent is a replication status stamped with the sync attempt that was
// current when it was observed. Attempt is 0 for the initial seeded value.
type StatusEvent struct {
	Status  ReplicationStatus
	Attempt int
}

// ReplicationMode selects between one-shot and continuous jobs.
type ReplicationMode int

const (
	// ModeOneShot runs a job to completion once and stops.
	ModeOneShot ReplicationMode = iota
	// ModeContinuous keeps the job connected until explicitly stopped.
	ModeContinuous
)

// String returns a human-readable representation of the mode.
func (m ReplicationMode) String() string {
	switch m {
	case ModeOneShot:
		return "one-shot"
	case ModeContinuous:
		return "continuous"
	default:
		return "unknown"
	}
}

// ReplicationDirection is the direction documents flow for a job.
type ReplicationDirection string

// DirectionPull copies remote changes into the local store.
const DirectionPull ReplicationDirection = "pull"

// SyncState is the state of the one-shot lane of a coordinator.
type SyncState int

const (
	// SyncIdle means no job is running.
	SyncIdle SyncState = iota
	// SyncRunning means a job is running and nothing is queued.
	SyncRunning
	// SyncRunningWithRetryQueued means a job is running and one follow-up is queued.
	SyncRunningWithRetryQueued
)

// String returns a human-readable representation of the state.
func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncRunning:
		return "running"
	case SyncRunningWithRetryQueued:
		return "running (retry queued)"
	default:
		return "unknown"
	}
}

// JobInfo describes a launched start procedure for diagnostics.
type JobInfo struct {
	ID        string
	Mode      ReplicationMode
	Attempt   int
	StartedAt time.Time
}
