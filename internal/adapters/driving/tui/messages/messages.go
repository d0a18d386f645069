// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/replisync/internal/core/domain"
)

// Lane identifies which coordinator stream a message came from.
type Lane int

const (
	// LaneOneShot is the one-shot sync stream.
	LaneOneShot Lane = iota
	// LaneContinuous is the continuous job stream.
	LaneContinuous
)

// String returns the string representation of the lane.
func (l Lane) String() string {
	switch l {
	case LaneOneShot:
		return "one-shot"
	case LaneContinuous:
		return "continuous"
	default:
		return "unknown"
	}
}

// StatusReceived carries one status event from a coordinator stream.
type StatusReceived struct {
	Lane  Lane
	Event domain.StatusEvent
}

// StreamClosed signals a status stream ended.
type StreamClosed struct {
	Lane Lane
}

// SyncRequested is sent after a one-shot sync was requested.
type SyncRequested struct{}

// ContinuousToggled is sent after the continuous job was started or stopped.
type ContinuousToggled struct {
	Enabled bool
}

// DocumentChanged carries one line from the database watcher.
type DocumentChanged struct {
	Line string
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewDashboard shows both replication lanes.
	ViewDashboard ViewType = iota
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewDashboard:
		return "dashboard"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
