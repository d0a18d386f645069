// Package tui provides an interactive terminal status view for replisync.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/replisync/internal/core/ports/driving"
)

// Ports aggregates what the TUI needs from the core.
type Ports struct {
	// Coordinator runs sync jobs and publishes their status.
	Coordinator driving.SyncCoordinator

	// Gateway is the configured gateway host, shown in the header.
	Gateway string

	// Changes carries database watcher lines. Optional.
	Changes <-chan string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Coordinator == nil {
		return ErrMissingCoordinator
	}
	return nil
}
