package mcp

import (
	"context"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driving"
)

// DocumentReader reads the local replica.
type DocumentReader interface {
	Get(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
}

// Ports aggregates what the MCP server drives.
type Ports struct {
	// Coordinator runs one-shot and continuous jobs.
	Coordinator driving.SyncCoordinator

	// Documents exposes the local replica. Optional.
	Documents DocumentReader
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Coordinator == nil {
		return ErrMissingCoordinator
	}
	return nil
}
