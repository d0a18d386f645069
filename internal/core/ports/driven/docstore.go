package driven

import (
	"context"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

// DocumentStore is the local store replicated documents are pulled into.
type DocumentStore interface {
	// Get retrieves a document by ID.
	// Returns domain.ErrNotFound if the document does not exist.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns all stored documents ordered by ID.
	List(ctx context.Context) ([]domain.Document, error)

	// Save stores or updates documents as a single mutation batch.
	Save(ctx context.Context, docs ...domain.Document) error

	// Delete removes documents as a single mutation batch.
	// Missing IDs are ignored.
	Delete(ctx context.Context, ids ...string) error

	// Changes returns a feed of mutation batches.
	// The channel is closed when ctx is cancelled or the store is closed.
	Changes(ctx context.Context) <-chan domain.DocumentChange
}

// CheckpointStore persists how far each endpoint has been pulled.
type CheckpointStore interface {
	// Get returns the checkpoint for an endpoint.
	// Returns domain.ErrNotFound if none has been saved.
	Get(ctx context.Context, endpoint string) (*domain.Checkpoint, error)

	// Save stores or updates a checkpoint.
	Save(ctx context.Context, cp domain.Checkpoint) error
}

// TokenStore persists identity-provider OAuth tokens between runs.
type TokenStore interface {
	// GetToken returns the stored token for a client.
	// Returns domain.ErrNotFound if none is stored.
	GetToken(ctx context.Context, clientID string) (*domain.OAuthToken, error)

	// SaveToken stores or replaces the token for a client.
	SaveToken(ctx context.Context, clientID string, token domain.OAuthToken) error
}
