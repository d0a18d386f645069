package domain

import (
	"encoding/json"
	"time"
)

// Document is a replicated document held in the local store.
type Document struct {
	// ID is the document key.
	ID string

	// Rev is the revision pulled from the gateway.
	Rev string

	// Body is the raw JSON document body.
	Body json.RawMessage

	// UpdatedAt is when the document was last written locally.
	UpdatedAt time.Time
}

// DocumentChange is a batch of keys touched by one local store mutation.
type DocumentChange struct {
	IDs []string
}

// Checkpoint records how far a replication endpoint has been pulled.
type Checkpoint struct {
	// Endpoint identifies the remote the checkpoint belongs to.
	Endpoint string

	// Since is the last sequence applied locally.
	Since string

	// UpdatedAt is when the checkpoint was last saved.
	UpdatedAt time.Time
}
