package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
)

// Ensure the stores implement the interfaces.
var (
	_ driven.CheckpointStore = (*CheckpointStore)(nil)
	_ driven.TokenStore      = (*TokenStore)(nil)
)

// CheckpointStore is an in-memory implementation of driven.CheckpointStore.
type CheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]domain.Checkpoint
}

// NewCheckpointStore creates a new in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		checkpoints: make(map[string]domain.Checkpoint),
	}
}

// Save stores or updates a checkpoint.
func (s *CheckpointStore) Save(_ context.Context, cp domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[cp.Endpoint] = cp
	return nil
}

// Get retrieves the checkpoint for an endpoint.
func (s *CheckpointStore) Get(_ context.Context, endpoint string) (*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[endpoint]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cp, nil
}

// TokenStore is an in-memory implementation of driven.TokenStore.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]domain.OAuthToken
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]domain.OAuthToken)}
}

// GetToken retrieves the token for a client.
func (s *TokenStore) GetToken(_ context.Context, clientID string) (*domain.OAuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[clientID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &tok, nil
}

// SaveToken stores or replaces the token for a client.
func (s *TokenStore) SaveToken(_ context.Context, clientID string, token domain.OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[clientID] = token
	return nil
}
