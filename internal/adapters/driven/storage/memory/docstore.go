package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/replisync/internal/adapters/driven/storage/feed"
	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	feed      *feed.Feed
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		feed:      feed.New(),
	}
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// List returns all documents ordered by ID.
func (s *DocumentStore) List(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Save stores or updates documents as one batch.
func (s *DocumentStore) Save(_ context.Context, docs ...domain.Document) error {
	ids := make([]string, 0, len(docs))
	s.mu.Lock()
	for _, doc := range docs {
		if doc.ID == "" {
			s.mu.Unlock()
			return domain.ErrInvalidInput
		}
	}
	for _, doc := range docs {
		s.documents[doc.ID] = doc
		ids = append(ids, doc.ID)
	}
	s.mu.Unlock()

	s.feed.Publish(ids...)
	return nil
}

// Delete removes documents as one batch.
func (s *DocumentStore) Delete(_ context.Context, ids ...string) error {
	s.mu.Lock()
	for _, id := range ids {
		delete(s.documents, id)
	}
	s.mu.Unlock()

	s.feed.Publish(ids...)
	return nil
}

// Changes returns the mutation feed.
func (s *DocumentStore) Changes(ctx context.Context) <-chan domain.DocumentChange {
	return s.feed.Subscribe(ctx)
}

// Close ends all change subscriptions.
func (s *DocumentStore) Close() error {
	s.feed.Close()
	return nil
}
