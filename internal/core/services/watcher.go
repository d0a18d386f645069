package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
	"github.com/custodia-labs/replisync/internal/logger"
)

// DatabaseWatcher logs local store mutations one line per affected key.
type DatabaseWatcher struct {
	store driven.DocumentStore
	emit  func(string)
}

// NewDatabaseWatcher creates a watcher over store. Lines are written to the
// verbose logger unless emit is non-nil.
func NewDatabaseWatcher(store driven.DocumentStore, emit func(string)) *DatabaseWatcher {
	if emit == nil {
		emit = func(line string) { logger.Info("%s", line) }
	}
	return &DatabaseWatcher{store: store, emit: emit}
}

// Run consumes the store's mutation feed until ctx is cancelled or the feed closes.
func (w *DatabaseWatcher) Run(ctx context.Context) error {
	changes := w.store.Changes(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			w.handle(ctx, change)
		}
	}
}

// handle emits one line per document ID in the batch.
func (w *DatabaseWatcher) handle(ctx context.Context, change domain.DocumentChange) {
	for _, id := range change.IDs {
		_, err := w.store.Get(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			w.emit(fmt.Sprintf("Document (id=%s) was deleted", id))
		case err != nil:
			logger.Debug("Lookup of %s failed: %v", id, err)
		default:
			w.emit(fmt.Sprintf("Document (id=%s) was added/updated", id))
		}
	}
}
