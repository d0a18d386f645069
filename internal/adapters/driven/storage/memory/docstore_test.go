package memory

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

func TestNewDocumentStore(t *testing.T) {
	store := NewDocumentStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.documents)
	assert.NotNil(t, store.feed)
}

func TestDocumentStore_Save_Success(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := domain.Document{
		ID:   "profile::alice",
		Rev:  "1-abc",
		Body: json.RawMessage(`{"name":"Alice"}`),
	}
	require.NoError(t, store.Save(ctx, doc))

	saved, err := store.Get(ctx, "profile::alice")
	require.NoError(t, err)
	assert.Equal(t, "1-abc", saved.Rev)
	assert.JSONEq(t, `{"name":"Alice"}`, string(saved.Body))
}

func TestDocumentStore_Save_Update(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.Document{ID: "doc-1", Rev: "1-a"}))
	require.NoError(t, store.Save(ctx, domain.Document{ID: "doc-1", Rev: "2-b"}))

	saved, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "2-b", saved.Rev)
}

func TestDocumentStore_Save_RejectsEmptyID(t *testing.T) {
	store := NewDocumentStore()

	err := store.Save(context.Background(), domain.Document{ID: "ok"}, domain.Document{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, getErr := store.Get(context.Background(), "ok")
	assert.ErrorIs(t, getErr, domain.ErrNotFound)
}

func TestDocumentStore_Get_NotFound(t *testing.T) {
	store := NewDocumentStore()

	_, err := store.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_Delete(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.Document{ID: "doc-1"}, domain.Document{ID: "doc-2"}))

	require.NoError(t, store.Delete(ctx, "doc-1", "never-existed"))

	_, err := store.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	docs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-2", docs[0].ID)
}

func TestDocumentStore_List_Sorted(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.Document{ID: "c"}, domain.Document{ID: "a"}, domain.Document{ID: "b"}))

	docs, err := store.List(ctx)

	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
	assert.Equal(t, "c", docs[2].ID)
}

func TestDocumentStore_Changes_OneBatchPerMutation(t *testing.T) {
	store := NewDocumentStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := store.Changes(ctx)

	require.NoError(t, store.Save(ctx, domain.Document{ID: "a"}, domain.Document{ID: "b"}))
	require.NoError(t, store.Delete(ctx, "a"))

	for _, want := range [][]string{{"a", "b"}, {"a"}} {
		select {
		case change := <-changes:
			assert.Equal(t, want, change.IDs)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for change")
		}
	}
}

func TestDocumentStore_ConcurrentAccess(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			_ = store.Save(ctx, domain.Document{ID: id})
			_, _ = store.Get(ctx, id)
			_, _ = store.List(ctx)
		}(i)
	}
	wg.Wait()

	docs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 20)
}
