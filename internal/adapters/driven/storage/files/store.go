package files

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/replisync/internal/adapters/driven/storage/feed"
	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
	"github.com/custodia-labs/replisync/internal/logger"
)

const (
	docSuffix      = ".json"
	tempPrefix     = ".tmp-"
	checkpointFile = ".checkpoints"
)

var (
	_ driven.DocumentStore   = (*Store)(nil)
	_ driven.CheckpointStore = (*checkpointStore)(nil)
)

// fileDoc is the on-disk form of a document.
type fileDoc struct {
	ID        string          `json:"_id"`
	Rev       string          `json:"_rev,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store keeps one JSON file per document in a directory.
type Store struct {
	dir     string
	watcher *fsnotify.Watcher
	feed    *feed.Feed

	// mu serialises mutations and guards known.
	mu sync.Mutex
	// known holds the content hash last seen for each file name; a
	// missing entry means the file is absent. Watcher events that match
	// it are the store's own writes and are not republished.
	known map[string][32]byte

	cpMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewStore opens a document directory, creating it if needed, and starts
// watching it for changes.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating document directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	s := &Store{
		dir:     dir,
		watcher: watcher,
		feed:    feed.New(),
		known:   make(map[string][32]byte),
		done:    make(chan struct{}),
	}
	if err := s.scan(); err != nil {
		watcher.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.processEvents()
	return s, nil
}

// Dir returns the document directory.
func (s *Store) Dir() string {
	return s.dir
}

// CheckpointStore returns a CheckpointStore kept alongside the documents.
func (s *Store) CheckpointStore() driven.CheckpointStore {
	return &checkpointStore{store: s}
}

// Get retrieves a document by ID.
func (s *Store) Get(_ context.Context, id string) (*domain.Document, error) {
	doc, err := readDoc(filepath.Join(s.dir, fileName(id)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns all documents ordered by ID.
func (s *Store) List(_ context.Context) ([]domain.Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading document directory: %w", err)
	}

	var docs []domain.Document //nolint:prealloc // non-document files are skipped
	for _, entry := range entries {
		if !isDocFile(entry.Name()) {
			continue
		}
		doc, err := readDoc(filepath.Join(s.dir, entry.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			continue // removed since ReadDir
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Save writes documents and publishes them as one batch.
func (s *Store) Save(_ context.Context, docs ...domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if doc.ID == "" {
			return domain.ErrInvalidInput
		}
	}

	s.mu.Lock()
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		updatedAt := doc.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}
		data, err := json.Marshal(fileDoc{ID: doc.ID, Rev: doc.Rev, Body: doc.Body, UpdatedAt: updatedAt})
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("encoding document %s: %w", doc.ID, err)
		}
		name := fileName(doc.ID)
		if err := writeAtomic(s.dir, name, data); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("writing document %s: %w", doc.ID, err)
		}
		s.known[name] = sha256.Sum256(data)
		ids = append(ids, doc.ID)
	}
	s.mu.Unlock()

	s.feed.Publish(ids...)
	return nil
}

// Delete removes documents and publishes them as one batch.
func (s *Store) Delete(_ context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	for _, id := range ids {
		name := fileName(id)
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.mu.Unlock()
			return fmt.Errorf("deleting document %s: %w", id, err)
		}
		delete(s.known, name)
	}
	s.mu.Unlock()

	s.feed.Publish(ids...)
	return nil
}

// Changes returns the mutation feed, including edits made outside the store.
func (s *Store) Changes(ctx context.Context) <-chan domain.DocumentChange {
	return s.feed.Subscribe(ctx)
}

// Close stops watching the directory and ends all change subscriptions.
func (s *Store) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	err := s.watcher.Close()
	s.wg.Wait()
	s.feed.Close()
	if err != nil {
		return fmt.Errorf("closing watcher: %w", err)
	}
	return nil
}

// scan records the current content of every document file.
func (s *Store) scan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading document directory: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if !isDocFile(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		s.known[entry.Name()] = sha256.Sum256(data)
	}
	return nil
}

func (s *Store) processEvents() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if id, changed := s.observe(event); changed {
				s.feed.Publish(id)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("document directory watcher: %v", err)
		}
	}
}

// observe compares the file behind an event with the last known content
// and reports whether it changed.
func (s *Store) observe(event fsnotify.Event) (string, bool) {
	name := filepath.Base(event.Name)
	if !isDocFile(name) {
		return "", false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	id, ok := idFromFileName(name)
	if !ok {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.known[name]
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !existed {
			return "", false
		}
		delete(s.known, name)
		return id, true
	}
	sum := sha256.Sum256(data)
	if existed && sum == prev {
		return "", false
	}
	s.known[name] = sum
	return id, true
}

// ==================== Checkpoint Store ====================

// checkpointStore keeps all checkpoints in one reserved file.
type checkpointStore struct {
	store *Store
}

func (c *checkpointStore) load() (map[string]domain.Checkpoint, error) {
	cps := make(map[string]domain.Checkpoint)
	data, err := os.ReadFile(filepath.Join(c.store.dir, checkpointFile))
	if errors.Is(err, fs.ErrNotExist) {
		return cps, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoints: %w", err)
	}
	if err := json.Unmarshal(data, &cps); err != nil {
		return nil, fmt.Errorf("decoding checkpoints: %w", err)
	}
	return cps, nil
}

// Get returns the checkpoint for an endpoint.
func (c *checkpointStore) Get(_ context.Context, endpoint string) (*domain.Checkpoint, error) {
	c.store.cpMu.Lock()
	defer c.store.cpMu.Unlock()

	cps, err := c.load()
	if err != nil {
		return nil, err
	}
	cp, ok := cps[endpoint]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cp, nil
}

// Save stores or updates a checkpoint.
func (c *checkpointStore) Save(_ context.Context, cp domain.Checkpoint) error {
	if cp.Endpoint == "" {
		return domain.ErrInvalidInput
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}

	c.store.cpMu.Lock()
	defer c.store.cpMu.Unlock()

	cps, err := c.load()
	if err != nil {
		return err
	}
	cps[cp.Endpoint] = cp
	data, err := json.MarshalIndent(cps, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoints: %w", err)
	}
	return writeAtomic(c.store.dir, checkpointFile, data)
}

// ==================== helpers ====================

func fileName(id string) string {
	return url.PathEscape(id) + docSuffix
}

func idFromFileName(name string) (string, bool) {
	id, err := url.PathUnescape(strings.TrimSuffix(name, docSuffix))
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

func isDocFile(name string) bool {
	return strings.HasSuffix(name, docSuffix) && !strings.HasPrefix(name, ".")
}

func readDoc(path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fd fileDoc
	if err := json.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return &domain.Document{ID: fd.ID, Rev: fd.Rev, Body: fd.Body, UpdatedAt: fd.UpdatedAt}, nil
}

// writeAtomic writes data to a temporary file and renames it into place.
func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
