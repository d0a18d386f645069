package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/replisync/internal/adapters/driven/storage/feed"
	"github.com/custodia-labs/replisync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
)

// DatabaseName is the file name of the local replica inside the data directory.
const DatabaseName = "replisync.db"

// Store is a unified SQLite-based storage that provides access to
// the replica, checkpoint, token and scheduler stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	feed *feed.Feed
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.replisync/data/replisync.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".replisync", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseName)

	// WAL lets the watcher read while the replicator writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		feed: feed.New(),
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close ends change subscriptions and closes the database connection.
func (s *Store) Close() error {
	s.feed.Close()
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// CheckpointStore returns a CheckpointStore interface backed by this store.
func (s *Store) CheckpointStore() driven.CheckpointStore {
	return &checkpointStore{store: s}
}

// TokenStore returns a TokenStore interface backed by this store.
func (s *Store) TokenStore() driven.TokenStore {
	return &tokenStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// Get retrieves a document by ID.
func (s *documentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, rev, body, updated_at FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	var body sql.NullString
	var updatedAt string
	if err := row.Scan(&doc.ID, &doc.Rev, &body, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	if body.Valid {
		doc.Body = []byte(body.String)
	}
	doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &doc, nil
}

// List returns all documents ordered by ID.
func (s *documentStore) List(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, rev, body, updated_at FROM documents ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		var body sql.NullString
		var updatedAt string
		if err := rows.Scan(&doc.ID, &doc.Rev, &body, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if body.Valid {
			doc.Body = []byte(body.String)
		}
		doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Save stores or updates documents in one transaction and publishes one change.
func (s *documentStore) Save(ctx context.Context, docs ...domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if doc.ID == "" {
			return domain.ErrInvalidInput
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		updatedAt := doc.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		var body any
		if doc.Body != nil {
			body = string(doc.Body)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, rev, body, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				rev = excluded.rev,
				body = excluded.body,
				updated_at = excluded.updated_at
		`, doc.ID, doc.Rev, body, updatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("saving document %s: %w", doc.ID, err)
		}
		ids = append(ids, doc.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing documents: %w", err)
	}
	s.store.feed.Publish(ids...)
	return nil
}

// Delete removes documents in one transaction and publishes one change.
func (s *documentStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting document %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing deletes: %w", err)
	}
	s.store.feed.Publish(ids...)
	return nil
}

// Changes returns the mutation feed of this store.
func (s *documentStore) Changes(ctx context.Context) <-chan domain.DocumentChange {
	return s.store.feed.Subscribe(ctx)
}

// ==================== Checkpoint Store ====================

// checkpointStore implements driven.CheckpointStore.
type checkpointStore struct {
	store *Store
}

var _ driven.CheckpointStore = (*checkpointStore)(nil)

// Get returns the checkpoint for an endpoint.
func (s *checkpointStore) Get(ctx context.Context, endpoint string) (*domain.Checkpoint, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT endpoint, since, updated_at FROM checkpoints WHERE endpoint = ?
	`, endpoint)

	var cp domain.Checkpoint
	var updatedAt string
	if err := row.Scan(&cp.Endpoint, &cp.Since, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning checkpoint: %w", err)
	}
	cp.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &cp, nil
}

// Save stores or updates a checkpoint.
func (s *checkpointStore) Save(ctx context.Context, cp domain.Checkpoint) error {
	if cp.Endpoint == "" {
		return domain.ErrInvalidInput
	}
	updatedAt := cp.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO checkpoints (endpoint, since, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			since = excluded.since,
			updated_at = excluded.updated_at
	`, cp.Endpoint, cp.Since, updatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// ==================== Token Store ====================

// tokenStore implements driven.TokenStore.
type tokenStore struct {
	store *Store
}

var _ driven.TokenStore = (*tokenStore)(nil)

// GetToken returns the stored OAuth token for a client.
func (s *tokenStore) GetToken(ctx context.Context, clientID string) (*domain.OAuthToken, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, token_type, expiry
		FROM oauth_tokens WHERE client_id = ?
	`, clientID)

	var token domain.OAuthToken
	var refresh, tokenType, expiry sql.NullString
	if err := row.Scan(&token.AccessToken, &refresh, &tokenType, &expiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning token: %w", err)
	}
	token.RefreshToken = refresh.String
	token.TokenType = tokenType.String
	token.Expiry = parseNullableTime(expiry)
	return &token, nil
}

// SaveToken stores or replaces the OAuth token for a client.
func (s *tokenStore) SaveToken(ctx context.Context, clientID string, token domain.OAuthToken) error {
	if clientID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO oauth_tokens (client_id, access_token, refresh_token, token_type, expiry)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry
	`, clientID, token.AccessToken, nullString(token.RefreshToken),
		nullString(token.TokenType), formatNullableTime(token.Expiry))
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}
