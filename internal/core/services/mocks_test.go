package services

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
)

// --- Access token provider ---

type mockTokenProvider struct {
	mu    sync.Mutex
	token string
	err   error
	calls int
	delay time.Duration
	// gate, when set, holds every call until it is closed.
	gate chan struct{}
}

func (m *mockTokenProvider) GetAccessToken(ctx context.Context) (string, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.calls++
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.err
}

// hold makes later calls block until the returned release func is called.
func (m *mockTokenProvider) hold(t *testing.T) (release func()) {
	t.Helper()
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)
	return release
}

func (m *mockTokenProvider) AuthMethod() domain.AuthMethod { return domain.AuthMethodStatic }

func (m *mockTokenProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Session exchanger ---

type mockExchanger struct {
	mu      sync.Mutex
	cred    *domain.SessionCredential
	err     error
	calls   int
	lastURL string
	lastTok string
}

func newMockExchanger() *mockExchanger {
	return &mockExchanger{cred: &domain.SessionCredential{
		SessionID:  "sess-1",
		CookieName: domain.SessionCookieName,
	}}
}

func (m *mockExchanger) Exchange(_ context.Context, baseURL, accessToken string) (*domain.SessionCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastURL = baseURL
	m.lastTok = accessToken
	if m.err != nil {
		return nil, m.err
	}
	if m.cred == nil {
		return nil, nil
	}
	c := *m.cred
	c.BaseURL = baseURL
	return &c, nil
}

func (m *mockExchanger) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Certificate loader ---

type mockCertLoader struct {
	certs map[string][]byte
}

func (m *mockCertLoader) ReadCert(name string) ([]byte, error) {
	c, ok := m.certs[name]
	if !ok {
		return nil, errors.New("no such certificate")
	}
	return c, nil
}

// testCertificate returns a self-signed certificate as PEM and DER.
func testCertificate(t *testing.T) (pemBytes, der []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "gateway.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"gateway.test"},
	}
	der, err = x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), der
}

// --- Replication engine ---

// fakeReplicator records Start/Stop calls and lets a test emit statuses.
type fakeReplicator struct {
	cfg domain.ReplicatorConfig

	mu        sync.Mutex
	starts    int
	stops     int
	closed    bool
	status    domain.ReplicationStatus
	listeners map[driven.ListenerToken]driven.StatusListener
	next      driven.ListenerToken
}

func (r *fakeReplicator) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
}

func (r *fakeReplicator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
}

func (r *fakeReplicator) Status() domain.ReplicationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *fakeReplicator) AddChangeListener(fn driven.StatusListener) driven.ListenerToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.listeners[r.next] = fn
	return r.next
}

func (r *fakeReplicator) RemoveChangeListener(token driven.ListenerToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, token)
}

func (r *fakeReplicator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// emit delivers a status to every listener on the caller's goroutine.
func (r *fakeReplicator) emit(status domain.ReplicationStatus) {
	r.mu.Lock()
	r.status = status
	fns := make([]driven.StatusListener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}

func (r *fakeReplicator) counts() (starts, stops int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts, r.stops
}

func (r *fakeReplicator) listenerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// fakeEngine is a driven.ReplicatorFactory handing out fakeReplicators.
type fakeEngine struct {
	mu      sync.Mutex
	created []*fakeReplicator
	err     error
	panics  bool
}

func (e *fakeEngine) NewReplicator(cfg domain.ReplicatorConfig) (driven.Replicator, error) {
	if e.panics {
		panic("engine exploded")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	r := &fakeReplicator{cfg: cfg, listeners: make(map[driven.ListenerToken]driven.StatusListener)}
	e.created = append(e.created, r)
	return r, nil
}

func (e *fakeEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.created)
}

// replicator returns the replicator created for the given mode.
func (e *fakeEngine) replicator(mode domain.ReplicationMode) *fakeReplicator {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.created {
		if r.cfg.Continuous == (mode == domain.ModeContinuous) {
			return r
		}
	}
	return nil
}

// --- Document store ---

type mockDocumentStore struct {
	mu      sync.Mutex
	docs    map[string]domain.Document
	changes chan domain.DocumentChange
	getErr  error
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{
		docs:    make(map[string]domain.Document),
		changes: make(chan domain.DocumentChange, 16),
	}
}

func (m *mockDocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	d, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (m *mockDocumentStore) List(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockDocumentStore) Save(_ context.Context, docs ...domain.Document) error {
	m.mu.Lock()
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		m.docs[d.ID] = d
		ids = append(ids, d.ID)
	}
	m.mu.Unlock()
	m.changes <- domain.DocumentChange{IDs: ids}
	return nil
}

func (m *mockDocumentStore) Delete(_ context.Context, ids ...string) error {
	m.mu.Lock()
	for _, id := range ids {
		delete(m.docs, id)
	}
	m.mu.Unlock()
	m.changes <- domain.DocumentChange{IDs: ids}
	return nil
}

func (m *mockDocumentStore) Changes(_ context.Context) <-chan domain.DocumentChange {
	return m.changes
}

// --- Scheduler store ---

type mockSchedulerStore struct {
	mu       sync.RWMutex
	tasks    map[string]*domain.ScheduledTask
	results  map[string][]domain.TaskResult
	saveErr  error
	listErr  error
	getErr   error
	pruneErr error
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks:   make(map[string]*domain.ScheduledTask),
		results: make(map[string][]domain.TaskResult),
	}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, exists := m.tasks[taskID]
	if !exists {
		return nil, nil
	}
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if task == nil {
		return domain.ErrInvalidInput
	}
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result == nil {
		return domain.ErrInvalidInput
	}
	m.results[result.TaskID] = append(m.results[result.TaskID], *result)
	return nil
}

func (m *mockSchedulerStore) Summarise(_ context.Context, taskID string) (*domain.ScheduleSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, exists := m.tasks[taskID]
	if !exists {
		return nil, nil
	}
	summary := &domain.ScheduleSummary{Task: *task}
	for _, r := range m.results[taskID] {
		summary.Requests++
		if r.Success {
			summary.FailureStreak = 0
		} else {
			summary.Failures++
			summary.FailureStreak++
		}
		summary.LastAttempt = r.Attempt
		summary.LastRequest = r.StartedAt
	}
	return summary, nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, _ int) error {
	return m.pruneErr
}

func (m *mockSchedulerStore) resultCount(taskID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.results[taskID])
}

// Ensure mocks implement interfaces.
var (
	_ driven.AccessTokenProvider = (*mockTokenProvider)(nil)
	_ driven.SessionExchanger    = (*mockExchanger)(nil)
	_ driven.CertificateLoader   = (*mockCertLoader)(nil)
	_ driven.ReplicatorFactory   = (*fakeEngine)(nil)
	_ driven.DocumentStore       = (*mockDocumentStore)(nil)
	_ driven.SchedulerStore      = (*mockSchedulerStore)(nil)
)
