package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driving"
	"github.com/custodia-labs/replisync/internal/core/services"
)

// mockCoordinator is a mock implementation of driving.SyncCoordinator.
type mockCoordinator struct {
	hub     *services.StatusHub
	contHub *services.StatusHub

	mu         sync.Mutex
	requests   int
	continuous bool
	state      domain.SyncState
	job        *domain.JobInfo
}

func newMockCoordinator() *mockCoordinator {
	return &mockCoordinator{
		hub:     services.NewStatusHub(domain.StatusEvent{}),
		contHub: services.NewStatusHub(domain.StatusEvent{}),
	}
}

func (m *mockCoordinator) RequestSync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	m.state = domain.SyncRunning
	m.job = &domain.JobInfo{ID: "job-1", Mode: domain.ModeOneShot, Attempt: m.requests, StartedAt: time.Unix(100, 0).UTC()}
}

func (m *mockCoordinator) SetContinuous(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.continuous = enabled
}

func (m *mockCoordinator) Subscribe(ctx context.Context) <-chan domain.StatusEvent {
	return m.hub.Subscribe(ctx)
}

func (m *mockCoordinator) SubscribeContinuous(ctx context.Context) <-chan domain.StatusEvent {
	return m.contHub.Subscribe(ctx)
}

func (m *mockCoordinator) RefreshStatus() {}

func (m *mockCoordinator) State() domain.SyncState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockCoordinator) ContinuousRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.continuous
}

func (m *mockCoordinator) InFlight() (domain.JobInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.job == nil {
		return domain.JobInfo{}, false
	}
	return *m.job, true
}

func (m *mockCoordinator) Close() error { return nil }

// mockDocuments is a mock DocumentReader.
type mockDocuments struct {
	docs []domain.Document
	err  error
}

func (m *mockDocuments) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			d := m.docs[i]
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocuments) List(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

var _ driving.SyncCoordinator = (*mockCoordinator)(nil)
