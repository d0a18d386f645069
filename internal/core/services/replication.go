package services

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
	"github.com/custodia-labs/replisync/internal/logger"
)

// ModeListener receives status transitions of the handle for one mode.
type ModeListener func(mode domain.ReplicationMode, status domain.ReplicationStatus)

// JobHandle wraps the engine replicator for one replication mode.
type JobHandle struct {
	mode     domain.ReplicationMode
	repl     driven.Replicator
	token    driven.ListenerToken
	attached bool
}

// Mode returns the replication mode of the handle.
func (h *JobHandle) Mode() domain.ReplicationMode {
	return h.mode
}

// Start starts the underlying replicator.
func (h *JobHandle) Start() {
	h.repl.Start()
}

// Stop asks the underlying replicator to stop.
func (h *JobHandle) Stop() {
	h.repl.Stop()
}

// Status returns the replicator's point-in-time status.
func (h *JobHandle) Status() domain.ReplicationStatus {
	return h.repl.Status()
}

// ReplicationJobFactory builds replication configuration and owns the engine
// handles of one coordinator. Handles are created lazily, one per mode.
type ReplicationJobFactory struct {
	gateway  domain.GatewayConfig
	certs    driven.CertificateLoader
	sessions *SessionTokenCache
	engine   driven.ReplicatorFactory
	listener ModeListener

	mu       sync.Mutex
	handles  map[domain.ReplicationMode]*JobHandle
	building map[domain.ReplicationMode]chan struct{}
	closed   bool
}

// NewReplicationJobFactory creates a factory. The listener is attached to
// every handle the factory creates.
func NewReplicationJobFactory(
	gateway domain.GatewayConfig,
	certs driven.CertificateLoader,
	sessions *SessionTokenCache,
	engine driven.ReplicatorFactory,
	listener ModeListener,
) *ReplicationJobFactory {
	return &ReplicationJobFactory{
		gateway:  gateway,
		certs:    certs,
		sessions: sessions,
		engine:   engine,
		listener: listener,
		handles:  make(map[domain.ReplicationMode]*JobHandle),
		building: make(map[domain.ReplicationMode]chan struct{}),
	}
}

// BuildJob returns the handle for mode, creating it on first use.
// A repeated call returns the same handle and re-attaches the change
// listener if it was detached. Credential acquisition runs without the
// factory lock so Handle never waits on it; concurrent callers for the
// same mode wait for the first build instead of starting their own.
func (f *ReplicationJobFactory) BuildJob(ctx context.Context, mode domain.ReplicationMode) (*JobHandle, error) {
	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return nil, domain.ErrClosed
		}
		if h, ok := f.handles[mode]; ok {
			f.attach(h)
			f.mu.Unlock()
			return h, nil
		}
		wait, inFlight := f.building[mode]
		if !inFlight {
			done := make(chan struct{})
			f.building[mode] = done
			f.mu.Unlock()
			return f.build(ctx, mode, done)
		}
		f.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// build creates the replicator for mode outside the lock and memoises it.
// done is closed once the build settles, successful or not.
func (f *ReplicationJobFactory) build(ctx context.Context, mode domain.ReplicationMode, done chan struct{}) (h *JobHandle, err error) {
	defer func() {
		f.mu.Lock()
		delete(f.building, mode)
		close(done)
		keep := h != nil && !f.closed
		if keep {
			f.attach(h)
			f.handles[mode] = h
		}
		f.mu.Unlock()

		// The factory was closed while the credential was being acquired.
		if h != nil && !keep {
			_ = h.repl.Close()
			h, err = nil, domain.ErrClosed
		}
	}()

	cfg, err := f.buildConfig(ctx, mode)
	if err != nil {
		return nil, err
	}

	repl, err := f.engine.NewReplicator(cfg)
	if err != nil {
		return nil, fmt.Errorf("create replicator: %w", err)
	}

	logger.Debug("Created %s replicator for %s", mode, cfg.Endpoint)
	return &JobHandle{mode: mode, repl: repl}, nil
}

// Handle returns the existing handle for mode without building one.
func (f *ReplicationJobFactory) Handle(mode domain.ReplicationMode) (*JobHandle, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.handles[mode]
	return h, ok
}

// detach removes the change listener from the handle for mode.
// A later BuildJob re-attaches it.
func (f *ReplicationJobFactory) detach(mode domain.ReplicationMode) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.handles[mode]; ok && h.attached {
		h.repl.RemoveChangeListener(h.token)
		h.attached = false
	}
}

// Close stops and releases every handle.
func (f *ReplicationJobFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	var errs []error
	for mode, h := range f.handles {
		if h.attached {
			h.repl.RemoveChangeListener(h.token)
			h.attached = false
		}
		if err := h.repl.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s replicator: %w", mode, err))
		}
		delete(f.handles, mode)
	}
	return errors.Join(errs...)
}

// attach registers the mode listener on h (caller must hold lock).
func (f *ReplicationJobFactory) attach(h *JobHandle) {
	if h.attached || f.listener == nil {
		return
	}
	mode := h.mode
	listener := f.listener
	h.token = h.repl.AddChangeListener(func(status domain.ReplicationStatus) {
		listener(mode, status)
	})
	h.attached = true
}

// buildConfig resolves the pinned certificate and session credential for a job.
func (f *ReplicationJobFactory) buildConfig(ctx context.Context, mode domain.ReplicationMode) (domain.ReplicatorConfig, error) {
	if f.gateway.Host == "" {
		return domain.ReplicatorConfig{}, domain.ErrGatewayNotConfigured
	}

	cert, err := f.pinnedCert()
	if err != nil {
		return domain.ReplicatorConfig{}, err
	}

	cred, err := f.sessions.GetCredential(ctx, f.gateway.SessionBaseURL())
	if err != nil {
		return domain.ReplicatorConfig{}, fmt.Errorf("%w: %w", domain.ErrAuth, err)
	}

	return domain.ReplicatorConfig{
		Endpoint:   f.gateway.ReplicationURL(),
		Direction:  domain.DirectionPull,
		Session:    *cred,
		PinnedCert: cert,
		Continuous: mode == domain.ModeContinuous,
	}, nil
}

// pinnedCert reads the certificate resource and returns its DER bytes.
// Both PEM and raw DER resources are accepted.
func (f *ReplicationJobFactory) pinnedCert() ([]byte, error) {
	if f.certs == nil {
		return nil, fmt.Errorf("%w: no certificate loader", domain.ErrCertificateUnreadable)
	}
	raw, err := f.certs.ReadCert(f.gateway.CertName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrCertificateUnreadable, f.gateway.CertName, err)
	}
	return ParseCertificate(raw)
}

// ParseCertificate decodes a PEM or DER X.509 certificate and returns its DER bytes.
func ParseCertificate(raw []byte) ([]byte, error) {
	der := raw
	if block, _ := pem.Decode(raw); block != nil {
		der = block.Bytes
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCertificateUnreadable, err)
	}
	return cert.Raw, nil
}
