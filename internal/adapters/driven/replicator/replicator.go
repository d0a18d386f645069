package replicator

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
	"github.com/custodia-labs/replisync/internal/logger"
)

// maxMessageSize bounds a single changes batch.
const maxMessageSize = 32 << 20

var (
	errCertMismatch = errors.New("server certificate does not match pinned certificate")
	errFeedClosed   = errors.New("changes feed closed by server")
)

// Ensure Factory and Replicator implement the interfaces.
var (
	_ driven.ReplicatorFactory = (*Factory)(nil)
	_ driven.Replicator        = (*Replicator)(nil)
)

// Factory creates websocket replicators that write into a local store.
type Factory struct {
	docs        driven.DocumentStore
	checkpoints driven.CheckpointStore
	backoff     func() backoff.BackOff
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithBackOff overrides the reconnect policy of continuous replicators.
func WithBackOff(newBackOff func() backoff.BackOff) FactoryOption {
	return func(f *Factory) {
		f.backoff = newBackOff
	}
}

// NewFactory creates a replicator factory.
func NewFactory(docs driven.DocumentStore, checkpoints driven.CheckpointStore, opts ...FactoryOption) *Factory {
	f := &Factory{
		docs:        docs,
		checkpoints: checkpoints,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 2 * time.Minute
			return b
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewReplicator creates a stopped replicator for cfg.
func (f *Factory) NewReplicator(cfg domain.ReplicatorConfig) (driven.Replicator, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: empty endpoint", domain.ErrInvalidInput)
	}
	if cfg.Direction != "" && cfg.Direction != domain.DirectionPull {
		return nil, fmt.Errorf("%w: unsupported direction %q", domain.ErrInvalidInput, cfg.Direction)
	}
	return &Replicator{
		cfg:         cfg,
		docs:        f.docs,
		checkpoints: f.checkpoints,
		newBackOff:  f.backoff,
		client:      newHTTPClient(cfg.PinnedCert),
		listeners:   make(map[driven.ListenerToken]driven.StatusListener),
	}, nil
}

// Replicator pulls one endpoint's changes feed into the local store.
type Replicator struct {
	cfg         domain.ReplicatorConfig
	docs        driven.DocumentStore
	checkpoints driven.CheckpointStore
	newBackOff  func() backoff.BackOff
	client      *http.Client

	// emitMu orders status emissions across consecutive runs.
	emitMu sync.Mutex

	mu        sync.Mutex
	status    domain.ReplicationStatus
	listeners map[driven.ListenerToken]driven.StatusListener
	nextToken driven.ListenerToken
	running   bool
	stopping  bool
	restart   bool
	cancel    context.CancelFunc
	closed    bool
	wg        sync.WaitGroup
}

// Start begins replication in the background. Starting a replicator that is
// still shutting down restarts it once the previous run has finished.
func (r *Replicator) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if r.running {
		if r.stopping {
			r.restart = true
		}
		return
	}
	r.launchLocked()
}

// Stop cancels the current run. The replicator reports stopped when it exits.
func (r *Replicator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.restart = false
	if !r.running || r.stopping {
		return
	}
	r.stopping = true
	r.cancel()
}

// Status returns the last emitted status.
func (r *Replicator) Status() domain.ReplicationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// AddChangeListener registers fn for status transitions.
func (r *Replicator) AddChangeListener(fn driven.StatusListener) driven.ListenerToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextToken++
	r.listeners[r.nextToken] = fn
	return r.nextToken
}

// RemoveChangeListener unregisters a listener.
func (r *Replicator) RemoveChangeListener(token driven.ListenerToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, token)
}

// Close stops the replicator and waits for its run to exit.
func (r *Replicator) Close() error {
	r.mu.Lock()
	r.closed = true
	r.restart = false
	if r.running && !r.stopping {
		r.stopping = true
		r.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

// launchLocked starts a run goroutine (caller must hold lock).
func (r *Replicator) launchLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	r.running = true
	r.stopping = false
	r.cancel = cancel
	r.wg.Add(1)
	go r.run(ctx)
}

// run executes one start-to-stop cycle.
func (r *Replicator) run(ctx context.Context) {
	defer r.wg.Done()

	var progress domain.Progress
	var err error
	if r.cfg.Continuous {
		err = r.runContinuous(ctx, &progress)
	} else {
		err = r.pull(ctx, &progress, nil)
	}
	if ctx.Err() != nil {
		err = nil
	}

	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	r.cancel()
	if r.restart && !r.closed {
		r.restart = false
		r.launchLocked()
		r.mu.Unlock()
		return
	}
	r.running = false
	r.stopping = false
	r.status = domain.ReplicationStatus{Activity: domain.ActivityStopped, Progress: progress, Err: err}
	listeners := r.snapshotLocked()
	status := r.status
	r.mu.Unlock()

	if err != nil {
		logger.Warn("Replication of %s stopped: %v", r.cfg.Endpoint, err)
	}
	for _, fn := range listeners {
		fn(status)
	}
}

// runContinuous keeps a continuous feed connected, reconnecting with backoff.
func (r *Replicator) runContinuous(ctx context.Context, progress *domain.Progress) error {
	b := r.newBackOff()
	operation := func() (struct{}, error) {
		err := r.pull(ctx, progress, b.Reset)
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = errFeedClosed
		}
		r.emit(domain.ReplicationStatus{Activity: domain.ActivityOffline, Progress: *progress, Err: err})
		if isAuthFailure(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug("Reconnecting to %s in %s: %v", r.cfg.Endpoint, next, err)
		}),
	)
	return err
}

// pull connects once and applies batches until caught up (one-shot) or
// until the connection ends (continuous). onConnected is called after the
// feed options have been accepted.
func (r *Replicator) pull(ctx context.Context, progress *domain.Progress, onConnected func()) error {
	r.emit(domain.ReplicationStatus{Activity: domain.ActivityConnecting, Progress: *progress})

	conn, err := r.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageSize)

	since := r.loadCheckpoint(ctx)
	opts, err := json.Marshal(feedOptions{
		Since:       since,
		IncludeDocs: true,
		Style:       "main_only",
		Continuous:  r.cfg.Continuous,
	})
	if err != nil {
		return fmt.Errorf("encode feed options: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, opts); err != nil {
		return fmt.Errorf("send feed options: %w", err)
	}
	if onConnected != nil {
		onConnected()
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read changes: %w", err)
		}

		var batch []changeEntry
		if err := json.Unmarshal(data, &batch); err != nil {
			return fmt.Errorf("decode changes: %w", err)
		}

		if len(batch) == 0 {
			if !r.cfg.Continuous {
				_ = conn.Close(websocket.StatusNormalClosure, "caught up")
				return nil
			}
			r.emit(domain.ReplicationStatus{Activity: domain.ActivityIdle, Progress: *progress})
			continue
		}

		progress.Total += uint64(len(batch))
		r.emit(domain.ReplicationStatus{Activity: domain.ActivityBusy, Progress: *progress})

		if err := r.apply(ctx, batch); err != nil {
			return err
		}
		progress.Completed += uint64(len(batch))
		r.emit(domain.ReplicationStatus{Activity: domain.ActivityBusy, Progress: *progress})
	}
}

// apply writes a batch to the local store and advances the checkpoint.
func (r *Replicator) apply(ctx context.Context, batch []changeEntry) error {
	upserts, deletes, lastSeq := splitBatch(batch)

	if len(upserts) > 0 {
		now := time.Now().UTC()
		for i := range upserts {
			upserts[i].UpdatedAt = now
		}
		if err := r.docs.Save(ctx, upserts...); err != nil {
			return fmt.Errorf("save documents: %w", err)
		}
	}
	if len(deletes) > 0 {
		if err := r.docs.Delete(ctx, deletes...); err != nil {
			return fmt.Errorf("delete documents: %w", err)
		}
	}

	if lastSeq != "" && r.checkpoints != nil {
		cp := domain.Checkpoint{Endpoint: r.cfg.Endpoint, Since: lastSeq, UpdatedAt: time.Now().UTC()}
		if err := r.checkpoints.Save(ctx, cp); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
	}
	return nil
}

// loadCheckpoint returns the last pulled sequence, or "" to start from zero.
func (r *Replicator) loadCheckpoint(ctx context.Context) string {
	if r.checkpoints == nil {
		return ""
	}
	cp, err := r.checkpoints.Get(ctx, r.cfg.Endpoint)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Checkpoint for %s unavailable: %v", r.cfg.Endpoint, err)
		}
		return ""
	}
	return cp.Since
}

// dial opens the changes feed websocket with the session cookie.
func (r *Replicator) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if r.cfg.Session.SessionID != "" {
		name := r.cfg.Session.CookieName
		if name == "" {
			name = domain.SessionCookieName
		}
		header.Set("Cookie", (&http.Cookie{Name: name, Value: r.cfg.Session.SessionID}).String())
	}

	url := r.cfg.Endpoint + "/_changes?feed=websocket"
	conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: r.client,
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil {
			return nil, &dialError{status: resp.StatusCode, err: err}
		}
		return nil, fmt.Errorf("dial %s: %w", r.cfg.Endpoint, err)
	}
	return conn, nil
}

// emit records status and notifies listeners in order.
func (r *Replicator) emit(status domain.ReplicationStatus) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	r.status = status
	listeners := r.snapshotLocked()
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(status)
	}
}

func (r *Replicator) snapshotLocked() []driven.StatusListener {
	listeners := make([]driven.StatusListener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

// dialError carries the HTTP status of a rejected websocket handshake.
type dialError struct {
	status int
	err    error
}

func (e *dialError) Error() string {
	return fmt.Sprintf("handshake rejected with status %d: %v", e.status, e.err)
}

func (e *dialError) Unwrap() error {
	return e.err
}

// isAuthFailure reports whether err is a handshake rejected for credentials.
// The session is never refreshed, so retrying cannot succeed.
func isAuthFailure(err error) bool {
	var de *dialError
	if !errors.As(err, &de) {
		return false
	}
	return de.status == http.StatusUnauthorized || de.status == http.StatusForbidden
}

// newHTTPClient returns a client that only trusts the pinned certificate.
// Without a pinned certificate the system roots are used.
func newHTTPClient(pinned []byte) *http.Client {
	if len(pinned) == 0 {
		return &http.Client{}
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			// Chain verification is replaced by the exact match below.
			InsecureSkipVerify: true, //nolint:gosec // pinned certificate check
			VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
				if len(rawCerts) == 0 || !bytes.Equal(rawCerts[0], pinned) {
					return errCertMismatch
				}
				return nil
			},
		},
	}
	return &http.Client{Transport: transport}
}
