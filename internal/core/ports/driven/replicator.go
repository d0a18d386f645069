package driven

import "github.com/custodia-labs/replisync/internal/core/domain"

// ListenerToken identifies a registered change listener.
type ListenerToken uint64

// StatusListener is invoked on every status transition of a replicator.
// It is called from the replicator's own goroutine.
type StatusListener func(domain.ReplicationStatus)

// Replicator is an engine handle for one replication job.
// Start and Stop are safe to call from any goroutine and never block on I/O.
type Replicator interface {
	// Start begins replication. Starting a running replicator is a no-op.
	Start()

	// Stop requests the replicator to stop. The replicator reports
	// domain.ActivityStopped once it has stopped.
	Stop()

	// Status returns the current status.
	Status() domain.ReplicationStatus

	// AddChangeListener registers a listener for status transitions.
	AddChangeListener(fn StatusListener) ListenerToken

	// RemoveChangeListener unregisters a listener.
	RemoveChangeListener(token ListenerToken)

	// Close stops the replicator and releases its resources.
	Close() error
}

// ReplicatorFactory creates engine handles from configuration.
type ReplicatorFactory interface {
	NewReplicator(cfg domain.ReplicatorConfig) (Replicator, error)
}

// CertificateLoader reads named certificate resources.
type CertificateLoader interface {
	// ReadCert returns the raw bytes of the named certificate.
	ReadCert(name string) ([]byte, error)
}
