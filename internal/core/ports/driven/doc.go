// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - AccessTokenProvider: Acquires the identity-provider access token
//   - SessionExchanger: Trades an access token for a gateway session
//   - ReplicatorFactory / Replicator: The replication engine
//   - CertificateLoader: Reads the pinned server certificate
//   - DocumentStore: Local document persistence and mutation feed
//   - CheckpointStore: Pull progress persistence
//   - TokenStore: OAuth token persistence
//   - SchedulerStore: Scheduled task persistence
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
