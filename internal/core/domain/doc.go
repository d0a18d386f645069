// Package domain defines the core entities of the replication coordinator.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ReplicationStatus: An engine-reported activity level with progress
//   - StatusEvent: A status stamped with the sync attempt that produced it
//   - SessionCredential: A gateway session obtained from an access token
//   - Document: A locally stored replicated document
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
