// Package services implements the driving port interfaces.
// Services contain the coordination logic and call out to driven ports
// (adapters) for tokens, sessions, certificates and the replication engine.
//
// Services are pure Go with no CGO and no I/O of their own.
package services
