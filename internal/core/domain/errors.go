package domain

import "errors"

// Domain errors represent coordination failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrClosed indicates the component has been shut down.
	ErrClosed = errors.New("closed")

	// Authentication Errors.

	// ErrNoAccessToken indicates the identity provider returned no access token.
	ErrNoAccessToken = errors.New("no access token")

	// ErrSessionRequestFailed indicates the gateway rejected the session exchange.
	ErrSessionRequestFailed = errors.New("session request failed")

	// ErrMissingSessionCookie indicates the session exchange succeeded
	// without returning a usable session cookie.
	ErrMissingSessionCookie = errors.New("missing session cookie")

	// Configuration Errors.

	// ErrCertificateUnreadable indicates the pinned certificate could not be read or parsed.
	ErrCertificateUnreadable = errors.New("certificate unreadable")

	// ErrAuth indicates a replication job could not be configured because
	// the session credential could not be obtained. It wraps the auth error.
	ErrAuth = errors.New("replication auth failed")

	// ErrGatewayNotConfigured indicates no gateway host is configured.
	ErrGatewayNotConfigured = errors.New("gateway host not configured")
)
