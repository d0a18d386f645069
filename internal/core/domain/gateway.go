package domain

import (
	"strings"
	"time"
)

// SessionCookieName is the cookie the gateway sets on a successful session exchange.
const SessionCookieName = "SyncGatewaySession"

// GatewayConfig identifies the remote sync endpoint.
type GatewayConfig struct {
	// Host is the gateway host including the database path, e.g. "sync.example.com/db".
	Host string

	// CertName is the name of the pinned server certificate resource.
	CertName string
}

// SessionBaseURL returns the HTTPS base URL used for the session exchange.
func (c GatewayConfig) SessionBaseURL() string {
	return "https://" + strings.TrimSuffix(c.Host, "/")
}

// ReplicationURL returns the secure websocket URL used for replication.
func (c GatewayConfig) ReplicationURL() string {
	return "wss://" + strings.TrimSuffix(c.Host, "/")
}

// SessionCredential is a gateway session obtained by exchanging an access token.
// It is never refreshed once cached.
type SessionCredential struct {
	// SessionID is the value of the session cookie.
	SessionID string

	// CookieName is the name of the session cookie.
	CookieName string

	// BaseURL is the URL the session was created against.
	BaseURL string

	// Expires is the cookie expiry reported by the gateway, if any.
	Expires time.Time
}

// IsExpired reports whether the gateway-reported expiry has passed.
// A zero expiry never expires.
func (c *SessionCredential) IsExpired() bool {
	if c.Expires.IsZero() {
		return false
	}
	return time.Now().After(c.Expires)
}

// ReplicatorConfig is the full configuration handed to the replication engine.
type ReplicatorConfig struct {
	// Endpoint is the secure streaming URL of the gateway.
	Endpoint string

	// Direction is always DirectionPull.
	Direction ReplicationDirection

	// Session authenticates the replication connection.
	Session SessionCredential

	// PinnedCert is the DER-encoded server certificate that must be presented.
	PinnedCert []byte

	// Continuous keeps the job connected after it catches up.
	Continuous bool
}
