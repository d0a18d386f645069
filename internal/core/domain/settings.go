package domain

import (
	"fmt"
	"time"
)

// StoreBackend selects where replicated documents are kept.
type StoreBackend string

const (
	// StoreBackendSQLite keeps documents in the local SQLite database.
	StoreBackendSQLite StoreBackend = "sqlite"
	// StoreBackendMemory keeps documents in memory for the life of the process.
	StoreBackendMemory StoreBackend = "memory"
	// StoreBackendFiles keeps one JSON file per document in a directory.
	StoreBackendFiles StoreBackend = "files"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendSQLite, StoreBackendMemory, StoreBackendFiles:
		return true
	default:
		return false
	}
}

// IsValid returns true if the auth method is recognised.
func (m AuthMethod) IsValid() bool {
	switch m {
	case AuthMethodStatic, AuthMethodPrompt, AuthMethodOAuth:
		return true
	default:
		return false
	}
}

// AuthSettings selects how the identity-provider access token is acquired.
type AuthSettings struct {
	// Method is static, prompt or oauth.
	Method AuthMethod

	// Token is the static access token.
	Token string
}

// StoreSettings selects the local document store.
type StoreSettings struct {
	Backend StoreBackend

	// Dir holds the database, document files and state.
	// Empty means ~/.replisync/data.
	Dir string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Gateway identifies the remote sync endpoint.
	Gateway GatewayConfig

	// CertsDir is where named certificates are read from.
	// Empty means the embedded certificate set.
	CertsDir string

	Auth  AuthSettings
	OAuth OAuthConfig
	Store StoreSettings

	// SyncInterval is how often the daemon requests a one-shot sync.
	SyncInterval time.Duration

	// LogFile, when set, receives a rotated copy of the daemon log.
	LogFile string
}

// DefaultAppSettings returns settings with sensible defaults.
// The gateway host has no default and must be configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Gateway: GatewayConfig{CertName: "gateway"},
		Auth:    AuthSettings{Method: AuthMethodStatic},
		Store:   StoreSettings{Backend: StoreBackendSQLite},

		SyncInterval: DefaultSyncInterval,
	}
}

// Validate checks that the settings are usable for replication.
func (s AppSettings) Validate() error {
	if s.Gateway.Host == "" {
		return ErrGatewayNotConfigured
	}
	if s.Gateway.CertName == "" {
		return fmt.Errorf("%w: gateway.cert_name is empty", ErrInvalidInput)
	}
	if !s.Auth.Method.IsValid() {
		return fmt.Errorf("%w: unknown auth.method %q", ErrInvalidInput, s.Auth.Method)
	}
	if s.Auth.Method == AuthMethodOAuth && !s.OAuth.IsConfigured() {
		return fmt.Errorf("%w: oauth.client_id, oauth.auth_url and oauth.token_url are required",
			ErrInvalidInput)
	}
	if !s.Store.Backend.IsValid() {
		return fmt.Errorf("%w: unknown store.backend %q", ErrInvalidInput, s.Store.Backend)
	}
	if s.SyncInterval <= 0 {
		return fmt.Errorf("%w: sync interval must be positive", ErrInvalidInput)
	}
	return nil
}
