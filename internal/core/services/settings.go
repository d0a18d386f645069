package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
	"github.com/custodia-labs/replisync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyGatewayHost       = "gateway.host"
	keyGatewayCertName   = "gateway.cert_name"
	keyCertsDir          = "certs.dir"
	keyAuthMethod        = "auth.method"
	keyAuthToken         = "auth.token"
	keyOAuthClientID     = "oauth.client_id"
	keyOAuthClientSecret = "oauth.client_secret"
	keyOAuthAuthURL      = "oauth.auth_url"
	keyOAuthTokenURL     = "oauth.token_url"
	keyOAuthScopes       = "oauth.scopes"
	keyStoreBackend      = "store.backend"
	keyStoreDir          = "store.dir"
	keySyncInterval      = "sync.interval_minutes"
	keyLogFile           = "log.file"
	keySchedulerEnabled  = "scheduler.enabled"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Gateway: domain.GatewayConfig{
			Host:     s.configStore.GetString(keyGatewayHost),
			CertName: s.getString(keyGatewayCertName, defaults.Gateway.CertName),
		},
		CertsDir: s.configStore.GetString(keyCertsDir),
		Auth: domain.AuthSettings{
			Method: s.getAuthMethod(defaults.Auth.Method),
			Token:  s.configStore.GetString(keyAuthToken),
		},
		OAuth: domain.OAuthConfig{
			ClientID:     s.configStore.GetString(keyOAuthClientID),
			ClientSecret: s.configStore.GetString(keyOAuthClientSecret),
			Scopes:       s.configStore.GetStringSlice(keyOAuthScopes),
			AuthURL:      s.configStore.GetString(keyOAuthAuthURL),
			TokenURL:     s.configStore.GetString(keyOAuthTokenURL),
		},
		Store: domain.StoreSettings{
			Backend: s.getBackend(defaults.Store.Backend),
			Dir:     s.configStore.GetString(keyStoreDir),
		},
		SyncInterval: s.getMinutes(keySyncInterval, defaults.SyncInterval),
		LogFile:      s.configStore.GetString(keyLogFile),
	}

	return settings, nil
}

// Save persists application settings. Secrets are only written when set.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyGatewayHost, settings.Gateway.Host},
		{keyGatewayCertName, settings.Gateway.CertName},
		{keyCertsDir, settings.CertsDir},
		{keyAuthMethod, string(settings.Auth.Method)},
		{keyOAuthClientID, settings.OAuth.ClientID},
		{keyOAuthAuthURL, settings.OAuth.AuthURL},
		{keyOAuthTokenURL, settings.OAuth.TokenURL},
		{keyOAuthScopes, settings.OAuth.Scopes},
		{keyStoreBackend, string(settings.Store.Backend)},
		{keyStoreDir, settings.Store.Dir},
		{keySyncInterval, int(settings.SyncInterval / time.Minute)},
		{keyLogFile, settings.LogFile},
	}
	if settings.Auth.Token != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyAuthToken, settings.Auth.Token})
	}
	if settings.OAuth.ClientSecret != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyOAuthClientSecret, settings.OAuth.ClientSecret})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetGateway configures the gateway host and pinned certificate name.
// An empty certName keeps the current one.
func (s *SettingsService) SetGateway(host, certName string) error {
	if host == "" {
		return domain.ErrGatewayNotConfigured
	}
	if err := s.configStore.Set(keyGatewayHost, host); err != nil {
		return fmt.Errorf("save gateway host: %w", err)
	}
	if certName != "" {
		if err := s.configStore.Set(keyGatewayCertName, certName); err != nil {
			return fmt.Errorf("save gateway cert name: %w", err)
		}
	}
	return nil
}

// SetAuthMethod selects how access tokens are acquired.
func (s *SettingsService) SetAuthMethod(method domain.AuthMethod) error {
	if !method.IsValid() {
		return fmt.Errorf("%w: unknown auth method %q", domain.ErrInvalidInput, method)
	}
	if err := s.configStore.Set(keyAuthMethod, string(method)); err != nil {
		return fmt.Errorf("save auth method: %w", err)
	}
	return nil
}

// Validate checks if current settings are usable for replication.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// GetSchedulerConfig returns the scheduler configuration. The sync task
// interval follows sync.interval_minutes.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()

	if _, exists := s.configStore.Get(keySchedulerEnabled); exists {
		cfg.Enabled = s.configStore.GetBool(keySchedulerEnabled)
	}

	task := cfg.TaskConfigs[domain.TaskIDReplicationSync]
	task.Interval = s.getMinutes(keySyncInterval, task.Interval)
	cfg.TaskConfigs[domain.TaskIDReplicationSync] = task

	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getMinutes(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * time.Minute
}

func (s *SettingsService) getAuthMethod(defaultVal domain.AuthMethod) domain.AuthMethod {
	val := s.configStore.GetString(keyAuthMethod)
	if val == "" {
		return defaultVal
	}
	// Unknown values are kept so Validate can report them.
	return domain.AuthMethod(val)
}

func (s *SettingsService) getBackend(defaultVal domain.StoreBackend) domain.StoreBackend {
	val := s.configStore.GetString(keyStoreBackend)
	if val == "" {
		return defaultVal
	}
	return domain.StoreBackend(val)
}
