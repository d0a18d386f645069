package driving

import "github.com/custodia-labs/replisync/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, filling defaults for
	// anything not configured.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetGateway configures the gateway host and pinned certificate name.
	SetGateway(host, certName string) error

	// SetAuthMethod selects how access tokens are acquired.
	SetAuthMethod(method domain.AuthMethod) error

	// Validate checks if the current settings are usable for replication.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// GetSchedulerConfig returns the scheduler configuration.
	GetSchedulerConfig() domain.SchedulerConfig
}
