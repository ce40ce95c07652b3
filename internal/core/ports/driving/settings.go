package driving

import "github.com/custodia-labs/postop-collector/internal/core/domain"

// SettingsService manages collector settings.
type SettingsService interface {
	// Get retrieves the current settings: stored values over defaults.
	// Returns domain.ErrInvalidInput if a stored value cannot be parsed.
	Get() (*domain.Settings, error)

	// Save validates and persists every setting.
	Save(settings *domain.Settings) error

	// Set parses value for a single key, validates the result and persists it.
	Set(key, value string) error

	// Entries returns every known key with its effective value, in key order.
	Entries() ([]SettingEntry, error)

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings

	// Validate checks the current settings.
	Validate() error
}

// SettingEntry is one configuration key and its rendered value.
type SettingEntry struct {
	Key   string
	Value string

	// Stored is false when the value comes from the defaults.
	Stored bool
}
