package driven

// ConfigStore reads and writes flat, dot-separated settings keys such as
// "collection.workers". Typed getters return the zero value for a missing
// key or one whose value cannot be converted.
type ConfigStore interface {
	// Get returns the raw value and whether key is set.
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	// GetFloat widens integer values.
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set stores value and persists it straight away.
	Set(key string, value any) error
	Save() error
	Load() error

	// Path is where the store persists, or ":memory:".
	Path() string
}
