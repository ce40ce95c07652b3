package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyOutputDirectory   = "output_directory"
	keyMaxPDFsPerSource  = "collection.max_pdfs_per_source"
	keyMaxPagesPerSite   = "collection.max_pages_per_site"
	keyMinConfidence     = "collection.min_confidence"
	keyWorkers           = "collection.workers"
	keyRequestsPerSecond = "http.max_requests_per_second"
	keyRequestTimeout    = "http.request_timeout"
	keyMaxFileSizeMB     = "http.max_file_size_mb"
	keyUserAgent         = "http.user_agent"
	keyVerifySSL         = "http.verify_ssl"
	keyProxyURL          = "http.proxy_url"
	keyEnableOCR         = "extraction.enable_ocr"
	keyMinTextLength     = "extraction.min_text_length"
	keySearchAPIKey      = "search.api_key"
	keySearchEngineID    = "search.search_engine_id"
	keySearchCacheTTL    = "search.cache_ttl"
	keyResultsPerPage    = "search.results_per_page"
	keyDatabaseDriver    = "database.driver"
	keyDatabaseURL       = "database.url"
	keyLogLevel          = "log.level"
	keyLogDir            = "log.dir"
	keySchedulerEnabled  = "scheduler.enabled"
	keySchedulerQueries  = "scheduler.queries"
	keySchedulerURLs     = "scheduler.urls"
)

// schedulerTaskKeys maps task IDs to their config table (underscore version for TOML).
var schedulerTaskKeys = map[string]string{
	domain.TaskIDScheduledCollection: "scheduled_collection",
	domain.TaskIDSearchCachePurge:    "search_cache_purge",
}

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindList
)

// setting binds a config key to a field of domain.Settings.
type setting struct {
	key    string
	kind   valueKind
	secret bool
	get    func(*domain.Settings) any
	set    func(*domain.Settings, any)
}

// SettingsService manages collector settings.
type SettingsService struct {
	configStore driven.ConfigStore
	settings    map[string]setting
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		settings:    make(map[string]setting),
	}
	for _, st := range settingTable() {
		s.settings[st.key] = st
	}
	return s
}

// Get retrieves current settings. Keys that are absent keep their default.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := domain.DefaultSettings()
	settings.Scheduler = cloneSchedulerConfig(settings.Scheduler)

	for _, key := range s.keys() {
		st := s.settings[key]
		if _, exists := s.configStore.Get(key); !exists {
			continue
		}
		val, err := s.read(st)
		if err != nil {
			return nil, err
		}
		st.set(&settings, val)
	}

	return &settings, nil
}

// Save validates and persists settings. An empty search API key is not
// written, so a key supplied through the environment never lands in the file.
func (s *SettingsService) Save(settings *domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	for _, key := range s.keys() {
		st := s.settings[key]
		val := st.get(settings)
		if st.secret && val == "" {
			continue
		}
		if err := s.configStore.Set(key, storedValue(st.kind, val)); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Set parses value according to the key's type, validates the resulting
// settings and persists the single key.
func (s *SettingsService) Set(key, value string) error {
	key = strings.TrimSpace(key)
	st, ok := s.settings[key]
	if !ok {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseValue(st.kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}

	current, err := s.Get()
	if err != nil {
		return err
	}
	st.set(current, parsed)
	if err := current.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, storedValue(st.kind, parsed)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Entries returns every key with its effective value. Secrets are masked.
func (s *SettingsService) Entries() ([]driving.SettingEntry, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}

	keys := s.keys()
	entries := make([]driving.SettingEntry, 0, len(keys))
	for _, key := range keys {
		st := s.settings[key]
		_, stored := s.configStore.Get(key)
		value := formatValue(st.kind, st.get(settings))
		if st.secret && value != "" {
			value = maskSecret(value)
		}
		entries = append(entries, driving.SettingEntry{Key: key, Value: value, Stored: stored})
	}
	return entries, nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetSchedulerConfig returns the scheduler configuration.
// Returns default configuration if the stored settings cannot be read.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	settings, err := s.Get()
	if err != nil {
		return domain.DefaultSchedulerConfig()
	}
	return settings.Scheduler
}

func (s *SettingsService) keys() []string {
	keys := make([]string, 0, len(s.settings))
	for key := range s.settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// read fetches a stored value in the setting's type.
func (s *SettingsService) read(st setting) (any, error) {
	switch st.kind {
	case kindInt:
		return s.configStore.GetInt(st.key), nil
	case kindFloat:
		return s.configStore.GetFloat(st.key), nil
	case kindBool:
		return s.configStore.GetBool(st.key), nil
	case kindList:
		return s.configStore.GetStringSlice(st.key), nil
	case kindDuration:
		raw := s.configStore.GetString(st.key)
		if raw == "" {
			// A bare TOML integer is taken as seconds.
			return time.Duration(s.configStore.GetInt(st.key)) * time.Second, nil
		}
		d, err := s.parseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, st.key, err)
		}
		return d, nil
	default:
		return s.configStore.GetString(st.key), nil
	}
}

// parseDuration parses a duration string.
func (s *SettingsService) parseDuration(str string) (time.Duration, error) {
	return time.ParseDuration(strings.TrimSpace(str))
}

func parseValue(kind valueKind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case kindInt:
		return strconv.Atoi(raw)
	case kindFloat:
		return strconv.ParseFloat(raw, 64)
	case kindBool:
		return strconv.ParseBool(raw)
	case kindDuration:
		return time.ParseDuration(raw)
	case kindList:
		var items []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		return items, nil
	default:
		return raw, nil
	}
}

// storedValue converts a setting to the form written to the config file.
// Durations are kept as strings such as "30s".
func storedValue(kind valueKind, val any) any {
	switch kind {
	case kindDuration:
		return val.(time.Duration).String()
	case kindList:
		if items, _ := val.([]string); items != nil {
			return items
		}
		return []string{}
	default:
		return val
	}
}

func formatValue(kind valueKind, val any) string {
	switch kind {
	case kindList:
		return strings.Join(val.([]string), ",")
	case kindDuration:
		return val.(time.Duration).String()
	case kindFloat:
		return strconv.FormatFloat(val.(float64), 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func maskSecret(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

func cloneSchedulerConfig(cfg domain.SchedulerConfig) domain.SchedulerConfig {
	tasks := make(map[string]domain.TaskConfig, len(cfg.TaskConfigs))
	for id, task := range cfg.TaskConfigs {
		tasks[id] = task
	}
	cfg.TaskConfigs = tasks
	return cfg
}

// settingTable lists every configurable key.
func settingTable() []setting {
	table := []setting{
		{
			key: keyOutputDirectory, kind: kindString,
			get: func(s *domain.Settings) any { return s.OutputDirectory },
			set: func(s *domain.Settings, v any) { s.OutputDirectory = v.(string) },
		},
		{
			key: keyMaxPDFsPerSource, kind: kindInt,
			get: func(s *domain.Settings) any { return s.Collection.MaxPDFsPerSource },
			set: func(s *domain.Settings, v any) { s.Collection.MaxPDFsPerSource = v.(int) },
		},
		{
			key: keyMaxPagesPerSite, kind: kindInt,
			get: func(s *domain.Settings) any { return s.Collection.MaxPagesPerSite },
			set: func(s *domain.Settings, v any) { s.Collection.MaxPagesPerSite = v.(int) },
		},
		{
			key: keyMinConfidence, kind: kindFloat,
			get: func(s *domain.Settings) any { return s.Collection.MinConfidence },
			set: func(s *domain.Settings, v any) { s.Collection.MinConfidence = v.(float64) },
		},
		{
			key: keyWorkers, kind: kindInt,
			get: func(s *domain.Settings) any { return s.Collection.Workers },
			set: func(s *domain.Settings, v any) { s.Collection.Workers = v.(int) },
		},
		{
			key: keyRequestsPerSecond, kind: kindFloat,
			get: func(s *domain.Settings) any { return s.HTTP.MaxRequestsPerSecond },
			set: func(s *domain.Settings, v any) { s.HTTP.MaxRequestsPerSecond = v.(float64) },
		},
		{
			key: keyRequestTimeout, kind: kindDuration,
			get: func(s *domain.Settings) any { return s.HTTP.RequestTimeout },
			set: func(s *domain.Settings, v any) { s.HTTP.RequestTimeout = v.(time.Duration) },
		},
		{
			key: keyMaxFileSizeMB, kind: kindInt,
			get: func(s *domain.Settings) any { return s.HTTP.MaxFileSizeMB },
			set: func(s *domain.Settings, v any) { s.HTTP.MaxFileSizeMB = v.(int) },
		},
		{
			key: keyUserAgent, kind: kindString,
			get: func(s *domain.Settings) any { return s.HTTP.UserAgent },
			set: func(s *domain.Settings, v any) { s.HTTP.UserAgent = v.(string) },
		},
		{
			key: keyVerifySSL, kind: kindBool,
			get: func(s *domain.Settings) any { return s.HTTP.VerifySSL },
			set: func(s *domain.Settings, v any) { s.HTTP.VerifySSL = v.(bool) },
		},
		{
			key: keyProxyURL, kind: kindString,
			get: func(s *domain.Settings) any { return s.HTTP.ProxyURL },
			set: func(s *domain.Settings, v any) { s.HTTP.ProxyURL = v.(string) },
		},
		{
			key: keyEnableOCR, kind: kindBool,
			get: func(s *domain.Settings) any { return s.Extraction.EnableOCR },
			set: func(s *domain.Settings, v any) { s.Extraction.EnableOCR = v.(bool) },
		},
		{
			key: keyMinTextLength, kind: kindInt,
			get: func(s *domain.Settings) any { return s.Extraction.MinTextLength },
			set: func(s *domain.Settings, v any) { s.Extraction.MinTextLength = v.(int) },
		},
		{
			key: keySearchAPIKey, kind: kindString, secret: true,
			get: func(s *domain.Settings) any { return s.Search.APIKey },
			set: func(s *domain.Settings, v any) { s.Search.APIKey = v.(string) },
		},
		{
			key: keySearchEngineID, kind: kindString,
			get: func(s *domain.Settings) any { return s.Search.SearchEngineID },
			set: func(s *domain.Settings, v any) { s.Search.SearchEngineID = v.(string) },
		},
		{
			key: keySearchCacheTTL, kind: kindDuration,
			get: func(s *domain.Settings) any { return s.Search.CacheTTL },
			set: func(s *domain.Settings, v any) { s.Search.CacheTTL = v.(time.Duration) },
		},
		{
			key: keyResultsPerPage, kind: kindInt,
			get: func(s *domain.Settings) any { return s.Search.ResultsPerPage },
			set: func(s *domain.Settings, v any) { s.Search.ResultsPerPage = v.(int) },
		},
		{
			key: keyDatabaseDriver, kind: kindString,
			get: func(s *domain.Settings) any { return s.Database.Driver.String() },
			set: func(s *domain.Settings, v any) {
				s.Database.Driver = domain.DatabaseDriver(strings.ToLower(v.(string)))
			},
		},
		{
			key: keyDatabaseURL, kind: kindString, secret: true,
			get: func(s *domain.Settings) any { return s.Database.URL },
			set: func(s *domain.Settings, v any) { s.Database.URL = v.(string) },
		},
		{
			key: keyLogLevel, kind: kindString,
			get: func(s *domain.Settings) any { return s.Log.Level },
			set: func(s *domain.Settings, v any) { s.Log.Level = v.(string) },
		},
		{
			key: keyLogDir, kind: kindString,
			get: func(s *domain.Settings) any { return s.Log.Dir },
			set: func(s *domain.Settings, v any) { s.Log.Dir = v.(string) },
		},
		{
			key: keySchedulerEnabled, kind: kindBool,
			get: func(s *domain.Settings) any { return s.Scheduler.Enabled },
			set: func(s *domain.Settings, v any) { s.Scheduler.Enabled = v.(bool) },
		},
		{
			key: keySchedulerQueries, kind: kindList,
			get: func(s *domain.Settings) any { return s.Scheduler.Queries },
			set: func(s *domain.Settings, v any) { s.Scheduler.Queries = v.([]string) },
		},
		{
			key: keySchedulerURLs, kind: kindList,
			get: func(s *domain.Settings) any { return s.Scheduler.URLs },
			set: func(s *domain.Settings, v any) { s.Scheduler.URLs = v.([]string) },
		},
	}

	for taskID, configKey := range schedulerTaskKeys {
		prefix := "scheduler." + configKey + "."
		table = append(table,
			setting{
				key: prefix + "enabled", kind: kindBool,
				get: func(s *domain.Settings) any { return s.Scheduler.GetTaskConfig(taskID).Enabled },
				set: func(s *domain.Settings, v any) {
					task := s.Scheduler.GetTaskConfig(taskID)
					task.Enabled = v.(bool)
					setTaskConfig(&s.Scheduler, taskID, task)
				},
			},
			setting{
				key: prefix + "interval", kind: kindDuration,
				get: func(s *domain.Settings) any { return s.Scheduler.GetTaskConfig(taskID).Interval },
				set: func(s *domain.Settings, v any) {
					task := s.Scheduler.GetTaskConfig(taskID)
					task.Interval = v.(time.Duration)
					setTaskConfig(&s.Scheduler, taskID, task)
				},
			},
		)
	}
	return table
}

func setTaskConfig(cfg *domain.SchedulerConfig, taskID string, task domain.TaskConfig) {
	if cfg.TaskConfigs == nil {
		cfg.TaskConfigs = make(map[string]domain.TaskConfig)
	}
	cfg.TaskConfigs[taskID] = task
}
