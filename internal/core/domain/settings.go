package domain

import (
	"fmt"
	"strings"
	"time"
)

// DatabaseDriver selects the metadata store backend.
type DatabaseDriver string

// Available database drivers.
const (
	// DatabaseSQLite is the embedded pure-Go SQLite store.
	DatabaseSQLite DatabaseDriver = "sqlite"

	// DatabasePostgres is a PostgreSQL server reached through DatabaseSettings.URL.
	DatabasePostgres DatabaseDriver = "postgres"
)

// IsValid returns true if the driver is recognised.
func (d DatabaseDriver) IsValid() bool {
	return d == DatabaseSQLite || d == DatabasePostgres
}

// String returns the string representation.
func (d DatabaseDriver) String() string {
	return string(d)
}

// Settings holds all collector configuration.
type Settings struct {
	// OutputDirectory receives the pdfs/ folder and, for SQLite, the database.
	OutputDirectory string

	Collection CollectionSettings
	HTTP       HTTPSettings
	Extraction ExtractionSettings
	Search     SearchSettings
	Database   DatabaseSettings
	Log        LogSettings
	Scheduler  SchedulerConfig
}

// CollectionSettings bounds the work a run performs.
type CollectionSettings struct {
	// MaxPDFsPerSource caps the PDFs processed from one crawled site.
	MaxPDFsPerSource int

	// MaxPagesPerSite caps distinct pages visited per crawl.
	MaxPagesPerSite int

	// MinConfidence is the relevance floor below which irrelevant documents are skipped.
	MinConfidence float64

	// Workers is the number of documents processed concurrently.
	Workers int
}

// HTTPSettings configures outbound fetching.
type HTTPSettings struct {
	MaxRequestsPerSecond float64
	RequestTimeout       time.Duration
	MaxFileSizeMB        int
	UserAgent            string
	VerifySSL            bool
	ProxyURL             string
}

// ExtractionSettings configures text extraction.
type ExtractionSettings struct {
	EnableOCR     bool
	MinTextLength int
}

// SearchSettings configures the search provider and its cache.
type SearchSettings struct {
	APIKey         string
	SearchEngineID string
	CacheTTL       time.Duration
	ResultsPerPage int
}

// DatabaseSettings selects and locates the metadata store.
type DatabaseSettings struct {
	Driver DatabaseDriver
	URL    string
}

// LogSettings configures logging.
type LogSettings struct {
	// Level is debug, info, warn or error.
	Level string

	// Dir enables daily log files when non-empty.
	Dir string
}

// DefaultSettings returns settings with the collector's defaults.
func DefaultSettings() Settings {
	return Settings{
		OutputDirectory: "./output",
		Collection: CollectionSettings{
			MaxPDFsPerSource: 10,
			MaxPagesPerSite:  50,
			MinConfidence:    0.5,
			Workers:          1,
		},
		HTTP: HTTPSettings{
			MaxRequestsPerSecond: 2.0,
			RequestTimeout:       30 * time.Second,
			MaxFileSizeMB:        50,
			UserAgent:            "PostOpPDFCollector/1.0",
			VerifySSL:            true,
		},
		Extraction: ExtractionSettings{
			MinTextLength: 100,
		},
		Search: SearchSettings{
			CacheTTL:       24 * time.Hour,
			ResultsPerPage: 10,
		},
		Database: DatabaseSettings{
			Driver: DatabaseSQLite,
		},
		Log: LogSettings{
			Level: "info",
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}

// MaxFileSizeBytes returns the body size limit in bytes.
func (s *Settings) MaxFileSizeBytes() int64 {
	return int64(s.HTTP.MaxFileSizeMB) * 1024 * 1024
}

// HasSearchCredentials reports whether the search provider can be used.
func (s *Settings) HasSearchCredentials() bool {
	return s.Search.APIKey != "" && s.Search.SearchEngineID != ""
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	var problems []string

	if s.Collection.MaxPDFsPerSource < 1 || s.Collection.MaxPDFsPerSource > 100 {
		problems = append(problems, "max_pdfs_per_source must be between 1 and 100")
	}
	if s.Collection.MaxPagesPerSite < 1 || s.Collection.MaxPagesPerSite > 500 {
		problems = append(problems, "max_pages_per_site must be between 1 and 500")
	}
	if s.Collection.MinConfidence < 0 || s.Collection.MinConfidence > 1 {
		problems = append(problems, "min_confidence_score must be between 0 and 1")
	}
	if s.Collection.Workers < 1 {
		problems = append(problems, "workers must be at least 1")
	}
	if s.HTTP.MaxRequestsPerSecond < 0 || s.HTTP.MaxRequestsPerSecond > 10 {
		problems = append(problems, "max_requests_per_second must be between 0 and 10")
	}
	if s.HTTP.RequestTimeout < 5*time.Second || s.HTTP.RequestTimeout > 300*time.Second {
		problems = append(problems, "request_timeout must be between 5 and 300 seconds")
	}
	if s.HTTP.MaxFileSizeMB < 1 || s.HTTP.MaxFileSizeMB > 500 {
		problems = append(problems, "max_file_size_mb must be between 1 and 500")
	}
	if s.Extraction.MinTextLength < 0 {
		problems = append(problems, "min_text_length must not be negative")
	}
	if s.Search.ResultsPerPage < 1 || s.Search.ResultsPerPage > 10 {
		problems = append(problems, "search results_per_page must be between 1 and 10")
	}
	if !s.Database.Driver.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown database driver %q", s.Database.Driver))
	}
	if s.Database.Driver == DatabasePostgres && s.Database.URL == "" {
		problems = append(problems, "database url is required for postgres")
	}

	for id, task := range s.Scheduler.TaskConfigs {
		if task.Enabled && task.Interval < time.Minute {
			problems = append(problems, fmt.Sprintf("scheduler task %s interval must be at least 1m", id))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}
