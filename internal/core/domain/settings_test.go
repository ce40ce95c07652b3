package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, "./output", s.OutputDirectory)
	assert.Equal(t, 10, s.Collection.MaxPDFsPerSource)
	assert.Equal(t, 50, s.Collection.MaxPagesPerSite)
	assert.Equal(t, 0.5, s.Collection.MinConfidence)
	assert.Equal(t, 2.0, s.HTTP.MaxRequestsPerSecond)
	assert.Equal(t, 30*time.Second, s.HTTP.RequestTimeout)
	assert.Equal(t, "PostOpPDFCollector/1.0", s.HTTP.UserAgent)
	assert.False(t, s.Extraction.EnableOCR)
	assert.Equal(t, DatabaseSQLite, s.Database.Driver)
	assert.Equal(t, int64(50*1024*1024), s.MaxFileSizeBytes())
	assert.False(t, s.HasSearchCredentials())
	require.NoError(t, s.Validate())
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantMsg string
	}{
		{"too many pdfs", func(s *Settings) { s.Collection.MaxPDFsPerSource = 101 }, "max_pdfs_per_source"},
		{"too few pages", func(s *Settings) { s.Collection.MaxPagesPerSite = 0 }, "max_pages_per_site"},
		{"confidence above one", func(s *Settings) { s.Collection.MinConfidence = 1.5 }, "min_confidence_score"},
		{"no workers", func(s *Settings) { s.Collection.Workers = 0 }, "workers"},
		{"rate too high", func(s *Settings) { s.HTTP.MaxRequestsPerSecond = 11 }, "max_requests_per_second"},
		{"timeout too short", func(s *Settings) { s.HTTP.RequestTimeout = time.Second }, "request_timeout"},
		{"file too big", func(s *Settings) { s.HTTP.MaxFileSizeMB = 501 }, "max_file_size_mb"},
		{"unknown driver", func(s *Settings) { s.Database.Driver = "mysql" }, "unknown database driver"},
		{"postgres without url", func(s *Settings) { s.Database.Driver = DatabasePostgres }, "database url"},
		{"scheduler interval too short", func(s *Settings) {
			s.Scheduler.TaskConfigs[TaskIDSearchCachePurge] = TaskConfig{Enabled: true, Interval: time.Second}
		}, "search-cache-purge"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSettings_ZeroRateIsAllowed(t *testing.T) {
	s := DefaultSettings()
	s.HTTP.MaxRequestsPerSecond = 0
	assert.NoError(t, s.Validate())
}
