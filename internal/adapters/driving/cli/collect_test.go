package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driving"
)

func TestCollectCmd_Use(t *testing.T) {
	assert.Equal(t, "collect", collectCmd.Use)
	assert.NotNil(t, collectCmd.Flags().Lookup("query"))
	assert.NotNil(t, collectCmd.Flags().Lookup("url"))
	assert.NotNil(t, collectCmd.Flags().Lookup("workers"))
}

func TestCollectCmd_PassesRequest(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("collect",
		"-q", "knee replacement recovery",
		"--query", "hip protocol",
		"--url", "https://hospital.example.org/leaflets/",
		"--workers", "3",
		"--max-pdfs", "5",
	)

	require.NoError(t, err)
	require.Len(t, ts.collection.requests, 1)
	assert.Equal(t, driving.CollectionRequest{
		Queries:          []string{"knee replacement recovery", "hip protocol"},
		URLs:             []string{"https://hospital.example.org/leaflets/"},
		Workers:          3,
		MaxPDFsPerSource: 5,
	}, ts.collection.requests[0])
	assert.True(t, ts.collection.sawContext)

	assert.Contains(t, out, "Run: run-1")
	assert.Contains(t, out, "Status:      completed")
	assert.Contains(t, out, "Collected:   2")
	assert.Contains(t, out, "Success:     50%")
	assert.Contains(t, out, "Duration:    1m30s")
	assert.Contains(t, out, "status 404")
}

func TestCollectCmd_RequiresQueryOrURL(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("collect")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to collect")
	assert.Empty(t, ts.collection.requests)
}

func TestCollectCmd_FailedRunIsAnError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.collection.status = domain.RunFailed

	out, err := execute("collect", "--url", "https://a.org/x.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run run-1 failed")
	assert.Contains(t, out, "Status:      failed")
}

func TestCollectCmd_CancelledRunIsNotAnError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.collection.status = domain.RunCancelled

	out, err := execute("collect", "--url", "https://a.org/x.pdf")

	require.NoError(t, err)
	assert.Contains(t, out, "Status:      cancelled")
}

func TestCollectCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.collection.runErr = errors.New("database is locked")

	_, err := execute("collect", "-q", "knee")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection failed: database is locked")
}

func TestCollectCmd_ServiceNotConfigured(t *testing.T) {
	old := collectionService
	collectionService = nil
	defer func() { collectionService = old }()

	_, err := execute("collect", "-q", "knee")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection service not configured")
}

func TestPrintRun_UnfinishedRun(t *testing.T) {
	cmd, buf := newBufferedCommand()
	run := &domain.CollectionRun{
		ID:         "run-2",
		Status:     domain.RunRunning,
		StartedAt:  testStarted,
		Discovered: 3,
	}

	printRun(cmd, run, testStarted.Add(10*time.Second))

	out := buf.String()
	assert.Contains(t, out, "Duration:    10s")
	assert.NotContains(t, out, "Completed:")
	assert.NotContains(t, out, "Confidence:")
	assert.NotContains(t, out, "Errors")
}

func TestCommandContext_DefaultsToBackground(t *testing.T) {
	cmd := &cobra.Command{}
	assert.NotNil(t, commandContext(cmd))
}
