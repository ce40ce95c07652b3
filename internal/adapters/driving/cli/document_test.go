package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

// Document Command Tests

func TestDocumentCmd_Use(t *testing.T) {
	assert.Equal(t, "document", documentCmd.Use)
}

func TestDocumentCmd_Short(t *testing.T) {
	assert.Equal(t, "Manage collected documents", documentCmd.Short)
}

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	commands := documentCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "list")
	assert.Contains(t, commandNames, "get")
	assert.Contains(t, commandNames, "search")
	assert.Contains(t, commandNames, "delete")
}

// Document List Tests

func TestDocumentListCmd_Use(t *testing.T) {
	assert.Equal(t, "list [procedure]", documentListCmd.Use)
	assert.Contains(t, documentListCmd.Long, "orthopedic")
}

func TestDocumentListCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute("document", "list")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestDocumentListCmd_ExecutesWithArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("document", "list", "Orthopedic")

	require.NoError(t, err)
	assert.Contains(t, out, "Documents for Orthopedic")
	assert.Contains(t, out, testHash)
	assert.Contains(t, out, "orthopedic | high | confidence 0.82")
	assert.NotContains(t, out, testOtherHash)
	assert.Contains(t, out, "Total: 1 documents")
}

func TestDocumentListCmd_MinConfidenceFilters(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("document", "list", "orthopedic", "--min-confidence", "0.9")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents found for procedure: orthopedic")
}

func TestDocumentListCmd_UnknownProcedure(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("document", "list", "podiatry")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), `unknown procedure "podiatry"`)
}

// Document Get Tests

func TestDocumentGetCmd_Use(t *testing.T) {
	assert.Equal(t, "get [hash]", documentGetCmd.Use)
}

func TestDocumentGetCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute("document", "get")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestDocumentGetCmd_ExecutesWithArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("document", "get", testHash)

	require.NoError(t, err)
	assert.Contains(t, out, "Document: "+testHash)
	assert.Contains(t, out, "URL:        https://hospital.example.org/leaflets/knee-replacement.pdf")
	assert.Contains(t, out, "Procedure:  Orthopedic")
	assert.Contains(t, out, "Pages:      3")
	assert.Contains(t, out, "Timeline:")
	assert.Contains(t, out, "- keep the wound dry for 48 hours")
	assert.Contains(t, out, "Warning signs:")
	assert.NotContains(t, out, "Medications:")
	assert.NotContains(t, out, "Text:")
	assert.NotContains(t, out, "[procedure")
}

func TestDocumentGetCmd_WithTextAndAnalyses(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("document", "get", testHash, "--text", "--analyses")

	require.NoError(t, err)
	assert.Contains(t, out, "keep the wound dry for 48 hours.")
	assert.Contains(t, out, "[procedure v1.0.0] confidence 0.90")
	assert.Contains(t, out, `"category": "orthopedic"`)
}

func TestDocumentGetCmd_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("document", "get", "abc123")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Document Search Tests

func TestDocumentSearchCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name: "no filters lists everything by confidence",
			args: []string{"document", "search"},
			want: []string{testHash, testOtherHash, "Total: 2 documents"},
		},
		{
			name:    "text",
			args:    []string{"document", "search", "eye drops"},
			want:    []string{testOtherHash},
			notWant: []string{testHash},
		},
		{
			name:    "procedure filter",
			args:    []string{"document", "search", "-p", "ophthalmic"},
			want:    []string{testOtherHash},
			notWant: []string{testHash},
		},
		{
			name:    "quality filter",
			args:    []string{"document", "search", "--quality", "HIGH"},
			want:    []string{testHash},
			notWant: []string{testOtherHash},
		},
		{
			name:    "confidence range",
			args:    []string{"document", "search", "--min-confidence", "0.5", "--max-confidence", "0.6"},
			want:    []string{testOtherHash},
			notWant: []string{testHash},
		},
		{
			name: "offset past the end",
			args: []string{"document", "search", "--offset", "5"},
			want: []string{"No documents found."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cleanup := setupTestServices()
			defer cleanup()

			out, err := execute(tt.args...)

			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out, w)
			}
		})
	}
}

func TestDocumentSearchCmd_InvalidFilters(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown procedure", []string{"document", "search", "-p", "podiatry"}},
		{"unknown quality", []string{"document", "search", "--quality", "excellent"}},
		{"confidence above one", []string{"document", "search", "--min-confidence", "2"}},
		{"inverted range", []string{"document", "search", "--min-confidence", "0.8", "--max-confidence", "0.2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cleanup := setupTestServices()
			defer cleanup()

			_, err := execute(tt.args...)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

// Document Delete Tests

func TestDocumentDeleteCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("document", "delete", testHash)

	require.NoError(t, err)
	assert.Contains(t, out, "Deleted document: "+testHash)

	_, err = ts.store.GetDocument(context.Background(), testHash)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentDeleteCmd_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("document", "delete", "abc123")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete document")
}

// Service Not Configured Tests

func TestDocumentCmds_ServiceNotConfigured(t *testing.T) {
	oldService := documentService
	documentService = nil
	defer func() {
		documentService = oldService
	}()

	for _, args := range [][]string{
		{"document", "list", "orthopedic"},
		{"document", "get", testHash},
		{"document", "search", "knee"},
		{"document", "delete", testHash},
		{"stats"},
	} {
		_, err := execute(args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "document service not configured")
	}
}
