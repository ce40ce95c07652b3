package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
		_ = DisableFile()
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t)

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	buf := capture(t)
	SetVerbose(true)

	Debug("test message %s", "arg")

	assert.Equal(t, "[DEBUG] test message arg\n", buf.String())
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	buf := capture(t)
	SetVerbose(false)

	Debug("test message")

	assert.Zero(t, buf.Len())
}

func TestSection(t *testing.T) {
	buf := capture(t)
	SetVerbose(true)

	Section("Test Section")

	assert.Equal(t, "\n=== Test Section ===\n", buf.String())
}

func TestLevels(t *testing.T) {
	buf := capture(t)
	SetVerbose(true)

	Info("info message %d", 42)
	Warn("warning message")
	Error("error message")

	assert.Equal(t, "[INFO] info message 42\n[WARN] warning message\n[ERROR] error message\n", buf.String())
}

func TestDefaultLevel_ShowsWarnings(t *testing.T) {
	buf := capture(t)
	SetVerbose(false)

	Info("hidden")
	Warn("shown")

	assert.Equal(t, "[WARN] shown\n", buf.String())
}

func TestSetLevel(t *testing.T) {
	buf := capture(t)

	require.NoError(t, SetLevel("error"))
	Warn("hidden")
	Error("shown")
	assert.Equal(t, "[ERROR] shown\n", buf.String())

	require.NoError(t, SetLevel("INFO"))
	assert.False(t, IsVerbose())

	require.NoError(t, SetLevel("debug"))
	assert.True(t, IsVerbose())

	assert.Error(t, SetLevel("loud"))
}

func TestLogger_Attributes(t *testing.T) {
	buf := capture(t)
	SetVerbose(true)

	Logger().With("run", "r1").WithGroup("doc").Info("committed", "hash", "abc")

	assert.Equal(t, "[INFO] committed run=r1 doc.hash=abc\n", buf.String())
}

func TestEnableFile_MirrorsOutput(t *testing.T) {
	buf := capture(t)
	dir := t.TempDir()

	f, err := EnableFile(dir, "test")
	require.NoError(t, err)
	path := f.Path()
	Warn("to both %s", "sinks")
	require.NoError(t, DisableFile())

	assert.Equal(t, "[WARN] to both sinks\n", buf.String())

	assert.Equal(t, dir, filepath.Dir(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[WARN] to both sinks\n", string(data))
}

func TestDailyFile_Rotates(t *testing.T) {
	dir := t.TempDir()
	f, err := NewDailyFile(dir, "")
	require.NoError(t, err)
	defer f.Close()

	day := time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC)
	f.mu.Lock()
	f.now = func() time.Time { return day }
	f.mu.Unlock()

	_, err = f.Write([]byte("one\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "collector-2025-01-01.log"), f.Path())

	day = day.Add(2 * time.Minute)
	_, err = f.Write([]byte("two\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "collector-2025-01-02.log"), f.Path())

	first, err := os.ReadFile(filepath.Join(dir, "collector-2025-01-01.log"))
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(first))
}

func TestConcurrentAccess(t *testing.T) {
	capture(t)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			SetVerbose(true)
			Debug("concurrent %d", i)
			IsVerbose()
			SetVerbose(false)
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
