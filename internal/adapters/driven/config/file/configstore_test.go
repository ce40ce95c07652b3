package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	store.lookup = fakeEnv(nil)
	return store, dir
}

func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestNewConfigStore(t *testing.T) {
	t.Run("explicit directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "config")
		store, err := NewConfigStore(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, ConfigFile), store.Path())
		assert.DirExists(t, dir)
	})

	t.Run("xdg default", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		xdg.Reload()
		t.Cleanup(xdg.Reload)

		store, err := NewConfigStore("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(xdg.ConfigHome, "postop-collector", ConfigFile), store.Path())
	})

	t.Run("unusable directory", func(t *testing.T) {
		store, err := NewConfigStore("/dev/null/postop")
		assert.Error(t, err)
		assert.Nil(t, store)
	})

	t.Run("corrupt file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("[collection\nworkers = "), 0600))
		store, err := NewConfigStore(dir)
		assert.Error(t, err)
		assert.Nil(t, store)
	})

	t.Run("empty file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), nil, 0600))
		store, err := NewConfigStore(dir)
		require.NoError(t, err)
		_, ok := store.Get("collection.workers")
		assert.False(t, ok)
	})
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, _ := newTestStore(t)
	store.mu.Lock()
	store.data = map[string]any{
		"http.user_agent":                "PostOpPDFCollector/1.0",
		"collection.max_pdfs_per_source": int64(10),
		"collection.workers":             4,
		"collection.min_confidence":      0.5,
		"http.verify_ssl":                true,
		"scheduler.queries":              []any{"hip replacement aftercare", 3},
		"scheduler.urls":                 []string{"https://nhs.example/leaflets"},
	}
	store.mu.Unlock()

	assert.Equal(t, "PostOpPDFCollector/1.0", store.GetString("http.user_agent"))
	assert.Equal(t, 10, store.GetInt("collection.max_pdfs_per_source"))
	assert.Equal(t, 4, store.GetInt("collection.workers"))
	assert.InDelta(t, 0.5, store.GetFloat("collection.min_confidence"), 1e-9)
	assert.InDelta(t, 10.0, store.GetFloat("collection.max_pdfs_per_source"), 1e-9)
	assert.InDelta(t, 4.0, store.GetFloat("collection.workers"), 1e-9)
	assert.True(t, store.GetBool("http.verify_ssl"))
	assert.Equal(t, []string{"hip replacement aftercare"}, store.GetStringSlice("scheduler.queries"))
	assert.Equal(t, []string{"https://nhs.example/leaflets"}, store.GetStringSlice("scheduler.urls"))

	// Mismatched and missing keys read as zero values.
	assert.Empty(t, store.GetString("collection.workers"))
	assert.Zero(t, store.GetInt("http.verify_ssl"))
	assert.Zero(t, store.GetFloat("http.verify_ssl"))
	assert.False(t, store.GetBool("http.user_agent"))
	assert.Nil(t, store.GetStringSlice("collection.workers"))
	assert.Empty(t, store.GetString("log.dir"))
}

func TestConfigStore_SetPersists(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, store.Set("output_directory", "/srv/postop"))
	require.NoError(t, store.Set("collection.workers", 2))
	require.NoError(t, store.Set("collection.workers", 6))
	require.NoError(t, store.Set("collection.min_confidence", 0.4))
	require.NoError(t, store.Set("extraction.enable_ocr", true))
	require.NoError(t, store.Set("scheduler.queries", []string{"cataract surgery recovery"}))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[collection]")
	assert.Contains(t, string(raw), "[extraction]")

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/postop", reloaded.GetString("output_directory"))
	assert.Equal(t, 6, reloaded.GetInt("collection.workers"))
	assert.InDelta(t, 0.4, reloaded.GetFloat("collection.min_confidence"), 1e-9)
	assert.True(t, reloaded.GetBool("extraction.enable_ocr"))
	assert.Equal(t, []string{"cataract surgery recovery"}, reloaded.GetStringSlice("scheduler.queries"))
}

func TestConfigStore_SaveAndLoad(t *testing.T) {
	store, dir := newTestStore(t)

	store.mu.Lock()
	store.data["log.level"] = "debug"
	store.mu.Unlock()
	require.NoError(t, store.Save())

	other, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", other.GetString("log.level"))

	require.NoError(t, os.WriteFile(store.Path(), []byte("[log]\nlevel = \"warn\"\n"), 0600))
	require.NoError(t, store.Load())
	assert.Equal(t, "warn", store.GetString("log.level"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, store.Load())
	_, ok := store.Get("log.level")
	assert.False(t, ok)
}

func TestConfigStore_Errors(t *testing.T) {
	t.Run("invalid toml on load", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, os.WriteFile(store.Path(), []byte("workers = ]["), 0600))
		assert.Error(t, store.Load())
	})

	t.Run("unreadable file", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores file permissions")
		}
		store, _ := newTestStore(t)
		require.NoError(t, store.Set("log.level", "info"))
		require.NoError(t, os.Chmod(store.Path(), 0000))
		t.Cleanup(func() { _ = os.Chmod(store.Path(), 0600) })

		err := store.Load()
		assert.Error(t, err)
		assert.NotErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("path is a directory", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, os.Mkdir(store.Path(), 0700))
		assert.Error(t, store.Set("log.level", "info"))
	})

	t.Run("value cannot be encoded", func(t *testing.T) {
		store, _ := newTestStore(t)
		assert.Error(t, store.Set("http.proxy_url", make(chan int)))
	})
}

func TestConfigStore_Concurrent(t *testing.T) {
	store, _ := newTestStore(t)
	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("collection.workers", i)
		}()
		go func() {
			defer wg.Done()
			_ = store.GetInt("collection.workers")
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, store.GetInt("collection.workers"), 0)
}

func TestEnvName(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"output_directory", "POSTOP_OUTPUT_DIRECTORY"},
		{"collection.max_pdfs_per_source", "POSTOP_COLLECTION_MAX_PDFS_PER_SOURCE"},
		{"search.search-engine-id", "POSTOP_SEARCH_SEARCH_ENGINE_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, EnvName(tt.key))
		})
	}
}

func TestConfigStore_EnvOverridesFile(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Set("collection.workers", 5))
	require.NoError(t, store.Set("collection.min_confidence", 0.5))
	require.NoError(t, store.Set("scheduler.urls", []string{"https://file.example"}))
	require.NoError(t, store.Set("output_directory", "file-out"))

	store.lookup = fakeEnv(map[string]string{
		"POSTOP_COLLECTION_WORKERS":        "8",
		"POSTOP_COLLECTION_MIN_CONFIDENCE": "0.75",
		"POSTOP_SCHEDULER_URLS":            "https://nhs.example, https://mayo.example,,",
		"POSTOP_SCHEDULER_ENABLED":         "true",
	})

	assert.Equal(t, 8, store.GetInt("collection.workers"))
	assert.InDelta(t, 0.75, store.GetFloat("collection.min_confidence"), 1e-9)
	assert.Equal(t, []string{"https://nhs.example", "https://mayo.example"}, store.GetStringSlice("scheduler.urls"))
	assert.True(t, store.GetBool("scheduler.enabled"))
	assert.Equal(t, "file-out", store.GetString("output_directory"))
}

func TestConfigStore_EnvOverrideInvalidNumber(t *testing.T) {
	store, _ := newTestStore(t)
	store.lookup = fakeEnv(map[string]string{
		"POSTOP_COLLECTION_WORKERS":        "many",
		"POSTOP_COLLECTION_MIN_CONFIDENCE": "high",
		"POSTOP_HTTP_VERIFY_SSL":           "sometimes",
	})

	assert.Zero(t, store.GetInt("collection.workers"))
	assert.Zero(t, store.GetFloat("collection.min_confidence"))
	assert.False(t, store.GetBool("http.verify_ssl"))
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"http.verify_ssl":                         true,
		"scheduler.scheduled_collection.interval": "24h",
		"output_directory":                        "out",
	})

	assert.Equal(t, map[string]any{
		"http": map[string]any{"verify_ssl": true},
		"scheduler": map[string]any{
			"scheduled_collection": map[string]any{"interval": "24h"},
		},
		"output_directory": "out",
	}, nested)
	assert.Equal(t, map[string]any{
		"http.verify_ssl":                         true,
		"scheduler.scheduled_collection.interval": "24h",
		"output_directory":                        "out",
	}, flattenMap(nested, ""))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("POSTOP_TEST_DOTENV_VALUE=from-file\n"), 0600))
	t.Setenv("POSTOP_TEST_DOTENV_VALUE", "")
	require.NoError(t, os.Unsetenv("POSTOP_TEST_DOTENV_VALUE"))

	err := LoadDotEnv(filepath.Join(dir, "missing.env"), path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", os.Getenv("POSTOP_TEST_DOTENV_VALUE"))
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("POSTOP_TEST_DOTENV_KEEP=from-file\n"), 0600))
	t.Setenv("POSTOP_TEST_DOTENV_KEEP", "from-env")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("POSTOP_TEST_DOTENV_KEEP"))
}
