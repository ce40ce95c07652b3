package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Get(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("search.api_key", "AIza-example"))

	v, ok := s.Get("search.api_key")
	assert.True(t, ok)
	assert.Equal(t, "AIza-example", v)

	_, ok = s.Get("search.search_engine_id")
	assert.False(t, ok)
}

func TestConfigStore_SetOverwrites(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("collection.workers", 1))
	require.NoError(t, s.Set("collection.workers", 4))

	assert.Equal(t, 4, s.GetInt("collection.workers"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	s := NewConfigStore()
	values := map[string]any{
		"http.user_agent":                "PostOpPDFCollector/1.0",
		"collection.max_pdfs_per_source": 10,
		"collection.max_pages_per_site":  int64(50),
		"http.max_file_size_mb":          float64(25),
		"collection.min_confidence":      0.5,
		"http.verify_ssl":                true,
		"scheduler.queries":              []string{"knee replacement recovery"},
		"scheduler.urls":                 []any{"https://a.org/leaflets", 7, "https://b.org/care"},
	}
	for k, v := range values {
		require.NoError(t, s.Set(k, v))
	}

	assert.Equal(t, "PostOpPDFCollector/1.0", s.GetString("http.user_agent"))
	assert.Equal(t, 10, s.GetInt("collection.max_pdfs_per_source"))
	assert.Equal(t, 50, s.GetInt("collection.max_pages_per_site"))
	assert.Equal(t, 25, s.GetInt("http.max_file_size_mb"))
	assert.InDelta(t, 0.5, s.GetFloat("collection.min_confidence"), 1e-9)
	assert.InDelta(t, 10.0, s.GetFloat("collection.max_pdfs_per_source"), 1e-9)
	assert.InDelta(t, 50.0, s.GetFloat("collection.max_pages_per_site"), 1e-9)
	assert.True(t, s.GetBool("http.verify_ssl"))
	assert.Equal(t, []string{"knee replacement recovery"}, s.GetStringSlice("scheduler.queries"))
	assert.Equal(t, []string{"https://a.org/leaflets", "https://b.org/care"}, s.GetStringSlice("scheduler.urls"))
}

func TestConfigStore_WrongTypeOrMissingIsZero(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("http.user_agent", 42))
	require.NoError(t, s.Set("collection.workers", "four"))
	require.NoError(t, s.Set("http.verify_ssl", "yes"))
	require.NoError(t, s.Set("scheduler.queries", "knee"))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string from int", s.GetString("http.user_agent"), ""},
		{"int from string", s.GetInt("collection.workers"), 0},
		{"float from string", s.GetFloat("collection.workers"), 0.0},
		{"bool from string", s.GetBool("http.verify_ssl"), false},
		{"slice from string", s.GetStringSlice("scheduler.queries"), []string(nil)},
		{"missing string", s.GetString("log.dir"), ""},
		{"missing int", s.GetInt("log.dir"), 0},
		{"missing bool", s.GetBool("log.dir"), false},
		{"missing slice", s.GetStringSlice("log.dir"), []string(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_NilValueIsStored(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("http.proxy_url", nil))

	v, ok := s.Get("http.proxy_url")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Empty(t, s.GetString("http.proxy_url"))
}

func TestConfigStore_PersistenceIsNoOp(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("log.level", "debug"))

	require.NoError(t, s.Save())
	require.NoError(t, s.Load())
	assert.Equal(t, "debug", s.GetString("log.level"))
	assert.Equal(t, ":memory:", s.Path())
}

func TestConfigStore_InstancesAreIsolated(t *testing.T) {
	a, b := NewConfigStore(), NewConfigStore()
	require.NoError(t, a.Set("log.level", "debug"))

	_, ok := b.Get("log.level")
	assert.False(t, ok)
}

func TestConfigStore_Concurrent(t *testing.T) {
	s := NewConfigStore()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Set(fmt.Sprintf("scheduler.task_%d.interval", i), i)
		}()
		go func() {
			defer wg.Done()
			_ = s.GetInt(fmt.Sprintf("scheduler.task_%d.interval", i))
		}()
	}
	wg.Wait()

	for i := range 50 {
		assert.Equal(t, i, s.GetInt(fmt.Sprintf("scheduler.task_%d.interval", i)))
	}
}
