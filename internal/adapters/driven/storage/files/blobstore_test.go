package files

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newTestStore(t *testing.T) *BlobStore {
	t.Helper()
	s, err := NewBlobStore(filepath.Join(t.TempDir(), Subdirectory))
	require.NoError(t, err)
	return s
}

func TestNewBlobStore(t *testing.T) {
	_, err := NewBlobStore("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	s := newTestStore(t)
	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPut_WritesFile(t *testing.T) {
	s := newTestStore(t)
	data := []byte("%PDF-1.4 knee")

	name, path, err := s.Put(context.Background(), "discharge.pdf", hashOf(data), data)
	require.NoError(t, err)
	assert.Equal(t, "discharge.pdf", name)
	assert.Equal(t, filepath.Join(s.Dir(), "discharge.pdf"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestPut_SameContentIsNoOp(t *testing.T) {
	s := newTestStore(t)
	data := []byte("%PDF-1.4 same")
	hash := hashOf(data)

	_, first, err := s.Put(context.Background(), "a.pdf", hash, data)
	require.NoError(t, err)
	name, second, err := s.Put(context.Background(), "a.pdf", hash, data)
	require.NoError(t, err)

	assert.Equal(t, "a.pdf", name)
	assert.Equal(t, first, second)
}

func TestPut_CollisionGetsHashSuffix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	one := []byte("%PDF-1.4 one")
	two := []byte("%PDF-1.4 two")

	_, _, err := s.Put(ctx, "instructions.pdf", hashOf(one), one)
	require.NoError(t, err)

	name, path, err := s.Put(ctx, "instructions.pdf", hashOf(two), two)
	require.NoError(t, err)
	assert.Equal(t, "instructions-"+hashOf(two)[:8]+".pdf", name)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, two, got)

	original, err := os.ReadFile(filepath.Join(s.Dir(), "instructions.pdf"))
	require.NoError(t, err)
	assert.Equal(t, one, original)

	again, _, err := s.Put(ctx, "instructions.pdf", hashOf(two), two)
	require.NoError(t, err)
	assert.Equal(t, name, again)
}

func TestPut_ConcurrentSameFilename(t *testing.T) {
	for round := range 50 {
		s := newTestStore(t)
		docs := [][]byte{
			[]byte(fmt.Sprintf("%%PDF-1.4 knee leaflet %d", round)),
			[]byte(fmt.Sprintf("%%PDF-1.4 hip leaflet %d", round)),
		}
		paths := make([]string, len(docs))

		var wg sync.WaitGroup
		for i, data := range docs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, path, err := s.Put(context.Background(), "instructions.pdf", hashOf(data), data)
				assert.NoError(t, err)
				paths[i] = path
			}()
		}
		wg.Wait()

		assert.NotEqual(t, paths[0], paths[1])
		for i, data := range docs {
			got, err := os.ReadFile(paths[i])
			require.NoError(t, err)
			assert.Equal(t, data, got, "round %d document %d", round, i)
		}
	}
}

func TestPut_Validation(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.Put(context.Background(), "a.pdf", "", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = s.Put(ctx, "a.pdf", "abc", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSafeName(t *testing.T) {
	hash := "0123456789abcdef"

	tests := []struct {
		input    string
		expected string
	}{
		{"discharge.pdf", "discharge.pdf"},
		{"Discharge.PDF", "Discharge.PDF"},
		{"knee-care", "knee-care.pdf"},
		{"../../etc/passwd", "passwd.pdf"},
		{`..\windows\care.pdf`, "care.pdf"},
		{"what?.pdf", "what_.pdf"},
		{"", "01234567.pdf"},
		{"/", "01234567.pdf"},
		{"...", "01234567.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SafeName(tt.input, hash))
		})
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	data := []byte("%PDF-1.4 remove")

	_, path, err := s.Put(context.Background(), "r.pdf", hashOf(data), data)
	require.NoError(t, err)

	require.NoError(t, s.Remove(context.Background(), path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Remove(context.Background(), path))
	assert.NoError(t, s.Remove(context.Background(), ""))
}
