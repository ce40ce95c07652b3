// Package files stores collected PDF bytes on the local filesystem.
//
// Files land in a single directory (normally <output>/pdfs). Each write goes
// to a temporary file that is synced and renamed into place, so a path handed
// to the metadata store always refers to a complete file.
package files

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
)

// Ensure BlobStore implements the interface.
var _ driven.BlobStore = (*BlobStore)(nil)

// Subdirectory is where PDFs are kept below the output directory.
const Subdirectory = "pdfs"

// BlobStore writes PDFs into one directory.
type BlobStore struct {
	dir string
	// mu covers choosing a name and renaming into it, so two documents
	// sharing a filename never claim the same path.
	mu sync.Mutex
}

// NewBlobStore creates dir if needed.
func NewBlobStore(dir string) (*BlobStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: blob directory is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &BlobStore{dir: dir}, nil
}

// Dir returns the directory files are written to.
func (s *BlobStore) Dir() string {
	return s.dir
}

// Put writes data as filename. An existing file with the same name and
// different content is left alone and data is written under a name carrying
// the first eight characters of hash. Writing identical bytes again is a no-op.
func (s *BlobStore) Put(ctx context.Context, filename, hash string, data []byte) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if hash == "" {
		return "", "", fmt.Errorf("%w: hash is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := SafeName(filename, hash)
	path := filepath.Join(s.dir, name)
	if exists(path) {
		same, err := sameContent(path, hash)
		if err != nil || same {
			return name, path, err
		}

		name = suffixed(name, hash)
		path = filepath.Join(s.dir, name)
		if same, err := sameContent(path, hash); err != nil || same {
			return name, path, err
		}
	}

	if err := writeAtomic(s.dir, path, data); err != nil {
		return "", "", err
	}
	return name, path, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *BlobStore) Remove(_ context.Context, path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// SafeName reduces filename to a flat name ending in .pdf.
// An empty or unusable name becomes <hash[:8]>.pdf.
func SafeName(filename, hash string) string {
	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(filename, `\`, "/")))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f, strings.ContainsRune(`<>:"/\|?*`, r):
			return '_'
		default:
			return r
		}
	}, name)
	name = strings.Trim(name, ". ")

	if name == "" || name == "_" {
		return shortHash(hash) + ".pdf"
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

func suffixed(name, hash string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + shortHash(hash) + ext
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// sameContent reports whether path holds bytes whose SHA-256 is hash.
func sameContent(path, hash string) (bool, error) {
	existing, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	sum := sha256.Sum256(existing)
	return hex.EncodeToString(sum[:]) == strings.ToLower(hash), nil
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".pdf-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
