package driven

import "context"

// BlobStore persists raw PDF bytes.
type BlobStore interface {
	// Put durably writes data under a name derived from filename and hash
	// and returns the final filename and path.
	Put(ctx context.Context, filename, hash string, data []byte) (name, path string, err error)

	// Remove deletes a previously stored file. Missing files are not an error.
	Remove(ctx context.Context, path string) error
}
