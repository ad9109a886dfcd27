package storage

import (
	"context"
	"io"
	"time"
)

// FileStorage stores opaque blobs such as attendance proof photos.
type FileStorage interface {
	// Upload stores the content at path and returns the stored path.
	Upload(ctx context.Context, file io.Reader, path string, contentType string) (string, error)

	// Delete removes a file. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error

	// GetURL returns a URL the client can fetch the file from.
	GetURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}
