package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned by Get when no object is stored under the key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for empty keys and keys escaping the store root.
	ErrInvalidKey = errors.New("invalid object key")
)

// Storage defines the content store for originals and thumbnails.
// Keys are slash-separated paths such as "originals/<owner>/<image>/original.png".
type Storage interface {
	// Put writes data under key and returns the number of bytes written.
	Put(ctx context.Context, key string, data io.Reader) (int64, error)

	// Get returns a ReadCloser for the object stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns the public retrieval URL for key.
	URL(key string) string
}
