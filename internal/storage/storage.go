// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider.
package storage

import (
	"context"
	"io"
)

// Storage is the interface for putting, removing, and addressing objects.
type Storage interface {
	// Put streams data to the store under the given key.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Remove deletes the object identified by key.
	Remove(ctx context.Context, key string) error
	// URL constructs the browser-accessible URL for a given key.
	URL(key string) string
}
