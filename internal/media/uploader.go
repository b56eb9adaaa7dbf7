// Package media adapts the object storage layer into an image upload
// service for posts: it enforces the image format allow-list, generates
// object keys under a configured folder, and returns the public URL of
// each stored file.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/postly/service/internal/storage"
)

// ErrUnsupportedMediaType is returned when a file's format is not in the allow-list.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// ErrUploadFailed is returned when the storage provider rejects or fails the upload.
var ErrUploadFailed = errors.New("upload failed")

// allowedExts is the image format allow-list, mapping each accepted
// extension to its content type. Anything else is refused before a single
// byte reaches the provider.
var allowedExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Ref identifies a successfully uploaded file: the public URL callers embed
// in post records, and the storage key needed to remove the object again.
type Ref struct {
	URL string
	Key string
}

// Uploader stores post images with an external provider.
type Uploader interface {
	// Upload validates the file format and stores the content, returning a Ref.
	// A single attempt is made; no retries.
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (*Ref, error)
	// Remove deletes a previously uploaded object. Used only to clean up
	// uploads whose post record was never written.
	Remove(ctx context.Context, key string) error
}

// ObjectUploader implements Uploader on top of storage.Storage, keeping all
// images under a single logical folder in the bucket.
type ObjectUploader struct {
	store  storage.Storage
	folder string
}

// NewObjectUploader creates an ObjectUploader writing under folder.
func NewObjectUploader(store storage.Storage, folder string) *ObjectUploader {
	return &ObjectUploader{store: store, folder: strings.Trim(folder, "/")}
}

// Upload checks filename and content type against the allow-list, stores
// the content under a fresh key, and returns the public Ref. The caller must
// not persist any record referencing the file unless Upload returned nil error.
func (u *ObjectUploader) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (*Ref, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	want, ok := allowedExts[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, ext)
	}

	// Cross-check the declared content type against the extension so a
	// renamed non-image never lands in the public bucket. Clients that do
	// not sniff types send application/octet-stream; treat that, like an
	// empty value, as undeclared.
	switch contentType {
	case "", "application/octet-stream":
		contentType = want
	case want:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, contentType)
	}

	key := u.folder + "/" + uuid.NewString() + ext
	if err := u.store.Put(ctx, key, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return &Ref{URL: u.store.URL(key), Key: key}, nil
}

// Remove deletes the object at key.
func (u *ObjectUploader) Remove(ctx context.Context, key string) error {
	return u.store.Remove(ctx, key)
}
