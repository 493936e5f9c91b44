// Package storage holds uploaded files. Two backends implement BlobStore:
// a local directory and an S3-compatible MinIO bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrBlobNotFound is returned by Open and Remove for unknown keys.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidKey rejects keys that could escape the store's namespace.
var ErrInvalidKey = errors.New("invalid blob key")

// Info describes a stored blob.
type Info struct {
	Size        int64
	ContentType string
	ModTime     time.Time
}

// BlobStore is the upload storage port.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, Info, error)
	Remove(ctx context.Context, key string) error
}

// Config selects and configures a backend.
type Config struct {
	// Backend is "disk" (default) or "minio".
	Backend string
	Dir     string
	MinIO   *MinIOConfig
}

// New builds the configured backend.
func New(cfg Config) (BlobStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "disk":
		return NewDiskStore(cfg.Dir)
	case "minio":
		return NewMinIOStorage(cfg.MinIO)
	}
	return nil, fmt.Errorf("unknown uploads backend %q", cfg.Backend)
}

// ValidKey accepts flat file names only.
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, `/\`) && !strings.Contains(key, "\x00")
}
