// Package upload turns an attached request file into a stored blob and a
// reference path that is saved on the entity.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/threespace/site-backend/internal/apperr"
	"github.com/threespace/site-backend/internal/schema"
	"github.com/threespace/site-backend/internal/storage"
	"github.com/threespace/site-backend/pkg/logger"
	"github.com/threespace/site-backend/pkg/metrics"
)

// File is one attached file as received from the client.
type File struct {
	Field       string
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Uploader stores files in a BlobStore and hands out reference paths of the
// form <prefix>/<name>.
type Uploader struct {
	store    storage.BlobStore
	prefix   string
	maxBytes int64
	now      func() time.Time
}

// New returns an Uploader. prefix is the public URL prefix (for example
// "/uploads"); maxBytes of zero disables the size check.
func New(store storage.BlobStore, prefix string, maxBytes int64) *Uploader {
	p := "/" + strings.Trim(prefix, "/")
	return &Uploader{store: store, prefix: p, maxBytes: maxBytes, now: time.Now}
}

// Prefix is the public path prefix of every reference this uploader issues.
func (u *Uploader) Prefix() string { return u.prefix }

// Name builds the collision-resistant stored name:
// <unix millis>-<random 0..1e9><lowercased original extension>.
func (u *Uploader) Name(original string) string {
	ext := strings.ToLower(filepath.Ext(strings.ReplaceAll(original, `\`, "/")))
	return fmt.Sprintf("%d-%d%s", u.now().UnixMilli(), rand.Intn(1_000_000_000), ext)
}

// Save stores f and returns its reference path. Oversized files are a
// validation error; every storage failure is an upload error.
func (u *Uploader) Save(ctx context.Context, f *File) (string, error) {
	if u.maxBytes > 0 && f.Size > u.maxBytes {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return "", schema.Invalid(f.Field, fmt.Sprintf("file exceeds the %d byte limit", u.maxBytes))
	}
	rc, err := f.Open()
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return "", apperr.Upload(err)
	}
	defer rc.Close()

	name := u.Name(f.Filename)
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	if err := u.store.Put(ctx, name, rc, f.Size, ct); err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return "", apperr.Upload(err)
	}
	metrics.UploadsTotal.WithLabelValues("stored").Inc()
	return path.Join(u.prefix, name), nil
}

// Key extracts the blob key from a reference path issued by this uploader.
// References set directly by clients (external URLs) are not ours.
func (u *Uploader) Key(ref string) (string, bool) {
	rest, ok := strings.CutPrefix(ref, u.prefix+"/")
	if !ok || !storage.ValidKey(rest) {
		return "", false
	}
	return rest, true
}

// Discard removes the blob behind ref when it is one of ours. Failures are
// logged and otherwise ignored; a stale file never fails a request.
func (u *Uploader) Discard(ctx context.Context, ref string) {
	key, ok := u.Key(ref)
	if !ok {
		return
	}
	if err := u.store.Remove(ctx, key); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
		logger.Warnf("upload cleanup %s: %v", key, err)
	}
}

// Open returns a stored blob for serving.
func (u *Uploader) Open(ctx context.Context, name string) (io.ReadCloser, storage.Info, error) {
	return u.store.Open(ctx, name)
}
