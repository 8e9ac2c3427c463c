// Package storage holds uploaded source documents and generated artifacts,
// either on the local filesystem or in a Cloud Storage bucket.
package storage

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/Lllllllleong/rfpsynth/internal/config"
	"github.com/Lllllllleong/rfpsynth/internal/models"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file exceeds upload size limit")
	// ErrNotFound is returned when a stored path does not exist.
	ErrNotFound = errors.New("stored object not found")
)

// Store persists uploads and artifacts. Artifact writes are all-or-nothing:
// a failed write never leaves a readable partial object at the returned path.
type Store interface {
	SaveUpload(ctx context.Context, name string, r io.Reader) (models.SourceDocument, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	SaveArtifact(ctx context.Context, name string, data []byte) (string, error)
}

// New returns the backend selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		return NewLocalStore(cfg.DataDir, cfg.MaxUploadBytes)
	case config.StorageGCS:
		return NewGCSStore(ctx, cfg.ArtifactBucket, cfg.MaxUploadBytes)
	default:
		return nil, errors.Newf("unknown storage backend %q", cfg.StorageBackend)
	}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFileName keeps the base name of an uploaded file and replaces
// characters that are unsafe in paths and object names.
func sanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "upload"
	}
	return base
}

// uploadName prefixes a sanitized name with a random id so concurrent
// batches never collide.
func uploadName(name string) string {
	return uuid.NewString() + "_" + sanitizeFileName(name)
}

// limitedCopy copies at most limit bytes and fails with ErrFileTooLarge when
// src holds more. A limit of zero or less disables the check.
func limitedCopy(dst io.Writer, src io.Reader, limit int64) (int64, error) {
	if limit <= 0 {
		return io.Copy(dst, src)
	}
	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		return n, err
	}
	if n > limit {
		return n, ErrFileTooLarge
	}
	return n, nil
}
