package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/rfpsynth/internal/models"
)

const (
	uploadsDir = "uploads"
	outputsDir = "outputs"
)

// LocalStore keeps files under a root directory.
type LocalStore struct {
	root     string
	maxBytes int64
}

func NewLocalStore(root string, maxBytes int64) (*LocalStore, error) {
	for _, dir := range []string{uploadsDir, outputsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create %s directory", dir)
		}
	}
	return &LocalStore{root: root, maxBytes: maxBytes}, nil
}

func (s *LocalStore) SaveUpload(ctx context.Context, name string, r io.Reader) (models.SourceDocument, error) {
	dest := filepath.Join(s.root, uploadsDir, uploadName(name))

	file, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return models.SourceDocument{}, errors.Wrap(err, "create upload file")
	}

	n, err := limitedCopy(file, r, s.maxBytes)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return models.SourceDocument{}, errors.Wrapf(err, "save upload %s", name)
	}

	return models.SourceDocument{Path: dest, OriginalName: name, Size: n}, nil
}

func (s *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(ErrNotFound, "open %s", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return f, nil
}

// SaveArtifact writes data to a temp file in the outputs directory and
// renames it into place.
func (s *LocalStore) SaveArtifact(ctx context.Context, name string, data []byte) (string, error) {
	dir := filepath.Join(s.root, outputsDir)
	dest := filepath.Join(dir, sanitizeFileName(name))

	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(filepath.Base(dest), filepath.Ext(dest))+"-*.tmp")
	if err != nil {
		return "", errors.Wrap(err, "create temp artifact")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", errors.Wrap(err, "write temp artifact")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", errors.Wrap(err, "sync temp artifact")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", errors.Wrap(err, "close temp artifact")
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return "", errors.Wrap(err, "move artifact into place")
	}
	return dest, nil
}
