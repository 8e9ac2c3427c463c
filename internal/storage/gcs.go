package storage

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/iterator"

	"github.com/Lllllllleong/rfpsynth/internal/docx"
	"github.com/Lllllllleong/rfpsynth/internal/gcp"
	"github.com/Lllllllleong/rfpsynth/internal/models"
)

// GCSStore keeps uploads and artifacts in one bucket and reads any gs:// path.
type GCSStore struct {
	client   *gcs.Client
	bucket   string
	maxBytes int64
}

func NewGCSStore(ctx context.Context, bucket string, maxBytes int64) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("NewGCSStore: bucket cannot be empty")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage client")
	}
	return &GCSStore{client: client, bucket: bucket, maxBytes: maxBytes}, nil
}

// SaveUpload buffers the upload so the size limit is enforced before the
// object is created.
func (s *GCSStore) SaveUpload(ctx context.Context, name string, r io.Reader) (models.SourceDocument, error) {
	buf := &bytes.Buffer{}
	n, err := limitedCopy(buf, r, s.maxBytes)
	if err != nil {
		return models.SourceDocument{}, errors.Wrapf(err, "read upload %s", name)
	}

	objectName := path.Join(uploadsDir, uploadName(name))
	if err := gcp.SaveToGCSAtomically(ctx, s.client.Bucket(s.bucket), objectName, buf.Bytes(), docx.MIMEType); err != nil {
		return models.SourceDocument{}, err
	}
	return models.SourceDocument{Path: gcp.GCSURI(s.bucket, objectName), OriginalName: name, Size: n}, nil
}

func (s *GCSStore) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, object, err := gcp.ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, errors.Wrapf(ErrNotFound, "open %s", uri)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", uri)
	}
	return rc, nil
}

func (s *GCSStore) SaveArtifact(ctx context.Context, name string, data []byte) (string, error) {
	objectName := path.Join(outputsDir, sanitizeFileName(name))
	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(objectName, ".docx"):
		contentType = docx.MIMEType
	case strings.HasSuffix(objectName, ".pdf"):
		contentType = "application/pdf"
	}

	if err := gcp.SaveToGCSAtomically(ctx, s.client.Bucket(s.bucket), objectName, data, contentType); err != nil {
		return "", err
	}
	return gcp.GCSURI(s.bucket, objectName), nil
}

// ListDocuments returns every .docx object under prefix in bucket, in
// lexical order.
func (s *GCSStore) ListDocuments(ctx context.Context, bucket, prefix string) ([]models.SourceDocument, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	var docs []models.SourceDocument
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "list gs://%s/%s", bucket, prefix)
		}
		if !strings.EqualFold(path.Ext(attrs.Name), ".docx") {
			continue
		}
		docs = append(docs, models.SourceDocument{
			Path:         gcp.GCSURI(bucket, attrs.Name),
			OriginalName: path.Base(attrs.Name),
			Size:         attrs.Size,
		})
	}
	return docs, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
