// Package events starts batches from Cloud Storage notifications: dropping a
// manifest object into the bucket runs the pipeline over the documents it
// lists.
package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path"
	"strings"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/rfpsynth/internal/gcp"
	"github.com/Lllllllleong/rfpsynth/internal/models"
)

// ManifestSuffix marks the objects that trigger a batch.
const ManifestSuffix = ".manifest.json"

// DocumentSource reads manifests and expands directory entries.
type DocumentSource interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	ListDocuments(ctx context.Context, bucket, prefix string) ([]models.SourceDocument, error)
}

// Runner executes one batch synchronously.
type Runner interface {
	Execute(ctx context.Context, docs []models.SourceDocument) (models.TaskRecord, error)
}

type ManifestHandler struct {
	source DocumentSource
	runner Runner
}

func NewManifestHandler(source DocumentSource, runner Runner) *ManifestHandler {
	return &ManifestHandler{source: source, runner: runner}
}

// HandleEvent decodes a storage finalize CloudEvent and processes it.
func (h *ManifestHandler) HandleEvent(ctx context.Context, e cloudevents.Event) error {
	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return errors.Wrap(err, "json.Unmarshal")
	}
	_, err := h.Process(ctx, gcsEvent)
	return err
}

// Process runs the batch described by the manifest object in e. Objects that
// are not manifests are ignored and yield a zero record.
func (h *ManifestHandler) Process(ctx context.Context, e models.GCSEvent) (models.TaskRecord, error) {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.HasSuffix(e.Name, ManifestSuffix) {
		logCtx.Debug("Ignoring non-manifest object.")
		return models.TaskRecord{}, nil
	}
	logCtx.Info("Processing batch manifest.")

	manifest, err := h.readManifest(ctx, gcp.GCSURI(e.Bucket, e.Name))
	if err != nil {
		logCtx.Error("Failed to read manifest", "error", err)
		return models.TaskRecord{}, err
	}

	docs, err := h.resolve(ctx, e.Bucket, path.Dir(e.Name), manifest)
	if err != nil {
		logCtx.Error("Failed to resolve manifest documents", "error", err)
		return models.TaskRecord{}, err
	}

	record, err := h.runner.Execute(ctx, docs)
	if err != nil {
		logCtx.Error("Manifest batch rejected", "error", err, "documentCount", len(docs))
		return models.TaskRecord{}, err
	}
	logCtx.Info("Manifest batch finished.", "taskId", record.ID, "status", record.Status, "resultFile", record.ResultFile)
	return record, nil
}

func (h *ManifestHandler) readManifest(ctx context.Context, uri string) (models.BatchManifest, error) {
	var manifest models.BatchManifest
	rc, err := h.source.Open(ctx, uri)
	if err != nil {
		return manifest, err
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
		return manifest, errors.Wrapf(err, "decode manifest %s", uri)
	}
	return manifest, nil
}

// resolve turns manifest entries into source documents. Entries may be full
// gs:// URIs, object names relative to the manifest's directory, or
// prefixes ending in "/" that expand to every .docx beneath them.
func (h *ManifestHandler) resolve(ctx context.Context, bucket, dir string, manifest models.BatchManifest) ([]models.SourceDocument, error) {
	var docs []models.SourceDocument
	for _, entry := range manifest.Documents {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		entryBucket, object := bucket, entry
		if rest, ok := strings.CutPrefix(entry, "gs://"); ok {
			b, o, _ := strings.Cut(rest, "/")
			if b == "" {
				return nil, errors.Newf("manifest entry %q has no bucket", entry)
			}
			entryBucket, object = b, o
		} else if dir != "." && dir != "" {
			object = path.Join(dir, entry)
			if strings.HasSuffix(entry, "/") {
				object += "/"
			}
		}

		if strings.HasSuffix(object, "/") || object == "" {
			listed, err := h.source.ListDocuments(ctx, entryBucket, object)
			if err != nil {
				return nil, err
			}
			docs = append(docs, listed...)
			continue
		}

		docs = append(docs, models.SourceDocument{
			Path:         gcp.GCSURI(entryBucket, object),
			OriginalName: path.Base(object),
		})
	}
	return docs, nil
}
