package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/rfpsynth/internal/config"
	"github.com/Lllllllleong/rfpsynth/internal/events"
	rfphttp "github.com/Lllllllleong/rfpsynth/internal/http"
	"github.com/Lllllllleong/rfpsynth/internal/llm"
	"github.com/Lllllllleong/rfpsynth/internal/services"
	"github.com/Lllllllleong/rfpsynth/internal/storage"
	"github.com/Lllllllleong/rfpsynth/internal/tasks"
)

var (
	handler        http.Handler
	manifestRunner *events.ManifestHandler
	once           sync.Once
	initErr        error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleRFP", handleRFP)
	functions.CloudEvent("GenerateFromManifest", generateFromManifest)
}

func main() {}

// setup wires one pipeline shared by both entry points. The function always
// uses Cloud Storage so uploaded and manifest-listed documents are readable
// from any instance.
func setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StorageBackend != config.StorageGCS {
		return errors.WithHint(
			errors.Newf("storage backend %q is not supported in functions", cfg.StorageBackend),
			"set STORAGE_BACKEND=gcs and ARTIFACT_BUCKET")
	}

	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := storage.NewGCSStore(ctx, cfg.ArtifactBucket, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	registry := tasks.NewRegistry()
	pipeline := services.NewPipeline(cfg, registry, store, provider)

	handler = rfphttp.NewServer(cfg, rfphttp.NewAPI(registry, store, pipeline, provider.Name())).Handler()
	manifestRunner = events.NewManifestHandler(store, pipeline)
	return nil
}

func initialize() error {
	once.Do(func() {
		initErr = setup(context.Background())
	})
	return initErr
}

// handleRFP serves the REST API.
func handleRFP(w http.ResponseWriter, r *http.Request) {
	if err := initialize(); err != nil {
		slog.Error("Critical: RFP service initialization failed", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	handler.ServeHTTP(w, r)
}

// generateFromManifest runs a batch when a manifest object is finalized.
func generateFromManifest(ctx context.Context, e cloudevents.Event) error {
	if err := initialize(); err != nil {
		slog.Error("Critical: RFP service initialization failed", "error", err)
		return err
	}
	return manifestRunner.HandleEvent(ctx, e)
}
