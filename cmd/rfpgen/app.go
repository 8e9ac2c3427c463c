package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/Lllllllleong/rfpsynth/internal/config"
	"github.com/Lllllllleong/rfpsynth/internal/llm"
	"github.com/Lllllllleong/rfpsynth/internal/services"
	"github.com/Lllllllleong/rfpsynth/internal/storage"
	"github.com/Lllllllleong/rfpsynth/internal/tasks"
)

// app is the wired pipeline shared by every subcommand.
type app struct {
	cfg      *config.Config
	provider llm.Provider
	store    storage.Store
	registry *tasks.Registry
	pipeline *services.Pipeline
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		closeIfCloser(provider)
		return nil, err
	}

	registry := tasks.NewRegistry()
	slog.Info("Pipeline configured",
		"provider", provider.Name(),
		"storage", cfg.StorageBackend,
		"maxDocuments", cfg.MaxDocuments,
		"renderPdf", cfg.RenderPDF,
	)
	return &app{
		cfg:      cfg,
		provider: provider,
		store:    store,
		registry: registry,
		pipeline: services.NewPipeline(cfg, registry, store, provider),
	}, nil
}

func (a *app) Close() {
	closeIfCloser(a.store)
	closeIfCloser(a.provider)
}

func closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close client", "error", err)
		}
	}
}
