package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/rfpsynth/internal/docx"
	"github.com/Lllllllleong/rfpsynth/internal/models"
	"github.com/Lllllllleong/rfpsynth/internal/storage"
)

// Extractor turns a stored source document into plain text.
type Extractor struct {
	store storage.Store
}

func NewExtractor(store storage.Store) *Extractor {
	return &Extractor{store: store}
}

// Extract returns the paragraphs of doc joined by newlines. Unsupported or
// unreadable documents yield "" so the batch can skip them.
func (e *Extractor) Extract(ctx context.Context, doc models.SourceDocument) string {
	logCtx := slog.With("document", doc.OriginalName, "path", doc.Path)

	if !IsSupportedDocument(doc.OriginalName) {
		logCtx.Warn("Skipping unsupported document type.")
		return ""
	}

	rc, err := e.store.Open(ctx, doc.Path)
	if err != nil {
		logCtx.Error("Failed to open source document", "error", err)
		return ""
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		logCtx.Error("Failed to read source document", "error", err)
		return ""
	}

	text, err := docx.ReadText(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logCtx.Error("Failed to parse source document", "error", err)
		return ""
	}

	text = strings.TrimSpace(text)
	logCtx.Info("Extracted document text.", "chars", len(text))
	return text
}

// IsSupportedDocument reports whether name has a .docx extension.
func IsSupportedDocument(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".docx")
}
