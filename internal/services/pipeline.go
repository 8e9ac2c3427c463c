package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/rfpsynth/internal/config"
	"github.com/Lllllllleong/rfpsynth/internal/docx"
	"github.com/Lllllllleong/rfpsynth/internal/llm"
	"github.com/Lllllllleong/rfpsynth/internal/models"
	"github.com/Lllllllleong/rfpsynth/internal/storage"
	"github.com/Lllllllleong/rfpsynth/internal/tasks"
)

var (
	ErrNoDocuments      = errors.New("no documents were submitted")
	ErrTooManyDocuments = errors.New("too many documents in batch")
	ErrUnsupportedFile  = errors.New("only .docx documents are supported")
	ErrNotReady         = errors.New("result is not ready")
	// ErrNoPDF is returned when a completed task has no PDF companion.
	ErrNoPDF            = errors.New("no PDF was rendered for this task")
)

// ResultFileName is the artifact name of a batch's generated document.
func ResultFileName(taskID string) string {
	return fmt.Sprintf("generated_rfp_%s.docx", taskID)
}

func pdfFileName(taskID string) string {
	return fmt.Sprintf("generated_rfp_%s.pdf", taskID)
}

// Pipeline runs batches from uploaded RFPs to a generated RFP. Each batch
// runs on its own goroutine; steps within a batch are strictly sequential.
type Pipeline struct {
	registry   *tasks.Registry
	store      storage.Store
	provider   llm.Provider
	extractor  *Extractor
	extraction *llm.ExtractionClient
	generation *llm.GenerationClient
	assembler  *Assembler
	pdf        *PDFRenderer

	maxDocuments int
	now          func() time.Time
	wg           sync.WaitGroup
}

func NewPipeline(cfg *config.Config, registry *tasks.Registry, store storage.Store, provider llm.Provider) *Pipeline {
	p := &Pipeline{
		registry:     registry,
		store:        store,
		provider:     provider,
		extractor:    NewExtractor(store),
		extraction:   llm.NewExtractionClient(provider, cfg.ModelTimeout),
		generation:   llm.NewGenerationClient(provider, cfg.ModelTimeout),
		assembler:    NewAssembler(store),
		maxDocuments: cfg.MaxDocuments,
		now:          time.Now,
	}
	if cfg.RenderPDF {
		p.pdf = NewPDFRenderer(os.TempDir())
	}
	return p
}

// Validate checks a batch before anything is stored or started.
func (p *Pipeline) Validate(names []string) error {
	if len(names) == 0 {
		return errors.WithHint(ErrNoDocuments, "attach at least one .docx file in the 'files' field")
	}
	if len(names) > p.maxDocuments {
		return errors.WithHintf(
			errors.Wrapf(ErrTooManyDocuments, "%d documents submitted", len(names)),
			"submit at most %d documents per batch", p.maxDocuments)
	}
	for _, name := range names {
		if !IsSupportedDocument(name) {
			return errors.WithHint(errors.Wrapf(ErrUnsupportedFile, "%q", name), "convert the file to .docx and resubmit")
		}
	}
	if err := p.provider.Validate(); err != nil {
		return err
	}
	return nil
}

// Start validates docs, registers a queued task and runs it in the
// background. The run outlives ctx's cancellation.
func (p *Pipeline) Start(ctx context.Context, docs []models.SourceDocument) (models.TaskRecord, error) {
	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.OriginalName
	}
	if err := p.Validate(names); err != nil {
		return models.TaskRecord{}, err
	}

	record := p.registry.Create(len(docs), "Task queued.")
	slog.Info("Batch queued.", "taskId", record.ID, "documentCount", len(docs))

	runCtx := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Run(runCtx, record.ID, docs)
	}()
	return record, nil
}

// Execute validates docs, registers a task and runs it on the calling
// goroutine. Validation failures create no task.
func (p *Pipeline) Execute(ctx context.Context, docs []models.SourceDocument) (models.TaskRecord, error) {
	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.OriginalName
	}
	if err := p.Validate(names); err != nil {
		return models.TaskRecord{}, err
	}

	record := p.registry.Create(len(docs), "Task queued.")
	return p.Run(ctx, record.ID, docs), nil
}

// Wait blocks until every started run has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Run executes the batch for an already-created task and returns its final
// record. Failures of individual model calls are absorbed; anything else
// moves the task to error.
func (p *Pipeline) Run(ctx context.Context, taskID string, docs []models.SourceDocument) (final models.TaskRecord) {
	logCtx := slog.With("taskId", taskID)
	logCtx.Info("Starting pipeline run.", "documentCount", len(docs))

	defer func() {
		if r := recover(); r != nil {
			final = p.handleError(logCtx, taskID, "pipeline panicked", errors.Newf("%v", r))
		}
	}()

	if err := p.progress(taskID, fmt.Sprintf("Processing %d document(s).", len(docs))); err != nil {
		return p.handleError(logCtx, taskID, "failed to start processing", err)
	}

	// --- 1. Per-document extraction ---
	results, processed := p.extractAll(ctx, logCtx, taskID, docs)

	// --- 2. Aggregation ---
	if err := p.progress(taskID, "Aggregating requirements across documents."); err != nil {
		return p.handleError(logCtx, taskID, "failed to update progress", err)
	}
	pool := AggregateQuestions(results)
	summary, err := BuildContextSummary(len(docs), pool, results)
	if err != nil {
		return p.handleError(logCtx, taskID, "failed to build context summary", err)
	}
	logCtx.Info("Aggregated requirements.", "uniqueQuestions", len(pool), "documentsWithText", processed)

	// --- 3. Generation ---
	doc := p.assembler.NewDocument(p.now())
	failedSections := 0
	for i, section := range llm.OutputSections {
		msg := fmt.Sprintf("Generating section %d of %d: %s", i+1, len(llm.OutputSections), section.Title)
		if err := p.progress(taskID, msg); err != nil {
			return p.handleError(logCtx, taskID, "failed to update progress", err)
		}
		out := p.generation.Generate(ctx, summary, section)
		if out.Failure != "" {
			failedSections++
		}
		p.assembler.AppendSection(doc, section.Title, out.Text)
	}

	// --- 4. Persist ---
	if err := p.progress(taskID, "Saving generated document."); err != nil {
		return p.handleError(logCtx, taskID, "failed to update progress", err)
	}
	resultPath, err := p.assembler.Persist(ctx, doc, ResultFileName(taskID))
	if err != nil {
		return p.handleError(logCtx, taskID, "failed to save generated document", err)
	}
	artifacts := models.Artifacts{ResultFile: resultPath}

	message := fmt.Sprintf("RFP generated from %d of %d document(s) with %d unique question(s).", processed, len(docs), len(pool))
	if failedSections > 0 {
		message += fmt.Sprintf(" %d section(s) could not be generated.", failedSections)
	}

	if p.pdf != nil {
		pdfPath, pages, err := p.renderPDF(ctx, taskID, doc)
		if err != nil {
			logCtx.Warn("PDF companion failed.", "error", err)
			message += " PDF rendering failed: " + err.Error()
		} else {
			artifacts.PDFFile = pdfPath
			logCtx.Info("PDF companion saved.", "path", pdfPath, "pageCount", pages)
		}
	}

	final, err = p.registry.Transition(taskID, models.TaskStatusCompleted, message, artifacts)
	if err != nil {
		logCtx.Error("Failed to mark task completed", "error", err)
		return final
	}
	logCtx.Info("Pipeline run complete.", "resultFile", resultPath)
	return final
}

func (p *Pipeline) extractAll(ctx context.Context, logCtx *slog.Logger, taskID string, docs []models.SourceDocument) ([]models.ExtractionResult, int) {
	var results []models.ExtractionResult
	processed := 0

	for i, doc := range docs {
		docLog := logCtx.With("document", doc.OriginalName)
		if err := p.progress(taskID, fmt.Sprintf("Processing document %d of %d: %s", i+1, len(docs), doc.OriginalName)); err != nil {
			docLog.Error("Failed to update progress", "error", err)
		}

		text := p.extractor.Extract(ctx, doc)
		if text == "" {
			docLog.Warn("No text extracted, skipping document.")
			continue
		}
		processed++

		for _, prompt := range llm.ExtractionPrompts {
			msg := fmt.Sprintf("Document %d of %d: extracting %s", i+1, len(docs), prompt.Name)
			if err := p.progress(taskID, msg); err != nil {
				docLog.Error("Failed to update progress", "error", err)
			}
			result := p.extraction.Extract(ctx, text, prompt)
			result.Document = doc.OriginalName
			if result.Failed() {
				docLog.Warn("Extraction failed, continuing.", "prompt", prompt.Name, "error", result.Error)
			}
			results = append(results, result)
		}
	}
	return results, processed
}

func (p *Pipeline) renderPDF(ctx context.Context, taskID string, doc *docx.Document) (string, int, error) {
	data, pages, err := p.pdf.Render(doc)
	if err != nil {
		return "", 0, err
	}
	path, err := p.store.SaveArtifact(ctx, pdfFileName(taskID), data)
	if err != nil {
		return "", 0, errors.Wrap(err, "save pdf companion")
	}
	return path, pages, nil
}

func (p *Pipeline) progress(taskID, message string) error {
	_, err := p.registry.Transition(taskID, models.TaskStatusProcessing, message, models.Artifacts{})
	return err
}

// handleError moves the task to error with a description and returns the
// resulting record.
func (p *Pipeline) handleError(logCtx *slog.Logger, taskID, message string, originalErr error) models.TaskRecord {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)

	record, err := p.registry.Transition(taskID, models.TaskStatusError, fullError, models.Artifacts{})
	if err != nil {
		logCtx.Error("CRITICAL: Failed to mark task as error after a processing failure.", "updateError", err)
		record, _ = p.registry.Get(taskID)
	}
	return record
}

// ArtifactPath returns the stored location of a task's output in format
// ("docx" or "pdf"). Tasks that have not completed yield ErrNotReady.
func ArtifactPath(record models.TaskRecord, format string) (string, error) {
	if record.Status != models.TaskStatusCompleted {
		return "", errors.Wrapf(ErrNotReady, "task %s is %s", record.ID, record.Status)
	}
	switch format {
	case "", "docx":
		return record.ResultFile, nil
	case "pdf":
		if record.PDFFile == "" {
			return "", ErrNoPDF
		}
		return record.PDFFile, nil
	default:
		return "", errors.Newf("unknown format %q", format)
	}
}
