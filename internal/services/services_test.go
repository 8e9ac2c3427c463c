package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/rfpsynth/internal/config"
	"github.com/Lllllllleong/rfpsynth/internal/docx"
	"github.com/Lllllllleong/rfpsynth/internal/llm"
	"github.com/Lllllllleong/rfpsynth/internal/models"
	"github.com/Lllllllleong/rfpsynth/internal/storage"
	"github.com/Lllllllleong/rfpsynth/internal/tasks"
)

// scriptedProvider answers extraction prompts with canned JSON and
// generation prompts with markup text.
type scriptedProvider struct {
	mu          sync.Mutex
	questions   []string
	fail        error
	credentials error
	calls       int
}

func (s *scriptedProvider) Name() string    { return "scripted" }
func (s *scriptedProvider) Validate() error { return s.credentials }

func (s *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.fail != nil {
		return "", s.fail
	}
	user := req.Messages[len(req.Messages)-1].Content
	switch {
	case !req.JSONResponse:
		return "## Overview\nGenerated body.\n\nSecond paragraph.", nil
	case strings.Contains(user, `"categorized_requirements"`):
		payload := map[string]any{
			"categorized_requirements": []models.RequirementCategory{{CategoryName: "Fees", Questions: s.questions}},
		}
		out, _ := json.Marshal(payload)
		return string(out), nil
	case strings.Contains(user, `"summary"`):
		return `{"summary":"A foundation seeks an investment consultant."}`, nil
	default:
		return `{"background":"Founded in 1950."}`, nil
	}
}

func (s *scriptedProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fixture struct {
	store    *storage.LocalStore
	registry *tasks.Registry
	provider *scriptedProvider
	pipeline *Pipeline
}

func newFixture(t *testing.T, provider *scriptedProvider) *fixture {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir(), 0)
	require.NoError(t, err)
	registry := tasks.NewRegistry()
	cfg := &config.Config{MaxDocuments: 7, ModelTimeout: time.Second}

	return &fixture{
		store:    store,
		registry: registry,
		provider: provider,
		pipeline: NewPipeline(cfg, registry, store, provider),
	}
}

func (f *fixture) upload(t *testing.T, name string, paragraphs ...string) models.SourceDocument {
	t.Helper()
	doc := docx.New()
	for _, p := range paragraphs {
		doc.AddParagraph(p)
	}
	data, err := doc.Bytes()
	require.NoError(t, err)

	src, err := f.store.SaveUpload(context.Background(), name, bytes.NewReader(data))
	require.NoError(t, err)
	return src
}

func readOutput(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	paragraphs, err := docx.ReadParagraphs(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return paragraphs
}

func statusRank(s models.TaskStatus) int {
	switch s {
	case models.TaskStatusQueued:
		return 0
	case models.TaskStatusProcessing:
		return 1
	default:
		return 2
	}
}

func TestRun_CompletesAndWritesDocument(t *testing.T) {
	provider := &scriptedProvider{questions: []string{"Describe your fee schedule."}}
	f := newFixture(t, provider)

	var history []models.TaskRecord
	f.registry.OnTransition(func(r models.TaskRecord) { history = append(history, r) })

	docs := []models.SourceDocument{
		f.upload(t, "first.docx", "Pension fund RFP", "Describe your fee schedule."),
		f.upload(t, "second.docx", "Endowment RFP"),
	}
	record := f.registry.Create(len(docs), "queued")

	final := f.pipeline.Run(context.Background(), record.ID, docs)

	require.Equal(t, models.TaskStatusCompleted, final.Status, final.Message)
	assert.Equal(t, ResultFileName(record.ID), filepath.Base(final.ResultFile))
	assert.Contains(t, final.Message, "2 of 2 document(s)")
	assert.Contains(t, final.Message, "1 unique question(s)")
	assert.Equal(t, 2*len(llm.ExtractionPrompts)+len(llm.OutputSections), provider.callCount())

	paragraphs := readOutput(t, final.ResultFile)
	assert.Equal(t, documentTitle, paragraphs[0])
	for _, section := range llm.OutputSections {
		assert.Contains(t, paragraphs, section.Title)
	}
	assert.Contains(t, paragraphs, "Overview")
	assert.Contains(t, paragraphs, "Generated body.")

	prev := 0
	var messages []string
	for _, r := range history {
		rank := statusRank(r.Status)
		assert.GreaterOrEqual(t, rank, prev, "status went backwards at %q", r.Message)
		prev = rank
		messages = append(messages, r.Message)
	}
	assert.Equal(t, models.TaskStatusCompleted, history[len(history)-1].Status)
	assert.Contains(t, messages, "Processing document 1 of 2: first.docx")
	assert.Contains(t, messages, "Document 2 of 2: extracting categorized_requirements")
	assert.Contains(t, messages, "Generating section 1 of 6: Executive Summary")
}

func TestRun_EveryModelCallFailsStillCompletes(t *testing.T) {
	provider := &scriptedProvider{fail: errors.New("model unreachable")}
	f := newFixture(t, provider)
	docs := []models.SourceDocument{f.upload(t, "rfp.docx", "Some text")}
	record := f.registry.Create(len(docs), "queued")

	final := f.pipeline.Run(context.Background(), record.ID, docs)

	require.Equal(t, models.TaskStatusCompleted, final.Status)
	assert.Contains(t, final.Message, "6 section(s) could not be generated")
	paragraphs := readOutput(t, final.ResultFile)
	assert.Contains(t, paragraphs, "[Error generating Executive Summary: model unreachable]")
}

func TestRun_AllDocumentsEmptyStillCompletes(t *testing.T) {
	provider := &scriptedProvider{}
	f := newFixture(t, provider)
	docs := []models.SourceDocument{
		f.upload(t, "blank.docx"),
		f.upload(t, "spaces.docx", "   ", ""),
	}
	record := f.registry.Create(len(docs), "queued")

	final := f.pipeline.Run(context.Background(), record.ID, docs)

	require.Equal(t, models.TaskStatusCompleted, final.Status)
	assert.Contains(t, final.Message, "0 of 2 document(s)")
	assert.Equal(t, len(llm.OutputSections), provider.callCount())
}

func TestRun_UnreadableDocumentIsSkipped(t *testing.T) {
	provider := &scriptedProvider{questions: []string{"Q1"}}
	f := newFixture(t, provider)
	good := f.upload(t, "good.docx", "text")
	broken, err := f.store.SaveUpload(context.Background(), "broken.docx", strings.NewReader("not a zip"))
	require.NoError(t, err)
	missing := models.SourceDocument{Path: "/does/not/exist.docx", OriginalName: "gone.docx"}

	docs := []models.SourceDocument{broken, missing, good}
	record := f.registry.Create(len(docs), "queued")
	final := f.pipeline.Run(context.Background(), record.ID, docs)

	require.Equal(t, models.TaskStatusCompleted, final.Status)
	assert.Contains(t, final.Message, "1 of 3 document(s)")
}

type failingStore struct {
	storage.Store
	saveErr   error
	openPanic bool
}

func (s failingStore) SaveArtifact(ctx context.Context, name string, data []byte) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	return s.Store.SaveArtifact(ctx, name, data)
}

func (s failingStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if s.openPanic {
		panic("storage exploded")
	}
	return s.Store.Open(ctx, path)
}

func TestRun_PersistFailureMarksError(t *testing.T) {
	f := newFixture(t, &scriptedProvider{})
	store := failingStore{Store: f.store, saveErr: errors.New("disk full")}
	registry := tasks.NewRegistry()
	p := NewPipeline(&config.Config{MaxDocuments: 7, ModelTimeout: time.Second}, registry, store, f.provider)

	docs := []models.SourceDocument{f.upload(t, "rfp.docx", "text")}
	record := registry.Create(len(docs), "queued")
	final := p.Run(context.Background(), record.ID, docs)

	assert.Equal(t, models.TaskStatusError, final.Status)
	assert.Contains(t, final.Message, "failed to save generated document")
	assert.Contains(t, final.Message, "disk full")
	assert.Empty(t, final.ResultFile)
}

func TestRun_PanicMarksError(t *testing.T) {
	f := newFixture(t, &scriptedProvider{})
	store := failingStore{Store: f.store, openPanic: true}
	registry := tasks.NewRegistry()
	p := NewPipeline(&config.Config{MaxDocuments: 7, ModelTimeout: time.Second}, registry, store, f.provider)

	docs := []models.SourceDocument{f.upload(t, "rfp.docx", "text")}
	record := registry.Create(len(docs), "queued")
	final := p.Run(context.Background(), record.ID, docs)

	assert.Equal(t, models.TaskStatusError, final.Status)
	assert.Contains(t, final.Message, "storage exploded")

	got, err := registry.Get(record.ID)
	require.NoError(t, err)
	assert.Equal(t, final, got)
}

func TestStartAndWait(t *testing.T) {
	f := newFixture(t, &scriptedProvider{questions: []string{"Q"}})
	docs := []models.SourceDocument{f.upload(t, "rfp.docx", "text")}

	ctx, cancel := context.WithCancel(context.Background())
	record, err := f.pipeline.Start(ctx, docs)
	require.NoError(t, err)
	cancel()
	assert.Equal(t, models.TaskStatusQueued, record.Status)

	f.pipeline.Wait()

	got, err := f.registry.Get(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
}

func TestStart_ConcurrentBatchesAreIndependent(t *testing.T) {
	f := newFixture(t, &scriptedProvider{questions: []string{"Q"}})

	var ids []string
	for i := 0; i < 5; i++ {
		docs := []models.SourceDocument{f.upload(t, fmt.Sprintf("rfp-%d.docx", i), "text")}
		record, err := f.pipeline.Start(context.Background(), docs)
		require.NoError(t, err)
		ids = append(ids, record.ID)
	}
	f.pipeline.Wait()

	for _, id := range ids {
		got, err := f.registry.Get(id)
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusCompleted, got.Status)
		assert.Equal(t, ResultFileName(id), filepath.Base(got.ResultFile))
	}
}

func TestValidate(t *testing.T) {
	names := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("rfp-%d.docx", i)
		}
		return out
	}

	f := newFixture(t, &scriptedProvider{})
	assert.NoError(t, f.pipeline.Validate(names(7)))
	assert.NoError(t, f.pipeline.Validate([]string{"UPPER.DOCX"}))
	assert.True(t, errors.Is(f.pipeline.Validate(names(8)), ErrTooManyDocuments))
	assert.True(t, errors.Is(f.pipeline.Validate(nil), ErrNoDocuments))
	assert.True(t, errors.Is(f.pipeline.Validate([]string{"a.docx", "b.pdf"}), ErrUnsupportedFile))

	noCreds := newFixture(t, &scriptedProvider{credentials: llm.ErrMissingCredentials})
	assert.True(t, errors.Is(noCreds.pipeline.Validate(names(1)), llm.ErrMissingCredentials))
}

func TestStart_RejectsBeforeCreatingTask(t *testing.T) {
	f := newFixture(t, &scriptedProvider{})
	docs := make([]models.SourceDocument, 8)
	for i := range docs {
		docs[i] = models.SourceDocument{OriginalName: fmt.Sprintf("%d.docx", i)}
	}

	_, err := f.pipeline.Start(context.Background(), docs)
	assert.True(t, errors.Is(err, ErrTooManyDocuments))
	assert.Empty(t, f.registry.List())
}

func TestArtifactPath(t *testing.T) {
	done := models.TaskRecord{ID: "t", Status: models.TaskStatusCompleted, ResultFile: "out.docx"}

	path, err := ArtifactPath(done, "")
	require.NoError(t, err)
	assert.Equal(t, "out.docx", path)

	_, err = ArtifactPath(done, "pdf")
	assert.True(t, errors.Is(err, ErrNoPDF))

	for _, status := range []models.TaskStatus{models.TaskStatusQueued, models.TaskStatusProcessing, models.TaskStatusError} {
		_, err := ArtifactPath(models.TaskRecord{Status: status}, "docx")
		assert.True(t, errors.Is(err, ErrNotReady), status)
	}
}

func TestExecute_RunsSynchronously(t *testing.T) {
	f := newFixture(t, &scriptedProvider{questions: []string{"Q"}})
	docs := []models.SourceDocument{f.upload(t, "rfp.docx", "text")}

	final, err := f.pipeline.Execute(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, final.Status)

	got, err := f.registry.Get(final.ID)
	require.NoError(t, err)
	assert.Equal(t, final, got)

	_, err = f.pipeline.Execute(context.Background(), []models.SourceDocument{{OriginalName: "x.txt"}})
	assert.True(t, errors.Is(err, ErrUnsupportedFile))
	assert.Len(t, f.registry.List(), 1)
}
