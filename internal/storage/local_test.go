package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T, maxBytes int64) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), maxBytes)
	require.NoError(t, err)
	return store
}

func TestLocalSaveUploadAndOpen(t *testing.T) {
	store := newLocal(t, 1024)
	ctx := context.Background()

	doc, err := store.SaveUpload(ctx, "../../Pension RFP.docx", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, "../../Pension RFP.docx", doc.OriginalName)
	assert.EqualValues(t, 7, doc.Size)
	assert.True(t, strings.HasSuffix(doc.Path, "_Pension_RFP.docx"), doc.Path)
	assert.Equal(t, filepath.Join(store.root, uploadsDir), filepath.Dir(doc.Path))

	rc, err := store.Open(ctx, doc.Path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestLocalSaveUpload_SameNameDoesNotCollide(t *testing.T) {
	store := newLocal(t, 0)
	a, err := store.SaveUpload(context.Background(), "rfp.docx", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := store.SaveUpload(context.Background(), "rfp.docx", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Path, b.Path)
}

func TestLocalSaveUpload_TooLarge(t *testing.T) {
	store := newLocal(t, 4)

	_, err := store.SaveUpload(context.Background(), "big.docx", strings.NewReader("12345"))
	assert.True(t, errors.Is(err, ErrFileTooLarge))

	entries, err := os.ReadDir(filepath.Join(store.root, uploadsDir))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalOpen_Missing(t *testing.T) {
	store := newLocal(t, 0)
	_, err := store.Open(context.Background(), filepath.Join(store.root, "nope.docx"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalSaveArtifact_ReplacesAtomically(t *testing.T) {
	store := newLocal(t, 0)
	ctx := context.Background()

	path, err := store.SaveArtifact(ctx, "generated_rfp_abc.docx", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.root, outputsDir, "generated_rfp_abc.docx"), path)

	_, err = store.SaveArtifact(ctx, "generated_rfp_abc.docx", []byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Join(store.root, outputsDir))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"rfp.docx":              "rfp.docx",
		"My RFP (final).docx":   "My_RFP_final_.docx",
		`C:\Users\me\plan.docx`: "plan.docx",
		"..":                    "upload",
		"":                      "upload",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFileName(in), in)
	}
}
