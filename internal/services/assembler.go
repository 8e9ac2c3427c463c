package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/rfpsynth/internal/docx"
	"github.com/Lllllllleong/rfpsynth/internal/storage"
)

const documentTitle = "Request for Proposal"

// Assembler builds the output document and hands it to storage.
type Assembler struct {
	store storage.Store
}

func NewAssembler(store storage.Store) *Assembler {
	return &Assembler{store: store}
}

// NewDocument starts an output document with its title block.
func (a *Assembler) NewDocument(issued time.Time) *docx.Document {
	doc := docx.New()
	doc.AddTitle(documentTitle)
	doc.AddParagraph("Issued " + issued.Format("January 2, 2006"))
	return doc
}

// AppendSection adds title as a level-1 heading followed by the lines of
// text, classified as headings or body paragraphs. Blank lines are dropped.
func (a *Assembler) AppendSection(doc *docx.Document, title, text string) {
	doc.AddHeading(title, 1)
	for _, line := range strings.Split(text, "\n") {
		kind, content := docx.ClassifyLine(line)
		switch kind {
		case docx.LineBlank:
		case docx.LineHeading1:
			doc.AddHeading(content, 1)
		case docx.LineHeading2:
			doc.AddHeading(content, 2)
		default:
			doc.AddParagraph(content)
		}
	}
}

// Persist renders doc and writes it under name in one storage call.
func (a *Assembler) Persist(ctx context.Context, doc *docx.Document, name string) (string, error) {
	data, err := doc.Bytes()
	if err != nil {
		return "", errors.Wrap(err, "render output document")
	}
	path, err := a.store.SaveArtifact(ctx, name, data)
	if err != nil {
		return "", errors.Wrapf(err, "save %s", name)
	}
	slog.Info("Saved output document.", "path", path, "bytes", len(data))
	return path, nil
}
