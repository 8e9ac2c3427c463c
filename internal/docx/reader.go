package docx

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrNoDocumentPart is returned for zip archives without word/document.xml.
var ErrNoDocumentPart = errors.New("word/document.xml not found in package")

// ReadParagraphs returns the text of every paragraph of the main document
// part, in document order. Empty paragraphs are kept as empty strings.
func ReadParagraphs(r io.ReaderAt, size int64) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, "open docx package")
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrap(err, "open document part")
		}
		defer rc.Close()
		return parseParagraphs(rc)
	}
	return nil, ErrNoDocumentPart
}

// ReadText joins the paragraphs of a .docx package with line breaks.
func ReadText(r io.ReaderAt, size int64) (string, error) {
	paragraphs, err := ReadParagraphs(r, size)
	if err != nil {
		return "", err
	}
	return strings.Join(paragraphs, "\n"), nil
}

// markupCompatibilityNS is the namespace of mc:AlternateContent. Its
// mc:Fallback branch repeats the content of mc:Choice for older readers.
const markupCompatibilityNS = "http://schemas.openxmlformats.org/markup-compatibility/2006"

// parseParagraphs walks the document part. Paragraphs can nest, as text box
// content does inside a run, so open paragraphs are kept on a stack: an
// inner paragraph is emitted when it closes and the outer one resumes.
func parseParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var (
		paragraphs []string
		open       []*strings.Builder
		inText     bool
	)
	current := func() *strings.Builder {
		if len(open) == 0 {
			return nil
		}
		return open[len(open)-1]
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "decode document part")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Fallback":
				if t.Name.Space == markupCompatibilityNS {
					if err := decoder.Skip(); err != nil {
						return nil, errors.Wrap(err, "skip fallback content")
					}
				}
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				inText = true
			case "tab":
				if b := current(); b != nil {
					b.WriteByte('\t')
				}
			case "br", "cr":
				if b := current(); b != nil {
					b.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if b := current(); b != nil {
					paragraphs = append(paragraphs, b.String())
					open = open[:len(open)-1]
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if b := current(); b != nil && inText {
				b.Write(t)
			}
		}
	}
	return paragraphs, nil
}
