package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/rfpsynth/internal/docx"
)

// PDFRenderer produces a PDF companion of an output document.
type PDFRenderer struct {
	tempDir string
}

var disableConfigDir sync.Once

func NewPDFRenderer(tempDir string) *PDFRenderer {
	// pdfcpu otherwise writes a config directory under the user's home.
	disableConfigDir.Do(api.DisableConfigDir)
	return &PDFRenderer{tempDir: tempDir}
}

// Render lays doc out as an A4 PDF, then validates and optimizes it. It
// returns the final bytes and page count.
func (r *PDFRenderer) Render(doc *docx.Document) ([]byte, int, error) {
	workDir, err := os.MkdirTemp(r.tempDir, "rfp-pdf-*")
	if err != nil {
		return nil, 0, errors.Wrap(err, "create pdf work dir")
	}
	defer os.RemoveAll(workDir)

	rawPath := filepath.Join(workDir, "raw.pdf")
	optimizedPath := filepath.Join(workDir, "optimized.pdf")

	if err := writePDF(doc, rawPath); err != nil {
		return nil, 0, err
	}
	if err := optimizePDF(rawPath, optimizedPath); err != nil {
		return nil, 0, errors.Wrap(err, "failed to validate/optimize PDF")
	}
	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get page count")
	}

	data, err := os.ReadFile(optimizedPath)
	if err != nil {
		return nil, 0, errors.Wrap(err, "read optimized pdf")
	}
	return data, pageCount, nil
}

func writePDF(doc *docx.Document, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(documentTitle, true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	for _, block := range doc.Blocks() {
		switch block.Kind {
		case docx.BlockTitle:
			pdf.SetFont("Helvetica", "B", 20)
			pdf.MultiCell(0, 10, tr(block.Text), "", "C", false)
			pdf.Ln(6)
		case docx.BlockHeading1:
			pdf.Ln(4)
			pdf.SetFont("Helvetica", "B", 15)
			pdf.MultiCell(0, 8, tr(block.Text), "", "L", false)
			pdf.Ln(2)
		case docx.BlockHeading2:
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", 12)
			pdf.MultiCell(0, 7, tr(block.Text), "", "L", false)
			pdf.Ln(1)
		default:
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 6, tr(block.Text), "", "L", false)
			pdf.Ln(2)
		}
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return errors.Wrap(err, "write pdf")
	}
	return nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}
