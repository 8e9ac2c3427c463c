// Package docx reads paragraph text from and writes simple WordprocessingML
// (.docx) packages.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"

	"github.com/cockroachdb/errors"
)

// MIMEType is the media type of a .docx package.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// BlockKind identifies how a block is styled.
type BlockKind int

const (
	BlockTitle BlockKind = iota
	BlockHeading1
	BlockHeading2
	BlockParagraph
)

// Block is one paragraph-level element of a Document.
type Block struct {
	Kind BlockKind
	Text string
}

// Document is an in-memory, ordered sequence of headings and paragraphs.
type Document struct {
	blocks []Block
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

func (d *Document) AddTitle(text string) {
	d.blocks = append(d.blocks, Block{Kind: BlockTitle, Text: text})
}

// AddHeading appends a heading; levels other than 1 render as level 2.
func (d *Document) AddHeading(text string, level int) {
	kind := BlockHeading2
	if level <= 1 {
		kind = BlockHeading1
	}
	d.blocks = append(d.blocks, Block{Kind: kind, Text: text})
}

func (d *Document) AddParagraph(text string) {
	d.blocks = append(d.blocks, Block{Kind: BlockParagraph, Text: text})
}

// Blocks returns a copy of the document's blocks in order.
func (d *Document) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// Bytes renders the document as a complete .docx package.
func (d *Document) Bytes() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := d.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the .docx package to w.
func (d *Document) WriteTo(w io.Writer) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name    string
		content []byte
	}{
		{name: "[Content_Types].xml", content: []byte(contentTypesXML)},
		{name: "_rels/.rels", content: []byte(packageRelsXML)},
		{name: "word/_rels/document.xml.rels", content: []byte(documentRelsXML)},
		{name: "word/styles.xml", content: []byte(stylesXML)},
		{name: "word/document.xml", content: d.documentXML()},
	}

	for _, part := range parts {
		fw, err := zw.Create(part.name)
		if err != nil {
			return errors.Wrapf(err, "create part %s", part.name)
		}
		if _, err := fw.Write(part.content); err != nil {
			return errors.Wrapf(err, "write part %s", part.name)
		}
	}

	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "finalize docx package")
	}
	return nil
}

func (d *Document) documentXML() []byte {
	buf := &bytes.Buffer{}
	buf.WriteString(xml.Header)
	buf.WriteString(`<w:document xmlns:w="` + wordNamespace + `"><w:body>`)
	for _, block := range d.blocks {
		buf.WriteString("<w:p>")
		if style := block.style(); style != "" {
			buf.WriteString(`<w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>`)
		}
		buf.WriteString(`<w:r><w:t xml:space="preserve">`)
		_ = xml.EscapeText(buf, []byte(block.Text))
		buf.WriteString("</w:t></w:r></w:p>")
	}
	buf.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>`)
	buf.WriteString("</w:body></w:document>")
	return buf.Bytes()
}

func (b Block) style() string {
	switch b.Kind {
	case BlockTitle:
		return "Title"
	case BlockHeading1:
		return "Heading1"
	case BlockHeading2:
		return "Heading2"
	default:
		return ""
	}
}

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/><Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/></Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/></Relationships>`

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri"/><w:sz w:val="22"/></w:rPr></w:rPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:pPr><w:spacing w:after="160"/></w:pPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:jc w:val="center"/><w:spacing w:after="300"/></w:pPr><w:rPr><w:b/><w:sz w:val="48"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:keepNext/><w:spacing w:before="360" w:after="120"/><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:color w:val="1F3864"/><w:sz w:val="32"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:keepNext/><w:spacing w:before="240" w:after="80"/><w:outlineLvl w:val="1"/></w:pPr><w:rPr><w:b/><w:color w:val="2F5496"/><w:sz w:val="26"/></w:rPr></w:style>` +
	`</w:styles>`
