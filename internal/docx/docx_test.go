package docx

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		kind LineKind
		text string
	}{
		{line: "# Executive Summary", kind: LineHeading1, text: "Executive Summary"},
		{line: "## Fees", kind: LineHeading2, text: "Fees"},
		{line: "   ## Indented heading  ", kind: LineHeading2, text: "Indented heading"},
		{line: "### Too deep", kind: LineBody, text: "### Too deep"},
		{line: "#NoSpace", kind: LineBody, text: "#NoSpace"},
		{line: "#", kind: LineBody, text: "#"},
		{line: "## ", kind: LineBody, text: "##"},
		{line: "", kind: LineBlank},
		{line: " \t ", kind: LineBlank},
		{line: "Describe your fee schedule.", kind: LineBody, text: "Describe your fee schedule."},
		{line: "- bullet # not heading", kind: LineBody, text: "- bullet # not heading"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			kind, text := ClassifyLine(tt.line)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.text, text)
		})
	}
}

func TestWriteThenReadParagraphs(t *testing.T) {
	doc := New()
	doc.AddTitle("Request for Proposal")
	doc.AddHeading("Fees & Expenses", 1)
	doc.AddHeading("Schedule", 2)
	doc.AddParagraph("Fees < 1% of AUM are \"preferred\".")

	data, err := doc.Bytes()
	require.NoError(t, err)

	paragraphs, err := ReadParagraphs(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Request for Proposal",
		"Fees & Expenses",
		"Schedule",
		"Fees < 1% of AUM are \"preferred\".",
	}, paragraphs)

	text, err := ReadText(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Contains(t, text, "Fees & Expenses\nSchedule")
}

func TestBytes_ContainsRequiredParts(t *testing.T) {
	data, err := New().Bytes()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, part := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml", "word/styles.xml"} {
		assert.True(t, names[part], "missing %s", part)
	}
}

func TestReadParagraphs_RunsTabsAndBreaks(t *testing.T) {
	const body = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Section</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve"> 1</w:t></w:r></w:p>
<w:p/>
<w:p><w:r><w:t>line one</w:t><w:br/><w:t>line two</w:t></w:r></w:p>
</w:body></w:document>`

	data := zipWith(t, map[string]string{"word/document.xml": body})
	paragraphs, err := ReadParagraphs(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, []string{"Section\t 1", "", "line one\nline two"}, paragraphs)
}

func TestReadParagraphs_TextBoxKeepsSurroundingText(t *testing.T) {
	const body = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
  xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006"><w:body>
<w:p><w:r><w:t>Before box</w:t></w:r><w:r><w:pict><w:txbxContent><w:p><w:r><w:t>Inside box</w:t></w:r></w:p></w:txbxContent></w:pict></w:r><w:r><w:t xml:space="preserve"> after box</w:t></w:r></w:p>
<w:p><w:r><w:t>Next paragraph</w:t></w:r></w:p>
</w:body></w:document>`

	data := zipWith(t, map[string]string{"word/document.xml": body})
	paragraphs, err := ReadParagraphs(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, []string{"Inside box", "Before box after box", "Next paragraph"}, paragraphs)
}

func TestReadParagraphs_AlternateContentReadOnce(t *testing.T) {
	const body = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
  xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006"><w:body>
<w:p><w:r><w:t>Cover</w:t></w:r><w:r><mc:AlternateContent>
<mc:Choice Requires="wps"><w:txbxContent><w:p><w:r><w:t>Callout</w:t></w:r></w:p></w:txbxContent></mc:Choice>
<mc:Fallback><w:pict><w:txbxContent><w:p><w:r><w:t>Callout</w:t></w:r></w:p></w:txbxContent></w:pict></mc:Fallback>
</mc:AlternateContent></w:r></w:p>
</w:body></w:document>`

	data := zipWith(t, map[string]string{"word/document.xml": body})
	paragraphs, err := ReadParagraphs(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, []string{"Callout", "Cover"}, paragraphs)
}

func TestReadParagraphs_Errors(t *testing.T) {
	_, err := ReadParagraphs(bytes.NewReader([]byte("not a zip")), 9)
	assert.Error(t, err)

	data := zipWith(t, map[string]string{"other.xml": "<x/>"})
	_, err = ReadParagraphs(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, ErrNoDocumentPart)
}

func zipWith(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
