package loader

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsync-ai/internal/apperr"
)

type mockRunner struct {
	output []byte
	err    error
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.args = append([]string{name}, args...)
	return m.output, m.err
}

func writeZip(t *testing.T, path string, parts map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestRegistry_Load_Text(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes_2024.txt")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffline one\r\nline two\r\n"), 0644))

	doc, err := NewRegistry(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", doc.Text)
	assert.Equal(t, "txt", doc.Format)
	assert.Equal(t, "notes 2024", doc.Title)
}

func TestRegistry_Load_Unsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0644))

	r := NewRegistry(nil)
	assert.False(t, r.Supports(path))
	_, err := r.Load(context.Background(), path)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedType)
}

func TestRegistry_Load_MissingFile(t *testing.T) {
	_, err := NewRegistry(nil).Load(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	assert.ErrorIs(t, err, apperr.ErrRead)
}

func TestRegistry_Supports(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"a.txt", "b.MD", "c.markdown", "d.docx", "e.pptx", "f.pdf"} {
		assert.True(t, r.Supports(name), name)
	}
	assert.Equal(t, []string{".docx", ".markdown", ".md", ".pdf", ".pptx", ".txt"}, r.Extensions())
}

func TestMarkdownExtractor_Render(t *testing.T) {
	src := []byte("# Title\n\nFirst paragraph\nwith a soft break.\n\n## Section\n\n- one\n- two\n\n```\ncode line\n```\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")

	title, body := NewMarkdownExtractor().Render(src)
	assert.Equal(t, "Title", title)
	assert.Equal(t, "Title\n\nFirst paragraph\nwith a soft break.\n\nSection\n\none\ntwo\n\ncode line\n\na | b\n1 | 2", body)
}

func TestDocxExtractor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.docx")
	writeZip(t, path, map[string]string{
		"word/document.xml": `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>world</w:t></w:r></w:p>
<w:p></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
</w:body></w:document>`,
		"docProps/core.xml": `<cp:coreProperties xmlns:cp="x" xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Quarterly</dc:title></cp:coreProperties>`,
	})

	doc, err := NewRegistry(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Hello world\n\ncell", doc.Text)
	assert.Equal(t, "Quarterly", doc.Title)
}

func TestDocxExtractor_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))

	_, err := NewRegistry(nil).Load(context.Background(), path)
	assert.ErrorIs(t, err, apperr.ErrRead)
}

func TestPptxExtractor_SlideOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	slide := func(text string) string {
		return `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	writeZip(t, path, map[string]string{
		"ppt/slides/slide10.xml":           slide("ten"),
		"ppt/slides/slide2.xml":            slide("two"),
		"ppt/slides/slide1.xml":            slide("one"),
		"ppt/slides/_rels/slide1.xml.rels": "<Relationships/>",
	})

	doc, err := NewRegistry(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo\n\nten", doc.Text)
	assert.Equal(t, "deck", doc.Title)
}

func TestPDFExtractor(t *testing.T) {
	runner := &mockRunner{output: []byte("Page one\fPage two\n")}
	r := NewRegistry(runner)

	doc, err := r.Load(context.Background(), "/docs/manual.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Page one\n\nPage two", doc.Text)
	assert.Equal(t, []string{"pdftotext", "-layout", "-enc", "UTF-8", "/docs/manual.pdf", "-"}, runner.args)
}

func TestPDFExtractor_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "tool missing", err: &exec.Error{Name: "pdftotext", Err: exec.ErrNotFound}, want: apperr.ErrUnsupportedType},
		{name: "tool failed", err: errors.New("pdftotext crashed"), want: apperr.ErrRead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(&mockRunner{err: tt.err})
			_, err := r.Load(context.Background(), "/docs/manual.pdf")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
