// Package loader extracts plain text from the document types a folder may
// contain.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"docsync-ai/internal/apperr"
)

// Document is the text extracted from one file.
type Document struct {
	Path   string
	Title  string
	Format string // Lowercase extension without the dot
	Text   string
}

// Extractor turns a file into text.
type Extractor interface {
	Extract(ctx context.Context, path string) (Document, error)
}

// Registry selects an extractor by file extension.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a registry with the built-in extractors. runner is used
// for PDF extraction; nil selects the system runner.
func NewRegistry(runner CommandRunner) *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	text := NewTextExtractor()
	md := NewMarkdownExtractor()
	r.Register(".txt", text)
	r.Register(".md", md)
	r.Register(".markdown", md)
	r.Register(".docx", NewDocxExtractor())
	r.Register(".pptx", NewPptxExtractor())
	r.Register(".pdf", NewPDFExtractor(runner))
	return r
}

// Register binds an extractor to an extension such as ".txt".
func (r *Registry) Register(ext string, e Extractor) {
	r.extractors[strings.ToLower(ext)] = e
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load extracts the text of path. It fails with apperr.ErrUnsupportedType
// for unknown extensions and apperr.ErrRead when the file cannot be read
// or parsed.
func (r *Registry) Load(ctx context.Context, path string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.extractors[ext]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", apperr.ErrUnsupportedType, filepath.Base(path))
	}

	doc, err := e.Extract(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrUnsupportedType) || errors.Is(err, apperr.ErrRead) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("%w: %s: %v", apperr.ErrRead, filepath.Base(path), err)
	}

	doc.Path = path
	doc.Format = strings.TrimPrefix(ext, ".")
	doc.Text = normalize(doc.Text)
	if doc.Title == "" {
		doc.Title = titleFromFilename(path)
	}
	return doc, nil
}

// normalize converts line endings and strips invalid UTF-8 and a leading BOM.
func normalize(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// titleFromFilename turns "my_report-2024.docx" into "my report 2024".
func titleFromFilename(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}
