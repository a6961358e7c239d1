package loader

import (
	"context"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor renders markdown to plain text with goldmark, keeping
// block boundaries as blank lines so the chunker can split on them.
type MarkdownExtractor struct {
	parser goldmark.Markdown
}

// NewMarkdownExtractor creates a markdown extractor.
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Extract parses the file and returns its text and first level-1 heading.
func (e *MarkdownExtractor) Extract(_ context.Context, path string) (Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	title, body := e.Render(src)
	return Document{Title: title, Text: body}, nil
}

// Render converts markdown source to a title and plain text.
func (e *MarkdownExtractor) Render(src []byte) (title, body string) {
	doc := e.parser.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	write := func(s, sep string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(s)
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			h := inlineText(node, src)
			if node.Level == 1 && title == "" {
				title = strings.TrimSpace(h)
			}
			write(h, "\n\n")
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			write(inlineText(node, src), "\n\n")
			return ast.WalkSkipChildren, nil
		case *ast.TextBlock:
			sep := "\n\n"
			if li, ok := node.Parent().(*ast.ListItem); ok && li.PreviousSibling() != nil {
				// Tight list items stay on consecutive lines.
				sep = "\n"
			}
			write(inlineText(node, src), sep)
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			write(blockLines(node, src), "\n\n")
			return ast.WalkSkipChildren, nil
		case *east.TableHeader:
			write(rowText(node, src), "\n\n")
			return ast.WalkSkipChildren, nil
		case *east.TableRow:
			write(rowText(node, src), "\n")
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return title, b.String()
}

// inlineText collects the text beneath n. Soft line breaks are kept.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.AutoLink:
			b.Write(v.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func blockLines(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(src))
	}
	return b.String()
}

// rowText renders a table row as cells separated by " | ".
func rowText(row ast.Node, src []byte) string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cells = append(cells, strings.TrimSpace(inlineText(c, src)))
	}
	return strings.Join(cells, " | ")
}
