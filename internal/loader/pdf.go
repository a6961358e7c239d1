package loader

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"docsync-ai/internal/apperr"
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFExtractor extracts text from PDFs with poppler's pdftotext.
type PDFExtractor struct {
	runner CommandRunner
	tool   string
}

// NewPDFExtractor creates a PDF extractor. A nil runner uses ExecRunner.
func NewPDFExtractor(runner CommandRunner) *PDFExtractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &PDFExtractor{runner: runner, tool: "pdftotext"}
}

// Extract runs pdftotext and returns its output. Page breaks become blank lines.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (Document, error) {
	out, err := e.runner.Run(ctx, e.tool, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Document{}, fmt.Errorf("%w: %s is not installed", apperr.ErrUnsupportedType, e.tool)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return Document{}, fmt.Errorf("pdftotext failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Document{}, fmt.Errorf("pdftotext failed: %w", err)
	}

	text := strings.ReplaceAll(string(out), "\f", "\n\n")
	return Document{Text: text}, nil
}
