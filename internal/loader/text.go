package loader

import (
	"context"
	"os"
)

// TextExtractor reads plain text files.
type TextExtractor struct{}

// NewTextExtractor creates a plain text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract returns the file content as text.
func (e *TextExtractor) Extract(_ context.Context, path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return Document{Text: string(data)}, nil
}
