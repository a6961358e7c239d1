// Package embedding turns text into vectors through pluggable providers.
package embedding

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks docsync-ai/internal/embedding Embedder

import (
	"context"
	"fmt"
	"time"

	"docsync-ai/internal/apperr"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the length of every vector produced.
	Dimensions() int
	// ModelName returns the provider's model identifier.
	ModelName() string
}

// Kind selects a provider implementation.
type Kind string

const (
	// KindLocal is a local Ollama server.
	KindLocal Kind = "local-model"
	// KindOpenAI is any OpenAI-compatible /v1/embeddings endpoint.
	KindOpenAI Kind = "hosted-a"
	// KindVoyage is the Voyage AI embeddings API.
	KindVoyage Kind = "hosted-b"
	// KindGemini is the Google Gemini embeddings API.
	KindGemini Kind = "hosted-c"
)

// Hosted reports whether the provider is a remote paid API that should be rate limited.
func (k Kind) Hosted() bool {
	return k == KindOpenAI || k == KindVoyage || k == KindGemini
}

// Config describes an embedding provider binding.
type Config struct {
	ID         string        `yaml:"id"`
	Kind       Kind          `yaml:"kind"`
	Endpoint   string        `yaml:"endpoint"`
	Credential string        `yaml:"credential"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
	// RequestsPerSecond limits hosted providers. Zero selects the default.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Validate checks that the config can build an embedder.
func (c Config) Validate() error {
	switch c.Kind {
	case KindLocal, KindOpenAI, KindVoyage, KindGemini:
	default:
		return &apperr.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown provider kind %q", c.Kind)}
	}
	if c.Model == "" {
		return &apperr.ValidationError{Field: "model", Message: "is required"}
	}
	if c.Dimensions <= 0 {
		return &apperr.ValidationError{Field: "dimensions", Message: "must be positive"}
	}
	if c.Kind.Hosted() && c.Credential == "" {
		return &apperr.ValidationError{Field: "credential", Message: "is required for hosted providers"}
	}
	return nil
}

// Signature identifies the vector space a provider produces. Indexes built
// with different signatures are not comparable.
func (c Config) Signature() string {
	return fmt.Sprintf("%s|%s|%d", c.Kind, c.Model, c.Dimensions)
}

// checkDimensions returns apperr.ErrConfig if any vector has the wrong length.
func checkDimensions(vectors [][]float32, want int) error {
	for i, v := range vectors {
		if len(v) != want {
			return fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", apperr.ErrConfig, i, len(v), want)
		}
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
