package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/httpjson"
)

// Default configuration values for a local Ollama server.
const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"
)

// OllamaEmbedder generates embeddings with a local Ollama server.
type OllamaEmbedder struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// NewOllamaEmbedder creates an Ollama embedder.
func NewOllamaEmbedder(cfg Config) *OllamaEmbedder {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

type ollamaRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed calls /api/embed, which accepts a batch of inputs.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp ollamaResponse
	if err := httpjson.Post(ctx, e.client, "ollama", e.baseURL+"/api/embed", nil, ollamaRequest{Model: e.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: ollama: expected %d embeddings, got %d", apperr.ErrProvider, len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(texts))
	for i, v := range resp.Embeddings {
		vectors[i] = toFloat32(v)
	}
	if err := checkDimensions(vectors, e.dimensions); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (e *OllamaEmbedder) Dimensions() int { return e.dimensions }

// ModelName returns the embedding model.
func (e *OllamaEmbedder) ModelName() string { return e.model }
