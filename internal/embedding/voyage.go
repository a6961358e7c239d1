package embedding

import (
	"context"
	"net/http"
	"strings"
)

// VoyageEmbedder calls the Voyage AI embeddings API.
type VoyageEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

// NewVoyageEmbedder creates a Voyage embedder.
func NewVoyageEmbedder(cfg Config) *VoyageEmbedder {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://api.voyageai.com"
	}
	return &VoyageEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.Credential,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Embed generates document embeddings for the given texts.
func (e *VoyageEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedOpenAIShape(ctx, e.client, "voyage", e.baseURL+"/v1/embeddings", e.apiKey,
		openAIRequest{Model: e.model, Input: texts, InputType: "document"}, len(texts), e.dimensions)
}

// Dimensions returns the embedding vector size.
func (e *VoyageEmbedder) Dimensions() int { return e.dimensions }

// ModelName returns the embedding model.
func (e *VoyageEmbedder) ModelName() string { return e.model }
