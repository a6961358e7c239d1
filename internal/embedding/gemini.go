package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/httpjson"
)

// GeminiEmbedder calls the Gemini batchEmbedContents API.
type GeminiEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

// NewGeminiEmbedder creates a Gemini embedder.
func NewGeminiEmbedder(cfg Config) *GeminiEmbedder {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	return &GeminiEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.Credential,
		model:      strings.TrimPrefix(cfg.Model, "models/"),
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	TaskType             string        `json:"taskType,omitempty"`
	OutputDimensionality int           `json:"outputDimensionality,omitempty"`
}

type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// Embed generates retrieval-document embeddings for the given texts.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := "models/" + e.model
	payload := geminiBatchRequest{Requests: make([]geminiEmbedRequest, len(texts))}
	for i, text := range texts {
		payload.Requests[i] = geminiEmbedRequest{
			Model:                model,
			Content:              geminiContent{Parts: []geminiPart{{Text: text}}},
			TaskType:             "RETRIEVAL_DOCUMENT",
			OutputDimensionality: e.dimensions,
		}
	}

	url := fmt.Sprintf("%s/v1beta/%s:batchEmbedContents", e.baseURL, model)
	headers := map[string]string{"x-goog-api-key": e.apiKey}

	var resp geminiBatchResponse
	if err := httpjson.Post(ctx, e.client, "gemini", url, headers, payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: gemini: expected %d embeddings, got %d", apperr.ErrProvider, len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		vectors[i] = toFloat32(emb.Values)
	}
	if err := checkDimensions(vectors, e.dimensions); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (e *GeminiEmbedder) Dimensions() int { return e.dimensions }

// ModelName returns the embedding model.
func (e *GeminiEmbedder) ModelName() string { return e.model }
