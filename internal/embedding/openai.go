package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/httpjson"
)

// OpenAIEmbedder calls an OpenAI-compatible /v1/embeddings endpoint
// (OpenAI, llama.cpp server, vLLM).
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

// NewOpenAIEmbedder creates an embedder for an OpenAI-compatible server.
func NewOpenAIEmbedder(cfg Config) *OpenAIEmbedder {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &OpenAIEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.Credential,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

type openAIRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	InputType string   `json:"input_type,omitempty"`
}

type openAIData struct {
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type openAIResponse struct {
	Data []openAIData `json:"data"`
}

// Embed generates embeddings for the given texts.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedOpenAIShape(ctx, e.client, "openai", e.baseURL+"/v1/embeddings", e.apiKey,
		openAIRequest{Model: e.model, Input: texts}, len(texts), e.dimensions)
}

// Dimensions returns the embedding vector size.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// ModelName returns the embedding model.
func (e *OpenAIEmbedder) ModelName() string { return e.model }

// embedOpenAIShape handles the {"data":[{"embedding","index"}]} response
// format shared by OpenAI-compatible servers and Voyage.
func embedOpenAIShape(ctx context.Context, client *http.Client, provider, url, apiKey string, payload openAIRequest, n, dims int) ([][]float32, error) {
	if n == 0 {
		return nil, nil
	}

	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}

	var resp openAIResponse
	if err := httpjson.Post(ctx, client, provider, url, headers, payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != n {
		return nil, fmt.Errorf("%w: %s: expected %d embeddings, got %d", apperr.ErrProvider, provider, n, len(resp.Data))
	}

	sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	vectors := make([][]float32, n)
	for i, d := range resp.Data {
		vectors[i] = toFloat32(d.Embedding)
	}
	if err := checkDimensions(vectors, dims); err != nil {
		return nil, err
	}
	return vectors, nil
}
