package llm

import (
	"context"
	"net/http"
	"strings"

	"docsync-ai/internal/httpjson"
)

// DefaultOllamaURL is where a local Ollama server listens.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaClient calls the Ollama /api/chat endpoint without streaming.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaClient creates an Ollama generator.
func NewOllamaClient(cfg Config) *OllamaClient {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
}

// Complete sends prompt and returns the assistant message.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload := ollamaChatRequest{
		Model:    c.model,
		Messages: []Message{{Role: "user", Content: prompt}},
	}

	var resp ollamaChatResponse
	if err := httpjson.Post(ctx, c.client, "ollama", c.baseURL+"/api/chat", nil, payload, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}
