package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/httpjson"
)

// Client is a client for an OpenAI-compatible chat completions API
// (llama.cpp server, vLLM, OpenAI).
type Client struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	client    *http.Client
}

// NewClient creates a new chat completions client.
func NewClient(cfg Config) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(cfg.Endpoint, "/"),
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []ChatChoice `json:"choices"`
}

// Complete sends prompt as a single user message and returns the reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)

	payload := ChatRequest{
		Model: c.Model,
		Messages: []Message{
			{
				Role:    "user",
				Content: prompt,
			},
		},
		MaxTokens: c.MaxTokens,
	}

	headers := map[string]string{}
	if c.APIKey != "" {
		headers["Authorization"] = fmt.Sprintf("Bearer %s", c.APIKey)
	}

	var chatResp ChatResponse
	if err := httpjson.Post(ctx, c.client, "openai", url, headers, payload, &chatResp); err != nil {
		return "", err
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", apperr.ErrProvider)
	}

	return chatResp.Choices[0].Message.Content, nil
}
