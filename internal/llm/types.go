package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks docsync-ai/internal/llm Generator

import (
	"context"
	"fmt"
	"time"

	"docsync-ai/internal/apperr"
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Kind selects a generator implementation.
type Kind string

const (
	// KindOpenAI is any OpenAI-compatible chat completions endpoint (llama.cpp, vLLM, OpenAI).
	KindOpenAI Kind = "openai"
	// KindOllama is a local Ollama server.
	KindOllama Kind = "ollama"
	// KindAnthropic is the Anthropic messages API.
	KindAnthropic Kind = "anthropic"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 120 * time.Second

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config describes a generation provider.
type Config struct {
	Kind     Kind          `yaml:"kind"`
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`

	// MaxTokens specifies the maximum number of tokens to generate.
	// If 0, the provider default is used.
	MaxTokens int `yaml:"max_tokens"`
}

// New builds the generator for cfg.
func New(cfg Config) (Generator, error) {
	if cfg.Model == "" {
		return nil, &apperr.ValidationError{Field: "model", Message: "is required"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	switch cfg.Kind {
	case KindOpenAI, "":
		return NewClient(cfg), nil
	case KindOllama:
		return NewOllamaClient(cfg), nil
	case KindAnthropic:
		if cfg.APIKey == "" {
			return nil, &apperr.ValidationError{Field: "api_key", Message: "is required for anthropic"}
		}
		return NewAnthropicClient(cfg), nil
	default:
		return nil, &apperr.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown generator kind %q", cfg.Kind)}
	}
}
