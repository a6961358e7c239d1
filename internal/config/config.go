// Package config loads process configuration from the environment and the
// folders file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"docsync-ai/internal/llm"
)

// Vector index backends.
const (
	BackendHNSW   = "hnsw"
	BackendQdrant = "qdrant"
)

// Config holds all configuration for the application.
type Config struct {
	LLMKind      llm.Kind
	LLMBaseURL   string
	LLMModelName string
	LLMAPIKey    string
	LLMMaxTokens int
	LLMTimeout   time.Duration

	DBPath        string
	IndexDir      string
	VectorBackend string
	QdrantURL     string
	FoldersFile   string
	APIPort       string

	LogLevel  string
	LogFormat string

	WatchDebounce  time.Duration
	DisableWatch   bool
	RescanInterval time.Duration

	ChunkSize    int
	ChunkOverlap int

	ContextBudget      int
	SkipRetrievalCheck bool
	LexicalRerank      bool
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or a parent, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMKind:       llm.Kind(getEnv("LLM_KIND", string(llm.KindOpenAI))),
		LLMBaseURL:    getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:  getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:     getEnv("LLM_API_KEY", ""),
		DBPath:        getEnv("DB_PATH", "./data/docsync.db"),
		IndexDir:      getEnv("INDEX_DIR", "./data/index"),
		VectorBackend: strings.ToLower(getEnv("VECTOR_BACKEND", BackendHNSW)),
		QdrantURL:     getEnv("QDRANT_URL", "http://localhost:6333"),
		FoldersFile:   getEnv("FOLDERS_FILE", "./folders.yaml"),
		APIPort:       getEnv("API_PORT", "9000"),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	var errs []string
	parseInt := func(key string, def, lo int) int {
		v, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		if v < lo {
			errs = append(errs, fmt.Sprintf("%s must be at least %d", key, lo))
		}
		return v
	}
	parseDuration := func(key string, def time.Duration) time.Duration {
		v, err := time.ParseDuration(getEnv(key, def.String()))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be a valid duration", key))
			return def
		}
		if v <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive", key))
		}
		return v
	}
	parseBool := func(key string) bool {
		v, err := strconv.ParseBool(getEnv(key, "false"))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be true or false", key))
		}
		return v
	}

	cfg.LLMMaxTokens = parseInt("LLM_MAX_TOKENS", 0, 0)
	cfg.LLMTimeout = parseDuration("LLM_TIMEOUT", llm.DefaultTimeout)
	cfg.WatchDebounce = parseDuration("WATCH_DEBOUNCE", 500*time.Millisecond)
	cfg.DisableWatch = parseBool("DISABLE_WATCH")
	cfg.RescanInterval = parseDuration("RESCAN_INTERVAL", 60*time.Second)
	cfg.ChunkSize = parseInt("CHUNK_SIZE", 800, 1)
	cfg.ChunkOverlap = parseInt("CHUNK_OVERLAP", 80, 0)
	cfg.ContextBudget = parseInt("CONTEXT_BUDGET_CHARS", 12000, 1)
	cfg.SkipRetrievalCheck = parseBool("SKIP_RETRIEVAL_CHECK")
	cfg.LexicalRerank = parseBool("LEXICAL_RERANK")

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		errs = append(errs, "CHUNK_OVERLAP must be smaller than CHUNK_SIZE")
	}
	switch cfg.VectorBackend {
	case BackendHNSW, BackendQdrant:
	default:
		errs = append(errs, fmt.Sprintf("VECTOR_BACKEND must be %q or %q", BackendHNSW, BackendQdrant))
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, `LOG_FORMAT must be "text" or "json"`)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	// Create the data directory if it doesn't exist
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// LLM returns the generation provider configuration.
func (c *Config) LLM() llm.Config {
	return llm.Config{
		Kind:      c.LLMKind,
		Endpoint:  c.LLMBaseURL,
		APIKey:    c.LLMAPIKey,
		Model:     c.LLMModelName,
		Timeout:   c.LLMTimeout,
		MaxTokens: c.LLMMaxTokens,
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
