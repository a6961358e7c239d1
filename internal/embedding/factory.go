package embedding

import "time"

// DefaultTimeout bounds each provider call.
const DefaultTimeout = 30 * time.Second

// DefaultBatchSize returns the per-call text limit for a provider kind.
func DefaultBatchSize(kind Kind) int {
	switch kind {
	case KindOpenAI:
		return 96
	case KindVoyage:
		return 64
	case KindGemini:
		return 100
	default:
		return 32
	}
}

// New builds the embedder for cfg. Hosted providers are rate limited.
func New(cfg Config) (Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	var e Embedder
	switch cfg.Kind {
	case KindLocal:
		e = NewOllamaEmbedder(cfg)
	case KindOpenAI:
		e = NewOpenAIEmbedder(cfg)
	case KindVoyage:
		e = NewVoyageEmbedder(cfg)
	case KindGemini:
		e = NewGeminiEmbedder(cfg)
	}

	if cfg.Kind.Hosted() {
		e = NewRateLimited(e, cfg.RequestsPerSecond, 1)
	}
	return e, nil
}

// EffectiveBatchSize returns BatchSize or the provider default.
func (c Config) EffectiveBatchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return DefaultBatchSize(c.Kind)
}
