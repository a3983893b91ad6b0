package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/flarexio/docstore/vector"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
	ErrMissingAPIKey       = errors.New("missing API key")
)

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
	ProviderHash   Provider = "hash"
)

type Config struct {
	Provider  Provider `yaml:"provider"`
	Model     string   `yaml:"model"`
	BaseURL   string   `yaml:"baseURL"`
	APIKey    string   `yaml:"apiKey"`
	Dimension int      `yaml:"dimension"`

	// RateLimit caps provider calls per second; zero disables the limit.
	RateLimit float64 `yaml:"rateLimit"`
}

func NewEmbedder(cfg Config) (vector.Embedder, error) {
	e, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit > 0 {
		e = RateLimited(e, cfg.RateLimit)
	}

	return e, nil
}

func newEmbedder(cfg Config) (vector.Embedder, error) {
	if cfg.Dimension <= 0 {
		cfg.Dimension = vector.DefaultDimension
	}

	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiEmbedder(cfg)

	case ProviderOllama:
		return NewOllamaEmbedder(cfg), nil

	case ProviderOpenAI:
		return NewOpenAIEmbedder(cfg)

	case ProviderHash:
		return NewHashEmbedder(cfg.Dimension), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// checked rejects any vector whose length differs from the declared
// dimension, so a misconfigured model never reaches a table.
func checked(vec []float32, err error, dimension int) ([]float32, error) {
	if err != nil {
		return nil, err
	}

	if len(vec) != dimension {
		return nil, fmt.Errorf("%w: provider returned %d values, expected %d",
			vector.ErrDimensionMismatch, len(vec), dimension)
	}

	return vec, nil
}

type embedderFunc struct {
	dimension int
	embed     func(ctx context.Context, text string, mode vector.EmbeddingMode) ([]float32, error)
}

func (e *embedderFunc) Dimension() int {
	return e.dimension
}

func (e *embedderFunc) Embed(ctx context.Context, text string, mode vector.EmbeddingMode) ([]float32, error) {
	vec, err := e.embed(ctx, text, mode)
	return checked(vec, err, e.dimension)
}

// Unavailable returns an embedder that fails every call with err. Table
// commands keep working when a provider cannot be configured.
func Unavailable(dimension int, err error) vector.Embedder {
	return &embedderFunc{
		dimension: dimension,
		embed: func(ctx context.Context, text string, mode vector.EmbeddingMode) ([]float32, error) {
			return nil, err
		},
	}
}
