package embedding

import (
	"context"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/docstore/vector"
)

const (
	DefaultOllamaModel = "nomic-embed-text"
	DefaultOpenAIModel = string(chromem.EmbeddingModelOpenAI3Small)
)

// NewOllamaEmbedder uses a local Ollama server. Ollama has no notion of
// document or query task types, so the mode is ignored.
func NewOllamaEmbedder(cfg Config) vector.Embedder {
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}

	fn := chromem.NewEmbeddingFuncOllama(model, cfg.BaseURL)
	return fromChromem(fn, cfg.Dimension)
}

func NewOpenAIEmbedder(cfg Config) (vector.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	fn := chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI(model))
	return fromChromem(fn, cfg.Dimension), nil
}

func fromChromem(fn chromem.EmbeddingFunc, dimension int) vector.Embedder {
	return &embedderFunc{
		dimension: dimension,
		embed: func(ctx context.Context, text string, mode vector.EmbeddingMode) ([]float32, error) {
			return fn(ctx, text)
		},
	}
}
