package embedding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/flarexio/docstore/vector"
)

const DefaultGeminiModel = "embedding-001"

var ErrEmptyEmbedding = errors.New("provider returned no embedding")

const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// NewGeminiEmbedder embeds through the Gemini API. The document/query mode
// maps onto the retrieval task types.
func NewGeminiEmbedder(cfg Config) (vector.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}

	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		}
	}

	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, err
	}

	return &geminiEmbedder{
		client:    client,
		model:     model,
		dimension: cfg.Dimension,
	}, nil
}

type geminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

func (e *geminiEmbedder) Dimension() int {
	return e.dimension
}

func (e *geminiEmbedder) Embed(ctx context.Context, text string, mode vector.EmbeddingMode) ([]float32, error) {
	vec, err := e.embed(ctx, text, mode)
	return checked(vec, err, e.dimension)
}

func (e *geminiEmbedder) embed(ctx context.Context, text string, mode vector.EmbeddingMode) ([]float32, error) {
	config := &genai.EmbedContentConfig{
		TaskType: taskRetrievalDocument,
	}

	if mode == vector.ModeQuery {
		config.TaskType = taskRetrievalQuery
	}

	// the native size needs no truncation
	if e.dimension != vector.DefaultDimension {
		d := int32(e.dimension)
		config.OutputDimensionality = &d
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings failed: %w", err)
	}

	if len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, ErrEmptyEmbedding
	}

	return result.Embeddings[0].Values, nil
}
