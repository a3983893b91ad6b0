package embedding

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/docstore/vector"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	e := NewHashEmbedder(768)
	assert.Equal(768, e.Dimension())

	a, err := e.Embed(ctx, "hello world", vector.ModeDocument)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	b, err := e.Embed(ctx, "Hello, World!", vector.ModeQuery)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Len(a, 768)
	assert.Equal(a, b)
	assert.InDelta(1.0, vector.CosineSimilarity(a, b), 1e-6)

	c, err := e.Embed(ctx, "hello", vector.ModeQuery)
	assert.NoError(err)
	assert.Greater(vector.CosineSimilarity(a, c), float32(0.5))
}

func TestHashEmbedderEmptyText(t *testing.T) {
	assert := assert.New(t)

	vec, err := NewHashEmbedder(8).Embed(context.Background(), "", vector.ModeDocument)
	assert.NoError(err)
	assert.Equal(float32(1), vec[0])
}

func TestGeminiEmbedder(t *testing.T) {
	assert := assert.New(t)

	var (
		path string
		body string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("secret", r.Header.Get("x-goog-api-key"))

		bs, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		path = r.URL.Path
		body = string(bs)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"embeddings": [{"values": [0.1, 0.2, 0.3]}]}`))
	}))
	defer srv.Close()

	e, err := NewEmbedder(Config{
		Provider:  ProviderGemini,
		BaseURL:   srv.URL,
		APIKey:    "secret",
		Dimension: 3,
	})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	vec, err := e.Embed(context.Background(), "what is docstore?", vector.ModeQuery)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal([]float32{0.1, 0.2, 0.3}, vec)
	assert.Contains(path, "models/embedding-001:")
	assert.Contains(body, `"taskType":"RETRIEVAL_QUERY"`)
	assert.Contains(body, `"outputDimensionality":3`)
	assert.Contains(body, `"text":"what is docstore?"`)
}

func TestGeminiEmbedderErrors(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.Contains(r.URL.Path, "models/short:"):
			w.Write([]byte(`{"embeddings": [{"values": [0.1]}]}`))

		case strings.Contains(r.URL.Path, "models/empty:"):
			w.Write([]byte(`{"embeddings": []}`))

		default:
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": {"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"}}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	_, err := NewGeminiEmbedder(Config{Dimension: 3})
	assert.ErrorIs(err, ErrMissingAPIKey)

	e, err := NewGeminiEmbedder(Config{BaseURL: srv.URL, APIKey: "bad", Dimension: 3})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	_, err = e.Embed(ctx, "text", vector.ModeDocument)
	assert.ErrorContains(err, "API key not valid")

	e, err = NewGeminiEmbedder(Config{BaseURL: srv.URL, APIKey: "key", Model: "short", Dimension: 3})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	_, err = e.Embed(ctx, "text", vector.ModeDocument)
	assert.ErrorIs(err, vector.ErrDimensionMismatch)

	e, err = NewGeminiEmbedder(Config{BaseURL: srv.URL, APIKey: "key", Model: "empty", Dimension: 3})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	_, err = e.Embed(ctx, "text", vector.ModeDocument)
	assert.ErrorIs(err, ErrEmptyEmbedding)
}

func TestNewEmbedder(t *testing.T) {
	assert := assert.New(t)

	_, err := NewEmbedder(Config{Provider: ProviderGemini})
	assert.ErrorIs(err, ErrMissingAPIKey)

	_, err = NewEmbedder(Config{Provider: ProviderOpenAI})
	assert.ErrorIs(err, ErrMissingAPIKey)

	_, err = NewEmbedder(Config{Provider: "word2vec"})
	assert.ErrorIs(err, ErrUnsupportedProvider)

	e, err := NewEmbedder(Config{Provider: ProviderHash})
	assert.NoError(err)
	assert.Equal(vector.DefaultDimension, e.Dimension())

	e, err = NewEmbedder(Config{Provider: ProviderOllama, Dimension: 768})
	assert.NoError(err)
	assert.Equal(768, e.Dimension())
}

func TestUnavailable(t *testing.T) {
	assert := assert.New(t)

	e := Unavailable(768, ErrMissingAPIKey)
	assert.Equal(768, e.Dimension())

	_, err := e.Embed(context.Background(), "hello", vector.ModeDocument)
	assert.ErrorIs(err, ErrMissingAPIKey)
}

func TestRateLimited(t *testing.T) {
	assert := assert.New(t)

	e := RateLimited(NewHashEmbedder(16), 0.001)
	assert.Equal(16, e.Dimension())

	ctx := context.Background()

	// the first call spends the only token
	_, err := e.Embed(ctx, "first", vector.ModeDocument)
	assert.NoError(err)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	_, err = e.Embed(ctx, "second", vector.ModeDocument)
	assert.Error(err)
}

func TestNewEmbedderRateLimit(t *testing.T) {
	assert := assert.New(t)

	e, err := NewEmbedder(Config{Provider: ProviderHash, Dimension: 16, RateLimit: 5})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	_, ok := e.(*rateLimitedEmbedder)
	assert.True(ok)
}
