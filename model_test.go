package docstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/docstore/embedding"
	"github.com/flarexio/docstore/vector"
)

func zapTestLogger() *zap.Logger {
	return zap.NewNop()
}

func TestConfigYAMLUnmarshal(t *testing.T) {
	assert := assert.New(t)

	input := `store:
  backend: sqlite
  persistent: true
  path: /var/lib/docstore
embedding:
  provider: ollama
  model: nomic-embed-text
defaultTable: notes
embedTimeout: 10s`

	var cfg Config
	if err := yaml.Unmarshal([]byte(input), &cfg); err != nil {
		assert.Fail(err.Error())
		return
	}

	cfg.ApplyDefaults()

	assert.Equal(vector.BackendSQLite, cfg.Store.Backend)
	assert.Equal("/var/lib/docstore", cfg.Store.Path)
	assert.Equal(vector.DefaultDimension, cfg.Store.Dimension)
	assert.Equal(embedding.ProviderOllama, cfg.Embedding.Provider)
	assert.Equal(vector.DefaultDimension, cfg.Embedding.Dimension)
	assert.Equal("notes", cfg.DefaultTable)
	assert.Equal(DefaultSearchLimit, cfg.SearchLimit)
	assert.Equal(10*time.Second, cfg.EmbedTimeout.Duration())
}

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()

	assert.Equal(vector.BackendSQLite, cfg.Store.Backend)
	assert.True(cfg.Store.Persistent)
	assert.Equal(768, cfg.Store.Dimension)
	assert.Equal(embedding.ProviderGemini, cfg.Embedding.Provider)
	assert.Equal("default_global_table", cfg.DefaultTable)
	assert.Equal(5, cfg.SearchLimit)
	assert.Equal(30*time.Second, cfg.EmbedTimeout.Duration())
}

func TestApplyDefaultsBackend(t *testing.T) {
	assert := assert.New(t)

	persistent := Config{Store: vector.Config{Persistent: true}}
	persistent.ApplyDefaults()
	assert.Equal(vector.BackendSQLite, persistent.Store.Backend)

	memory := Config{}
	memory.ApplyDefaults()
	assert.Equal(vector.BackendChromem, memory.Store.Backend)

	explicit := Config{Store: vector.Config{Backend: vector.BackendChromem, Persistent: true}}
	explicit.ApplyDefaults()
	assert.Equal(vector.BackendChromem, explicit.Store.Backend)
}

func TestDurationJSON(t *testing.T) {
	assert := assert.New(t)

	bs, err := json.Marshal(Duration(90 * time.Second))
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(`"1m30s"`, string(bs))

	var d Duration
	assert.NoError(json.Unmarshal([]byte(`"250ms"`), &d))
	assert.Equal(250*time.Millisecond, d.Duration())

	assert.Error(json.Unmarshal([]byte(`"soon"`), &d))
}

func TestReports(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(Report{StatusInfo, "Table 'x' not found, skipping."},
		DeleteTableReport(Result{Table: "x", Outcome: OutcomeNotFound}))

	assert.Equal(Report{StatusError, "Table name is required."},
		DeleteTableReport(Result{Outcome: OutcomeMissingInput}))

	resp := SearchResponse(Result{Table: "x", Outcome: OutcomeSuccess})
	assert.Equal([]SearchResult{}, resp)

	bs, err := json.Marshal(resp)
	assert.NoError(err)
	assert.Equal(`[]`, string(bs))

	bs, err = json.Marshal(SearchResult{Text: "a", Vector: []float32{1, 2}, Distance: 0.5})
	assert.NoError(err)
	assert.JSONEq(`{"text": "a", "vector": [1, 2], "_distance": 0.5, "similarity": 0}`, string(bs))
}
