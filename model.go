package docstore

import (
	"encoding/json"
	"errors"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/docstore/embedding"
	"github.com/flarexio/docstore/vector"
)

var (
	ErrProviderFailure   = errors.New("embedding provider failure")
	ErrDimensionMismatch = errors.New("embedding dimension does not match store dimension")
	ErrStoreNotSet       = errors.New("vector store not set")
	ErrEmbedderNotSet    = errors.New("embedder not set")
)

const (
	DefaultTable        = "default_global_table"
	DefaultSearchLimit  = 5
	DefaultEmbedTimeout = 30 * time.Second
)

type Config struct {
	Store        vector.Config    `yaml:"store"`
	Embedding    embedding.Config `yaml:"embedding"`
	DefaultTable string           `yaml:"defaultTable"`
	SearchLimit  int              `yaml:"searchLimit"`
	EmbedTimeout Duration         `yaml:"embedTimeout"`
}

// DefaultConfig mirrors a zero-configuration local store: SQLite tables
// under ./docstore embedded by Gemini at 768 dimensions.
func DefaultConfig() Config {
	return Config{
		Store: vector.Config{
			Backend:    vector.BackendSQLite,
			Persistent: true,
			Path:       "docstore",
			Dimension:  vector.DefaultDimension,
		},
		Embedding: embedding.Config{
			Provider:  embedding.ProviderGemini,
			Dimension: vector.DefaultDimension,
		},
		DefaultTable: DefaultTable,
		SearchLimit:  DefaultSearchLimit,
		EmbedTimeout: Duration(DefaultEmbedTimeout),
	}
}

// ApplyDefaults fills every unset field. The embedding dimension follows
// the store dimension when only the latter is given.
func (cfg *Config) ApplyDefaults() {
	// chromem is single-process
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = vector.BackendChromem
		if cfg.Store.Persistent {
			cfg.Store.Backend = vector.BackendSQLite
		}
	}

	if cfg.Store.Dimension <= 0 {
		cfg.Store.Dimension = vector.DefaultDimension
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = embedding.ProviderGemini
	}

	if cfg.Embedding.Dimension <= 0 {
		cfg.Embedding.Dimension = cfg.Store.Dimension
	}

	if cfg.DefaultTable == "" {
		cfg.DefaultTable = DefaultTable
	}

	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}

	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = Duration(DefaultEmbedTimeout)
	}
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration().String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

// Outcome tags the anticipated results of a table operation. Conditions
// other than OutcomeSuccess are reported to the caller, not raised.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeAlreadyExists Outcome = "already_exists"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeMissingInput  Outcome = "missing_input"
)

type Result struct {
	Table     string         `json:"table"`
	Outcome   Outcome        `json:"outcome"`
	Documents []SearchResult `json:"documents,omitempty"`
}

type SearchResult struct {
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector"`
	Distance   float32   `json:"_distance"`
	Similarity float32   `json:"similarity"`
}

type TableInfo = vector.TableInfo
