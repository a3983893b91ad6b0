package vector

import (
	"context"
	"errors"
	"fmt"
)

const DefaultDimension = 768

var (
	ErrTableAlreadyExists = errors.New("table already exists")
	ErrTableNotFound      = errors.New("table not found")
	ErrInvalidTableName   = errors.New("invalid table name")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
)

type Backend string

const (
	BackendChromem Backend = "chromem"
	BackendSQLite  Backend = "sqlite"
)

type Config struct {
	Backend    Backend `yaml:"backend"`
	Persistent bool    `yaml:"persistent"`
	Path       string  `yaml:"path"`
	Compress   bool    `yaml:"compress"`
	Dimension  int     `yaml:"dimension"`
}

// Schema is the fixed record shape of every table: a vector of
// Dimension float32 values and a text field.
type Schema struct {
	Dimension int `json:"dimension"`
}

func NewSchema(dimension int) Schema {
	if dimension <= 0 {
		dimension = DefaultDimension
	}

	return Schema{Dimension: dimension}
}

func (s Schema) Validate(vec []float32) error {
	if len(vec) != s.Dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, s.Dimension, len(vec))
	}

	return nil
}

type Record struct {
	ID     string    `json:"id,omitempty"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// Match is a record returned by a search together with its score.
// Distance is non-decreasing across a result set.
type Match struct {
	Record
	Similarity float32 `json:"similarity"`
	Distance   float32 `json:"distance"`
}

type TableInfo struct {
	Name   string `json:"name"`
	Schema Schema `json:"schema"`
	Count  int    `json:"count"`
}

// Store owns the catalog of named tables.
type Store interface {
	Create(ctx context.Context, name string, schema Schema) (Table, error)
	Open(ctx context.Context, name string) (Table, error)
	Drop(ctx context.Context, name string) error
	Ensure(ctx context.Context, name string, schema Schema) (Table, error)
	Tables(ctx context.Context) ([]TableInfo, error)
	Close() error
}

type Table interface {
	Name() string
	Schema() Schema
	Count(ctx context.Context) (int, error)
	Add(ctx context.Context, record Record) error
	Search(ctx context.Context, query []float32, k int) ([]Match, error)
}

type EmbeddingMode string

const (
	ModeDocument EmbeddingMode = "document"
	ModeQuery    EmbeddingMode = "query"
)

// Embedder maps text to a vector of exactly Dimension() values.
type Embedder interface {
	Dimension() int
	Embed(ctx context.Context, text string, mode EmbeddingMode) ([]float32, error)
}
