package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/flarexio/docstore/vector"
)

// Service defines the document operations of docstore.
type Service interface {

	// Close releases the underlying store.
	Close() error

	// CreateTable creates an empty table with the fixed schema.
	CreateTable(ctx context.Context, name string) (Result, error)

	// AddDocument embeds the text and appends it to the table,
	// creating the table on first use.
	AddDocument(ctx context.Context, name string, text string) (Result, error)

	// SearchDocuments returns the documents nearest to the query, nearest first.
	SearchDocuments(ctx context.Context, name string, query string, k ...int) (Result, error)

	// DeleteTable drops the table and all of its documents.
	DeleteTable(ctx context.Context, name string) (Result, error)

	// ListTables returns every table in the store.
	ListTables(ctx context.Context) ([]TableInfo, error)
}

type ServiceMiddleware func(Service) Service

func NewService(cfg Config, store vector.Store, embedder vector.Embedder) (Service, error) {
	if store == nil {
		return nil, ErrStoreNotSet
	}

	if embedder == nil {
		return nil, ErrEmbedderNotSet
	}

	cfg.ApplyDefaults()

	if embedder.Dimension() != cfg.Store.Dimension {
		return nil, fmt.Errorf("%w: embedder %d, store %d",
			ErrDimensionMismatch, embedder.Dimension(), cfg.Store.Dimension)
	}

	log := zap.L().With(
		zap.String("service", "docstore"),
	)

	return &service{
		store:    store,
		embedder: embedder,
		schema:   vector.NewSchema(cfg.Store.Dimension),
		cfg:      cfg,
		log:      log,
	}, nil
}

type service struct {
	store    vector.Store
	embedder vector.Embedder
	schema   vector.Schema

	cfg Config
	log *zap.Logger
}

func (svc *service) Close() error {
	return svc.store.Close()
}

func (svc *service) tableName(name string) string {
	if name == "" {
		return svc.cfg.DefaultTable
	}

	return name
}

func (svc *service) CreateTable(ctx context.Context, name string) (Result, error) {
	name = svc.tableName(name)

	_, err := svc.store.Create(ctx, name, svc.schema)
	if err != nil {
		if errors.Is(err, vector.ErrTableAlreadyExists) {
			return Result{Table: name, Outcome: OutcomeAlreadyExists}, nil
		}

		return Result{Table: name}, err
	}

	return Result{Table: name, Outcome: OutcomeSuccess}, nil
}

func (svc *service) AddDocument(ctx context.Context, name string, text string) (Result, error) {
	name = svc.tableName(name)

	table, err := svc.store.Ensure(ctx, name, svc.schema)
	if err != nil {
		return Result{Table: name}, err
	}

	vec, err := svc.embed(ctx, text, vector.ModeDocument)
	if err != nil {
		return Result{Table: name}, err
	}

	record := vector.Record{
		Text:   text,
		Vector: vec,
	}

	if err := table.Add(ctx, record); err != nil {
		return Result{Table: name}, err
	}

	return Result{Table: name, Outcome: OutcomeSuccess}, nil
}

func (svc *service) SearchDocuments(ctx context.Context, name string, query string, k ...int) (Result, error) {
	name = svc.tableName(name)

	n := svc.cfg.SearchLimit
	if len(k) > 0 && k[0] > 0 {
		n = k[0]
	}

	table, err := svc.store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, vector.ErrTableNotFound) {
			return Result{Table: name, Outcome: OutcomeNotFound}, nil
		}

		return Result{Table: name}, err
	}

	vec, err := svc.embed(ctx, query, vector.ModeQuery)
	if err != nil {
		return Result{Table: name}, err
	}

	matches, err := table.Search(ctx, vec, n)
	if err != nil {
		return Result{Table: name}, err
	}

	docs := make([]SearchResult, len(matches))
	for i, m := range matches {
		docs[i] = SearchResult{
			Text:       m.Text,
			Vector:     m.Vector,
			Distance:   m.Distance,
			Similarity: m.Similarity,
		}
	}

	return Result{Table: name, Outcome: OutcomeSuccess, Documents: docs}, nil
}

func (svc *service) DeleteTable(ctx context.Context, name string) (Result, error) {
	if name == "" {
		return Result{Outcome: OutcomeMissingInput}, nil
	}

	err := svc.store.Drop(ctx, name)
	if err != nil {
		if errors.Is(err, vector.ErrTableNotFound) {
			return Result{Table: name, Outcome: OutcomeNotFound}, nil
		}

		return Result{Table: name}, err
	}

	return Result{Table: name, Outcome: OutcomeSuccess}, nil
}

func (svc *service) ListTables(ctx context.Context) ([]TableInfo, error) {
	return svc.store.Tables(ctx)
}

func (svc *service) embed(ctx context.Context, text string, mode vector.EmbeddingMode) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.cfg.EmbedTimeout.Duration())
	defer cancel()

	vec, err := svc.embedder.Embed(ctx, text, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}

	if err := svc.schema.Validate(vec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}

	svc.log.Debug("text embedded",
		zap.String("mode", string(mode)),
		zap.Int("dimension", len(vec)),
	)

	return vec, nil
}
