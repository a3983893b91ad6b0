package chromem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/docstore/vector"
)

// SchemaFile records the dimension a persistent store was created with.
const SchemaFile = "docstore.chromem.yaml"

// chromem keeps each collection in a directory named after the first four
// bytes of the SHA-256 of its name, with the metadata in 00000000.gob.
const metadataFile = "00000000.gob"

type schemaFile struct {
	Dimension int `yaml:"dimension"`
}

// NewChromemVectorStore opens the store rooted at cfg.Path. Each table is a
// chromem collection persisted in its own sub-directory.
//
// The store is meant for a single process. Table existence is re-checked
// on disk before create, insert and drop, which turns a table removed by
// another process into ErrTableNotFound, but two processes writing at the
// same instant are not serialized. Use the sqlite backend for shared stores.
func NewChromemVectorStore(cfg vector.Config) (vector.Store, error) {
	store := &chromemVectorStore{
		schema:   vector.NewSchema(cfg.Dimension),
		compress: cfg.Compress,
	}

	if !cfg.Persistent {
		store.db = chromem.NewDB()
		return store, nil
	}

	store.path = cfg.Path

	if err := store.checkSchema(); err != nil {
		return nil, err
	}

	if err := store.reload(); err != nil {
		return nil, err
	}

	return store, nil
}

type chromemVectorStore struct {
	path     string
	compress bool
	schema   vector.Schema

	db *chromem.DB
	mu sync.RWMutex
}

// checkSchema binds the directory to one dimension; chromem collections
// carry no readable metadata of their own.
func (store *chromemVectorStore) checkSchema() error {
	if err := os.MkdirAll(store.path, 0o755); err != nil {
		return err
	}

	filename := filepath.Join(store.path, SchemaFile)

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		var f schemaFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("%s: %w", SchemaFile, err)
		}

		if f.Dimension != store.schema.Dimension {
			return fmt.Errorf("%w: store has %d, configured %d",
				vector.ErrDimensionMismatch, f.Dimension, store.schema.Dimension)
		}

		return nil

	case errors.Is(err, fs.ErrNotExist):
		data, err := yaml.Marshal(&schemaFile{store.schema.Dimension})
		if err != nil {
			return err
		}

		return os.WriteFile(filename, data, 0o644)

	default:
		return err
	}
}

func (store *chromemVectorStore) reload() error {
	db, err := chromem.NewPersistentDB(store.path, store.compress)
	if err != nil {
		return err
	}

	store.mu.Lock()
	store.db = db
	store.mu.Unlock()

	return nil
}

func (store *chromemVectorStore) current() *chromem.DB {
	store.mu.RLock()
	defer store.mu.RUnlock()

	return store.db
}

func (store *chromemVectorStore) collectionDir(name string) string {
	hash := sha256.Sum256([]byte(name))
	return filepath.Join(store.path, hex.EncodeToString(hash[:4]))
}

// exists asks the disk when the store is persistent, so tables created or
// dropped by another process are seen.
func (store *chromemVectorStore) exists(name string) bool {
	if store.path == "" {
		return store.current().GetCollection(name, nil) != nil
	}

	dir := store.collectionDir(name)
	for _, f := range []string{metadataFile, metadataFile + ".gz"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err == nil {
			return true
		}
	}

	return false
}

func (store *chromemVectorStore) Create(ctx context.Context, name string, schema vector.Schema) (vector.Table, error) {
	if name == "" {
		return nil, vector.ErrInvalidTableName
	}

	if schema.Dimension != store.schema.Dimension {
		return nil, vector.ErrDimensionMismatch
	}

	if store.exists(name) {
		return nil, vector.ErrTableAlreadyExists
	}

	// replaces any collection this process still remembers
	c, err := store.current().CreateCollection(name, nil, nil)
	if err != nil {
		return nil, err
	}

	return &table{store, c}, nil
}

func (store *chromemVectorStore) Open(ctx context.Context, name string) (vector.Table, error) {
	if name == "" {
		return nil, vector.ErrInvalidTableName
	}

	if !store.exists(name) {
		return nil, vector.ErrTableNotFound
	}

	c := store.current().GetCollection(name, nil)
	if c == nil {
		// created by another process after this one loaded
		if err := store.reload(); err != nil {
			return nil, err
		}

		c = store.current().GetCollection(name, nil)
		if c == nil {
			return nil, vector.ErrTableNotFound
		}
	}

	return &table{store, c}, nil
}

func (store *chromemVectorStore) Drop(ctx context.Context, name string) error {
	if name == "" {
		return vector.ErrInvalidTableName
	}

	db := store.current()
	known := db.GetCollection(name, nil) != nil

	if !store.exists(name) {
		if known {
			db.DeleteCollection(name)
		}

		return vector.ErrTableNotFound
	}

	if !known {
		return os.RemoveAll(store.collectionDir(name))
	}

	return db.DeleteCollection(name)
}

func (store *chromemVectorStore) Ensure(ctx context.Context, name string, schema vector.Schema) (vector.Table, error) {
	t, err := store.Open(ctx, name)
	if err == nil {
		return t, nil
	}

	if !errors.Is(err, vector.ErrTableNotFound) {
		return nil, err
	}

	return store.Create(ctx, name, schema)
}

func (store *chromemVectorStore) Tables(ctx context.Context) ([]vector.TableInfo, error) {
	if store.path != "" {
		if err := store.reload(); err != nil {
			return nil, err
		}
	}

	collections := store.current().ListCollections()

	tables := make([]vector.TableInfo, 0, len(collections))
	for name, c := range collections {
		tables = append(tables, vector.TableInfo{
			Name:   name,
			Schema: store.schema,
			Count:  c.Count(),
		})
	}

	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Name < tables[j].Name
	})

	return tables, nil
}

// Close is a no-op; chromem writes every document through to disk.
func (store *chromemVectorStore) Close() error {
	return nil
}

type table struct {
	store      *chromemVectorStore
	collection *chromem.Collection
}

func (t *table) Name() string {
	return t.collection.Name
}

func (t *table) Schema() vector.Schema {
	return t.store.schema
}

func (t *table) Count(ctx context.Context) (int, error) {
	return t.collection.Count(), nil
}

func (t *table) Add(ctx context.Context, record vector.Record) error {
	if err := t.store.schema.Validate(record.Vector); err != nil {
		return err
	}

	// chromem would recreate a dropped directory without its metadata
	if !t.store.exists(t.collection.Name) {
		return vector.ErrTableNotFound
	}

	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}

	document := chromem.Document{
		ID:        id,
		Embedding: record.Vector,
		Content:   record.Text,
	}

	return t.collection.AddDocument(ctx, document)
}

func (t *table) Search(ctx context.Context, query []float32, k int) ([]vector.Match, error) {
	if err := t.store.schema.Validate(query); err != nil {
		return nil, err
	}

	if k > t.collection.Count() {
		k = t.collection.Count()
	}

	if k <= 0 {
		return []vector.Match{}, nil
	}

	results, err := t.collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, err
	}

	matches := make([]vector.Match, len(results))
	for i, result := range results {
		matches[i] = vector.Match{
			Record: vector.Record{
				ID:     result.ID,
				Text:   result.Content,
				Vector: result.Embedding,
			},
			Similarity: result.Similarity,
			Distance:   1 - result.Similarity,
		}
	}

	return matches, nil
}
