package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/flarexio/docstore/vector"
)

const DatabaseFile = "docstore.db"

const ddl = `
CREATE TABLE IF NOT EXISTS tables (
	name      TEXT PRIMARY KEY,
	dimension INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	table_name TEXT NOT NULL REFERENCES tables(name) ON DELETE CASCADE,
	text       TEXT NOT NULL,
	vector     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_table ON records(table_name);
`

// NewSQLiteVectorStore opens <cfg.Path>/docstore.db, or an in-memory
// database when cfg.Persistent is false. Concurrent processes are
// serialized by SQLite's own file locking.
func NewSQLiteVectorStore(cfg vector.Config) (vector.Store, error) {
	name := ":memory:"
	if cfg.Persistent {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, err
		}

		name = filepath.Join(cfg.Path, DatabaseFile)
	}

	db, err := sql.Open("sqlite", dsn(name, cfg.Persistent))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if !cfg.Persistent {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema creation failed: %w", err)
	}

	return &sqliteVectorStore{
		db:     db,
		schema: vector.NewSchema(cfg.Dimension),
	}, nil
}

// dsn carries the pragmas in the connection string. busy_timeout,
// foreign_keys and synchronous are per connection, so the driver must
// apply them to every connection the pool opens.
func dsn(name string, persistent bool) string {
	pragmas := []string{
		"busy_timeout(5000)",
		"foreign_keys(1)",
	}

	if persistent {
		pragmas = append(pragmas,
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		)
	}

	params := make(url.Values)
	for _, p := range pragmas {
		params.Add("_pragma", p)
	}

	return "file:" + name + "?" + params.Encode()
}

type sqliteVectorStore struct {
	db     *sql.DB
	schema vector.Schema
}

func (store *sqliteVectorStore) Create(ctx context.Context, name string, schema vector.Schema) (vector.Table, error) {
	if name == "" {
		return nil, vector.ErrInvalidTableName
	}

	if schema.Dimension != store.schema.Dimension {
		return nil, vector.ErrDimensionMismatch
	}

	result, err := store.db.ExecContext(ctx,
		"INSERT INTO tables (name, dimension) VALUES (?, ?) ON CONFLICT(name) DO NOTHING",
		name, schema.Dimension)
	if err != nil {
		return nil, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, vector.ErrTableAlreadyExists
	}

	return &table{store.db, name, schema}, nil
}

func (store *sqliteVectorStore) Open(ctx context.Context, name string) (vector.Table, error) {
	if name == "" {
		return nil, vector.ErrInvalidTableName
	}

	var dimension int
	err := store.db.QueryRowContext(ctx,
		"SELECT dimension FROM tables WHERE name = ?", name).Scan(&dimension)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vector.ErrTableNotFound
		}

		return nil, err
	}

	return &table{store.db, name, vector.Schema{Dimension: dimension}}, nil
}

func (store *sqliteVectorStore) Drop(ctx context.Context, name string) error {
	if name == "" {
		return vector.ErrInvalidTableName
	}

	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE table_name = ?", name); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM tables WHERE name = ?", name)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return vector.ErrTableNotFound
	}

	return tx.Commit()
}

func (store *sqliteVectorStore) Ensure(ctx context.Context, name string, schema vector.Schema) (vector.Table, error) {
	t, err := store.Open(ctx, name)
	if err == nil {
		return t, nil
	}

	if !errors.Is(err, vector.ErrTableNotFound) {
		return nil, err
	}

	t, err = store.Create(ctx, name, schema)
	if errors.Is(err, vector.ErrTableAlreadyExists) {
		// another process created it in between
		return store.Open(ctx, name)
	}

	return t, err
}

func (store *sqliteVectorStore) Tables(ctx context.Context) ([]vector.TableInfo, error) {
	rows, err := store.db.QueryContext(ctx, `
		SELECT t.name, t.dimension, COUNT(r.seq)
		FROM tables t LEFT JOIN records r ON r.table_name = t.name
		GROUP BY t.name, t.dimension
		ORDER BY t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make([]vector.TableInfo, 0)
	for rows.Next() {
		var info vector.TableInfo
		if err := rows.Scan(&info.Name, &info.Schema.Dimension, &info.Count); err != nil {
			return nil, err
		}

		tables = append(tables, info)
	}

	return tables, rows.Err()
}

func (store *sqliteVectorStore) Close() error {
	return store.db.Close()
}

type table struct {
	db     *sql.DB
	name   string
	schema vector.Schema
}

func (t *table) Name() string {
	return t.name
}

func (t *table) Schema() vector.Schema {
	return t.schema
}

func (t *table) Count(ctx context.Context) (int, error) {
	var count int
	err := t.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE table_name = ?", t.name).Scan(&count)

	return count, err
}

func (t *table) Add(ctx context.Context, record vector.Record) error {
	if err := t.schema.Validate(record.Vector); err != nil {
		return err
	}

	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := t.db.ExecContext(ctx,
		"INSERT INTO records (id, table_name, text, vector) VALUES (?, ?, ?, ?)",
		id, t.name, record.Text, vector.EncodeVector(record.Vector))
	if err != nil {
		// the foreign key fails once the table was dropped under us
		return fmt.Errorf("insert into %s: %w", t.name, err)
	}

	return nil
}

// Search scans every record of the table and ranks them by L2 distance.
func (t *table) Search(ctx context.Context, query []float32, k int) ([]vector.Match, error) {
	if err := t.schema.Validate(query); err != nil {
		return nil, err
	}

	if k <= 0 {
		return []vector.Match{}, nil
	}

	rows, err := t.db.QueryContext(ctx,
		"SELECT id, text, vector FROM records WHERE table_name = ? ORDER BY seq", t.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]vector.Match, 0)
	for rows.Next() {
		var (
			m    vector.Match
			blob []byte
		)

		if err := rows.Scan(&m.ID, &m.Text, &blob); err != nil {
			return nil, err
		}

		vec, err := vector.DecodeVector(blob)
		if err != nil {
			return nil, err
		}

		if len(vec) != len(query) {
			continue
		}

		m.Vector = vec
		m.Distance = vector.L2Distance(query, vec)
		m.Similarity = vector.CosineSimilarity(query, vec)

		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > k {
		matches = matches[:k]
	}

	return matches, nil
}
