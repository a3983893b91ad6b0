package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/docstore/vector"
)

type sqliteStoreTestSuite struct {
	suite.Suite
	ctx    context.Context
	path   string
	store  vector.Store
	schema vector.Schema
}

func (suite *sqliteStoreTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.path = suite.T().TempDir()
	suite.schema = vector.NewSchema(2)

	store, err := NewSQLiteVectorStore(suite.config())
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.store = store
}

func (suite *sqliteStoreTestSuite) TearDownTest() {
	if suite.store != nil {
		suite.store.Close()
	}
}

func (suite *sqliteStoreTestSuite) config() vector.Config {
	return vector.Config{
		Backend:    vector.BackendSQLite,
		Persistent: true,
		Path:       suite.path,
		Dimension:  2,
	}
}

func (suite *sqliteStoreTestSuite) TestLifecycle() {
	_, err := suite.store.Open(suite.ctx, "docs")
	suite.ErrorIs(err, vector.ErrTableNotFound)

	_, err = suite.store.Create(suite.ctx, "docs", suite.schema)
	suite.NoError(err)

	_, err = suite.store.Create(suite.ctx, "docs", suite.schema)
	suite.ErrorIs(err, vector.ErrTableAlreadyExists)

	t, err := suite.store.Open(suite.ctx, "docs")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	count, err := t.Count(suite.ctx)
	suite.NoError(err)
	suite.Equal(0, count)

	suite.NoError(suite.store.Drop(suite.ctx, "docs"))
	suite.ErrorIs(suite.store.Drop(suite.ctx, "docs"), vector.ErrTableNotFound)
}

func (suite *sqliteStoreTestSuite) TestDropRemovesRecords() {
	t, err := suite.store.Create(suite.ctx, "docs", suite.schema)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.NoError(t.Add(suite.ctx, vector.Record{Text: "a", Vector: []float32{1, 0}}))
	suite.NoError(suite.store.Drop(suite.ctx, "docs"))

	t, err = suite.store.Ensure(suite.ctx, "docs", suite.schema)
	suite.NoError(err)

	count, err := t.Count(suite.ctx)
	suite.NoError(err)
	suite.Equal(0, count)
}

func (suite *sqliteStoreTestSuite) TestSearchOrdering() {
	t, err := suite.store.Ensure(suite.ctx, "docs", suite.schema)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	empty, err := t.Search(suite.ctx, []float32{0, 0}, 5)
	suite.NoError(err)
	suite.Empty(empty)

	records := []vector.Record{
		{Text: "far", Vector: []float32{10, 10}},
		{Text: "near", Vector: []float32{1, 0}},
		{Text: "middle", Vector: []float32{3, 4}},
		{Text: "near", Vector: []float32{0, 1}},
	}

	for _, r := range records {
		suite.NoError(t.Add(suite.ctx, r))
	}

	matches, err := t.Search(suite.ctx, []float32{0, 0}, 3)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Len(matches, 3)
	suite.Equal("near", matches[0].Text)
	suite.Equal("near", matches[1].Text)
	suite.Equal("middle", matches[2].Text)
	suite.InDelta(5.0, matches[2].Distance, 1e-6)
	suite.Equal([]float32{3, 4}, matches[2].Vector)

	all, err := t.Search(suite.ctx, []float32{0, 0}, 10)
	suite.NoError(err)
	suite.Len(all, 4)
	suite.Equal("far", all[3].Text)
}

func (suite *sqliteStoreTestSuite) TestTablesAcrossConnections() {
	t, err := suite.store.Create(suite.ctx, "b", suite.schema)
	suite.NoError(err)
	suite.NoError(t.Add(suite.ctx, vector.Record{Text: "x", Vector: []float32{1, 1}}))

	_, err = suite.store.Create(suite.ctx, "a", suite.schema)
	suite.NoError(err)

	other, err := NewSQLiteVectorStore(suite.config())
	if err != nil {
		suite.Fail(err.Error())
		return
	}
	defer other.Close()

	tables, err := other.Tables(suite.ctx)
	suite.NoError(err)
	suite.Len(tables, 2)
	suite.Equal("a", tables[0].Name)
	suite.Equal(0, tables[0].Count)
	suite.Equal("b", tables[1].Name)
	suite.Equal(1, tables[1].Count)
	suite.Equal(2, tables[1].Schema.Dimension)
}

func (suite *sqliteStoreTestSuite) TestPragmasOnEveryConnection() {
	db := suite.store.(*sqliteVectorStore).db

	// pin one connection so the pool has to open another
	held, err := db.Conn(suite.ctx)
	if err != nil {
		suite.Fail(err.Error())
		return
	}
	defer held.Close()

	other, err := db.Conn(suite.ctx)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	var foreignKeys, busyTimeout int
	suite.NoError(other.QueryRowContext(suite.ctx, "PRAGMA foreign_keys").Scan(&foreignKeys))
	suite.NoError(other.QueryRowContext(suite.ctx, "PRAGMA busy_timeout").Scan(&busyTimeout))
	suite.NoError(other.Close())

	suite.Equal(1, foreignKeys)
	suite.Equal(5000, busyTimeout)

	t, err := suite.store.Create(suite.ctx, "docs", suite.schema)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.NoError(suite.store.Drop(suite.ctx, "docs"))

	err = t.Add(suite.ctx, vector.Record{Text: "orphan", Vector: []float32{1, 0}})
	suite.Error(err)

	t, err = suite.store.Create(suite.ctx, "docs", suite.schema)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	count, err := t.Count(suite.ctx)
	suite.NoError(err)
	suite.Equal(0, count)
}

func TestSQLiteStoreTestSuite(t *testing.T) {
	suite.Run(t, new(sqliteStoreTestSuite))
}

func TestInMemorySQLiteStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store, err := NewSQLiteVectorStore(vector.Config{Dimension: 2})
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer store.Close()

	tbl, err := store.Ensure(ctx, "docs", vector.NewSchema(2))
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	err = tbl.Add(ctx, vector.Record{Text: "a", Vector: []float32{1}})
	assert.ErrorIs(err, vector.ErrDimensionMismatch)

	_, err = store.Create(ctx, "other", vector.NewSchema(3))
	assert.ErrorIs(err, vector.ErrDimensionMismatch)
}
