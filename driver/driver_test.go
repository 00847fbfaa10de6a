package driver

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decentdb/decentdb"
	"github.com/decentdb/decentdb/core"
)

func openTestDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverName, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn      string
		location string
		options  string
	}{
		{":memory:", ":memory:", ""},
		{"", "", ""},
		{"/var/lib/data", "/var/lib/data", ""},
		{"/var/lib/data?sync=normal", "/var/lib/data", "sync=normal"},
		{"file:/var/lib/data?sync=normal&checkpoint_bytes=0", "/var/lib/data", "sync=normal&checkpoint_bytes=0"},
		{"file:///var/lib/data", "/var/lib/data", ""},
		{"file:relative/dir", "relative/dir", ""},
	}
	for _, tt := range tests {
		location, options, err := ParseDSN(tt.dsn)
		require.NoError(t, err, tt.dsn)
		assert.Equal(t, tt.location, location, tt.dsn)
		assert.Equal(t, tt.options, options, tt.dsn)
	}
}

func TestExecAndQuery(t *testing.T) {
	db := openTestDB(t, ":memory:")

	_, err := db.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, active BOOL, score FLOAT, avatar BLOB, balance DECIMAL(10,2))")
	require.NoError(t, err)

	res, err := db.Exec("INSERT INTO users (name, active, score, avatar, balance) VALUES ($1, $2, $3, $4, $5)",
		"alice", true, 9.5, []byte{1, 2}, Decimal{Unscaled: 1050, Scale: 2})
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = db.Exec("INSERT INTO users (name) VALUES ($1)", "bob")
	require.NoError(t, err)

	rows, err := db.Query("SELECT id, name, active, score, avatar, balance FROM users ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	types, err := rows.ColumnTypes()
	require.NoError(t, err)
	assert.Equal(t, "DECIMAL(10,2)", types[5].DatabaseTypeName())

	type user struct {
		id      int64
		name    string
		active  sql.NullBool
		score   sql.NullFloat64
		avatar  []byte
		balance any
	}
	var got []user
	for rows.Next() {
		var u user
		require.NoError(t, rows.Scan(&u.id, &u.name, &u.active, &u.score, &u.avatar, &u.balance))
		got = append(got, u)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 2)

	assert.Equal(t, "alice", got[0].name)
	assert.True(t, got[0].active.Bool)
	assert.Equal(t, 9.5, got[0].score.Float64)
	assert.Equal(t, []byte{1, 2}, got[0].avatar)
	assert.Equal(t, Decimal{Unscaled: 1050, Scale: 2}, got[0].balance)

	assert.Equal(t, int64(2), got[1].id)
	assert.False(t, got[1].active.Valid)
	assert.Nil(t, got[1].avatar)
	assert.Nil(t, got[1].balance)
}

func TestPreparedStatementReuse(t *testing.T) {
	db := openTestDB(t, ":memory:")
	_, err := db.Exec("CREATE TABLE kv (k TEXT PRIMARY KEY, v INT)")
	require.NoError(t, err)

	insert, err := db.Prepare("INSERT INTO kv VALUES ($1, $2)")
	require.NoError(t, err)
	defer insert.Close()
	for i, k := range []string{"a", "b", "c"} {
		_, err := insert.Exec(k, i)
		require.NoError(t, err)
	}

	lookup, err := db.Prepare("SELECT v FROM kv WHERE k = $1")
	require.NoError(t, err)
	defer lookup.Close()
	for i, k := range []string{"a", "b", "c"} {
		var v int64
		require.NoError(t, lookup.QueryRow(k).Scan(&v))
		assert.Equal(t, int64(i), v)
	}

	var v int64
	err = lookup.QueryRow("missing").Scan(&v)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestTimeBoundAsEpochMillis(t *testing.T) {
	db := openTestDB(t, ":memory:")
	_, err := db.Exec("CREATE TABLE events (at INT)")
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 12, 30, 0, 500_000_000, time.UTC)
	_, err = db.Exec("INSERT INTO events VALUES ($1)", at)
	require.NoError(t, err)

	var ms int64
	require.NoError(t, db.QueryRow("SELECT at FROM events").Scan(&ms))
	assert.Equal(t, at.UnixMilli(), ms)
}

func TestRejectsOtherParamStyles(t *testing.T) {
	db := openTestDB(t, ":memory:")
	_, err := db.Exec("CREATE TABLE t (v TEXT)")
	require.NoError(t, err)

	for _, query := range []string{
		"SELECT v FROM t WHERE v = ?",
		"SELECT v FROM t WHERE v = @name",
	} {
		_, err := db.Query(query, "x")
		assert.True(t, errors.Is(err, core.ErrSyntax), query)
	}

	// placeholders inside literals are text
	_, err = db.Exec("INSERT INTO t VALUES ('what? @home')")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO t VALUES ($1)", sql.Named("v", "x"))
	assert.Error(t, err)
}

func TestBindErrorsSurface(t *testing.T) {
	db := openTestDB(t, ":memory:")
	_, err := db.Exec("CREATE TABLE t (n INT)")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO t VALUES ($1)", "not a number")
	assert.True(t, errors.Is(err, core.ErrTypeMismatch))
	assert.Equal(t, core.CodeTypeMismatch, core.CodeOf(err))

	_, err = db.Exec("INSERT INTO t VALUES ($1)", 1, 2)
	assert.Error(t, err)
}

func TestTransactions(t *testing.T) {
	db := openTestDB(t, ":memory:")
	_, err := db.Exec("CREATE TABLE ledger (id INTEGER PRIMARY KEY, amount INT)")
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = tx.Exec("INSERT INTO ledger (amount) VALUES ($1)", 10)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	tx, err = db.Begin()
	require.NoError(t, err)
	_, err = tx.Exec("INSERT INTO ledger (amount) VALUES ($1)", 20)
	require.NoError(t, err)
	var inside int64
	require.NoError(t, tx.QueryRow("SELECT SUM(amount) FROM ledger").Scan(&inside))
	assert.Equal(t, int64(20), inside)
	require.NoError(t, tx.Commit())

	var count int64
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM ledger").Scan(&count))
	assert.Equal(t, int64(1), count)

	_, err = db.BeginTx(context.Background(), &sql.TxOptions{ReadOnly: true})
	assert.True(t, errors.Is(err, core.ErrTransaction))
}

func TestConnectionsShareDatabase(t *testing.T) {
	db := openTestDB(t, ":memory:")
	db.SetMaxIdleConns(0)

	_, err := db.Exec("CREATE TABLE shared (v INT)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO shared VALUES (1)")
	require.NoError(t, err)

	ctx := context.Background()
	c1, err := db.Conn(ctx)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := db.Conn(ctx)
	require.NoError(t, err)
	defer c2.Close()

	var n int64
	require.NoError(t, c1.QueryRowContext(ctx, "SELECT COUNT(*) FROM shared").Scan(&n))
	assert.Equal(t, int64(1), n)
	require.NoError(t, c2.QueryRowContext(ctx, "SELECT COUNT(*) FROM shared").Scan(&n))
	assert.Equal(t, int64(1), n)
}

func TestRawConnIntrospection(t *testing.T) {
	db := openTestDB(t, "file:"+t.TempDir()+"?sync=normal")
	_, err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, sku TEXT UNIQUE)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO items (sku) VALUES ('a-1')")
	require.NoError(t, err)

	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	err = conn.Raw(func(dc any) error {
		c := dc.(*Conn)
		if err := c.Checkpoint(); err != nil {
			return err
		}

		tables, err := c.ListTables()
		require.NoError(t, err)
		assert.Equal(t, []string{"items"}, tables)

		cols, err := c.TableColumns("items")
		require.NoError(t, err)
		assert.Equal(t, []decentdb.ColumnInfo{
			{Name: "id", Type: "INT64", NotNull: true, Unique: true, PrimaryKey: true},
			{Name: "sku", Type: "TEXT", Unique: true},
		}, cols)

		indexes, err := c.ListIndexes()
		require.NoError(t, err)
		require.Len(t, indexes, 2)
		assert.Equal(t, "pk_items", indexes[0].Name)
		assert.Equal(t, "uq_items_sku", indexes[1].Name)

		_, err = c.TableColumns("nope")
		assert.True(t, errors.Is(err, core.ErrSchema))
		return nil
	})
	require.NoError(t, err)
}
