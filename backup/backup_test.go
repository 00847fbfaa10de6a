package backup

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decentdb/decentdb"
	"github.com/decentdb/decentdb/core"
)

func openMemory(t *testing.T) *decentdb.DB {
	t.Helper()
	db, err := decentdb.Open(decentdb.MemoryLocation, "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, db *decentdb.DB) {
	t.Helper()
	for _, stmt := range []string{
		"CREATE TABLE accounts (id INTEGER PRIMARY KEY, email TEXT NOT NULL UNIQUE, balance DECIMAL(12,2), active BOOL)",
		"CREATE TABLE blobs (owner INT, part INT PRIMARY KEY, data BLOB, ratio FLOAT)",
		"CREATE INDEX idx_blobs_owner ON blobs (owner)",
		"INSERT INTO accounts (email, balance, active) VALUES ('a@example.com', 10.50, true)",
		"INSERT INTO accounts (email, balance, active) VALUES ('b@example.com', NULL, false)",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	_, err := db.Exec("INSERT INTO blobs VALUES ($1, $2, $3, $4)",
		core.NewInt64(1), core.NewInt64(1), core.NewBlob([]byte{0, 1, 2, 0xff}), core.NewFloat64(math.Inf(-1)))
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO blobs VALUES ($1, $2, $3, $4)",
		core.NewInt64(1), core.NewInt64(2), core.NewNull(), core.NewFloat64(0.125))
	require.NoError(t, err)
}

func rows(t *testing.T, db *decentdb.DB, query string) [][]core.Value {
	t.Helper()
	stmt, err := db.Prepare(query)
	require.NoError(t, err)
	defer stmt.Finalize()

	var out [][]core.Value
	view, hasRow, err := stmt.StepWithParams(nil)
	for err == nil && hasRow {
		row, copyErr := view.Copy()
		require.NoError(t, copyErr)
		out = append(out, row)
		if hasRow, err = stmt.Step(); err == nil && hasRow {
			view, err = stmt.RowView()
		}
	}
	require.NoError(t, err)
	return out
}

func TestDumpRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openMemory(t)
	seed(t, src)

	var buf bytes.Buffer
	stats, err := Dump(ctx, src, &buf)
	require.NoError(t, err)
	assert.Equal(t, Stats{Tables: 2, Indexes: 1, Rows: 4}, stats)
	assert.Equal(t, 1+2+1+4, strings.Count(buf.String(), "\n"))

	dst := openMemory(t)
	restored, err := Restore(ctx, dst, &buf)
	require.NoError(t, err)
	assert.Equal(t, stats, restored)

	for _, query := range []string{
		"SELECT * FROM accounts ORDER BY id",
		"SELECT * FROM blobs ORDER BY part",
	} {
		assert.Equal(t, rows(t, src, query), rows(t, dst, query), query)
	}

	srcTables, srcIndexes, err := src.Schema()
	require.NoError(t, err)
	dstTables, dstIndexes, err := dst.Schema()
	require.NoError(t, err)
	assert.Equal(t, srcTables, dstTables)
	assert.Equal(t, srcIndexes, dstIndexes)

	// constraints came back with the schema
	_, err = dst.Exec("INSERT INTO accounts (email) VALUES ('a@example.com')")
	assert.True(t, errors.Is(err, core.ErrExecution))
}

func TestRestoreRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	src := openMemory(t)
	seed(t, src)

	var buf bytes.Buffer
	_, err := Dump(ctx, src, &buf)
	require.NoError(t, err)

	dst := openMemory(t)
	_, err = dst.Exec("CREATE TABLE blobs (x INT)")
	require.NoError(t, err)

	_, err = Restore(ctx, dst, &buf)
	require.Error(t, err)
	assert.False(t, dst.InTransaction())

	tables, _, err := dst.Schema()
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "blobs", tables[0].Name)
}

func TestRestoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	tests := map[string]string{
		"empty":          "",
		"no header":      `{"type":"row","name":"t","values":[]}`,
		"future version": `{"type":"header","version":99}`,
		"unknown record": "{\"type\":\"header\",\"version\":1}\n{\"type\":\"view\"}\n",
		"orphan row":     "{\"type\":\"header\",\"version\":1}\n{\"type\":\"row\",\"name\":\"ghost\",\"values\":[{\"k\":1,\"i\":1}]}\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			db := openMemory(t)
			_, err := Restore(ctx, db, strings.NewReader(input))
			assert.Error(t, err)
			assert.False(t, db.InTransaction())
		})
	}
}

func TestDumpToFileAndRestoreFromHTTP(t *testing.T) {
	ctx := context.Background()
	src := openMemory(t)
	seed(t, src)

	path := filepath.Join(t.TempDir(), "dump.ndjson")
	stats, err := DumpTo(ctx, src, "file://"+path, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Rows)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dump.ndjson" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, path)
	}))
	defer server.Close()

	dst := openMemory(t)
	restored, err := RestoreFrom(ctx, dst, server.URL+"/dump.ndjson", nil)
	require.NoError(t, err)
	assert.Equal(t, stats, restored)
	assert.Len(t, rows(t, dst, "SELECT id FROM accounts"), 2)

	_, err = RestoreFrom(ctx, openMemory(t), server.URL+"/missing", nil)
	assert.ErrorContains(t, err, "status 404")
}

func TestDetectScheme(t *testing.T) {
	tests := map[string]urlScheme{
		"s3://bucket/key":       schemeS3,
		"S3://bucket/key":       schemeS3,
		"https://example.com/x": schemeHTTPS,
		"http://example.com/x":  schemeHTTP,
		"file:///tmp/x":         schemeFile,
		"/tmp/x":                schemeLocal,
		"relative/x":            schemeLocal,
	}
	for path, want := range tests {
		assert.Equal(t, want, detectScheme(path), path)
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://backups/nightly/db.ndjson")
	require.NoError(t, err)
	assert.Equal(t, "backups", bucket)
	assert.Equal(t, "nightly/db.ndjson", key)

	for _, bad := range []string{"s3://bucket", "s3://bucket/", "s3:///key"} {
		_, _, err := parseS3URL(bad)
		assert.Error(t, err, bad)
	}
}

func TestHTTPIsReadOnly(t *testing.T) {
	_, err := OpenWriter(context.Background(), "https://example.com/dump", nil)
	assert.ErrorContains(t, err, "does not support writing")
}

func TestCreateTableSQL(t *testing.T) {
	table := core.Table{Name: "orders", Columns: []core.Column{
		{Name: "id", Type: core.IntType, PrimaryKey: true, NotNull: true},
		{Name: "code", Type: core.TextType, NotNull: true, Unique: true},
		{Name: "total", Type: core.DecimalType, Precision: 10, Scale: 2},
		{Name: "note", Type: core.TextType},
	}}
	assert.Equal(t,
		"CREATE TABLE orders (id INT64 PRIMARY KEY, code TEXT NOT NULL UNIQUE, total DECIMAL(10,2), note TEXT)",
		createTableSQL(table))
	assert.Equal(t,
		"INSERT INTO orders (id, code, total, note) VALUES ($1, $2, $3, $4)",
		insertSQL(table))
	assert.Equal(t,
		"CREATE UNIQUE INDEX idx_code ON orders (code, note)",
		createIndexSQL(core.Index{Name: "idx_code", Table: "orders", Columns: []string{"code", "note"}, Unique: true}))
}
