package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decentdb/decentdb/core"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// run executes the CLI with args against the database directory dir.
func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", dir, "--options", "sync=normal"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "decentdb", cmd.Use)

	for _, name := range []string{"exec", "shell", "schema", "checkpoint", "history", "dump", "restore", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	db := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, db)
	assert.Equal(t, ":memory:", db.DefValue)
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "--format", "yaml", "schema", "tables")
	assert.ErrorContains(t, err, "invalid format")
}

func TestExecAndSchema(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "", "exec",
		"CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL, price DECIMAL(8,2)); "+
			"INSERT INTO items (name, price) VALUES ('bolt; M4', 0.25); "+
			"INSERT INTO items (name, price) VALUES ('nut', NULL)")
	require.NoError(t, err)

	out, err := run(t, dir, "", "--format", "json", "exec", "SELECT id, name, price FROM items ORDER BY id")
	require.NoError(t, err)
	var result jsonQuery
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"id", "name", "price"}, result.Columns)
	assert.Equal(t, [][]any{{float64(1), "bolt; M4", "0.25"}, {float64(2), "nut", nil}}, result.Rows)

	out, err = run(t, dir, "", "exec", "SELECT name FROM items WHERE id = 2")
	require.NoError(t, err)
	assert.Contains(t, out, "nut")
	assert.Contains(t, out, "1 rows")

	out, err = run(t, dir, "", "schema", "tables")
	require.NoError(t, err)
	assert.Equal(t, "[\"items\"]\n", out)

	out, err = run(t, dir, "", "schema", "columns", "items")
	require.NoError(t, err)
	assert.Contains(t, out, `"name":"price","type":"DECIMAL(8,2)"`)

	_, err = run(t, dir, "", "schema", "columns", "missing")
	assert.Error(t, err)
}

func TestExecFromFile(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(t.TempDir(), "seed.sql")
	require.NoError(t, os.WriteFile(script, []byte(`
-- seed data
CREATE TABLE t (id INT PRIMARY KEY, note TEXT);
INSERT INTO t VALUES (1, 'it''s');
INSERT INTO t VALUES (1, 'duplicate');
INSERT INTO t VALUES (2, 'two');
`), 0o600))

	_, err := run(t, dir, "", "exec", "--file", script)
	assert.ErrorContains(t, err, "statement 3")

	out, err := run(t, dir, "", "exec", "--keep-going", "--file", script)
	assert.ErrorContains(t, err, "3 statement(s) failed")
	assert.Contains(t, out, "[1] ✗")

	out, err = run(t, dir, "", "--format", "json", "exec", "SELECT note FROM t ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, "{\"columns\":[\"note\"],\"rows\":[[\"it's\"],[\"two\"]]}\n", out)

	_, err = run(t, dir, "SELECT id FROM t", "exec", "-f", "-")
	assert.NoError(t, err)

	_, err = run(t, dir, "", "exec")
	assert.ErrorContains(t, err, "nothing to execute")
}

func TestCheckpointAndHistory(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "exec", "CREATE TABLE t (id INT PRIMARY KEY)")
	require.NoError(t, err)

	out, err := run(t, dir, "", "checkpoint")
	require.NoError(t, err)
	assert.Contains(t, out, "Checkpoint complete")

	out, err = run(t, dir, "", "--format", "json", "history")
	require.NoError(t, err)
	var history []jsonCheckpoint
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	assert.Len(t, history, 2)

	out, err = run(t, dir, "", "history", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestDumpAndRestore(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	_, err := run(t, src, "", "exec",
		"CREATE TABLE t (id INT PRIMARY KEY, v TEXT); CREATE INDEX idx_v ON t (v); INSERT INTO t VALUES (1, 'a'); INSERT INTO t VALUES (2, 'b')")
	require.NoError(t, err)

	dump := filepath.Join(t.TempDir(), "t.ndjson")
	out, err := run(t, src, "", "dump", dump)
	require.NoError(t, err)
	assert.Contains(t, out, "1 table(s), 1 index(es), 2 row(s)")

	_, err = run(t, dst, "", "restore", dump)
	require.NoError(t, err)

	out, err = run(t, dst, "", "--format", "json", "exec", "SELECT v FROM t ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, "{\"columns\":[\"v\"],\"rows\":[[\"a\"],[\"b\"]]}\n", out)

	out, err = run(t, dst, "", "schema", "indexes")
	require.NoError(t, err)
	assert.Contains(t, out, `"name":"idx_v"`)

	_, err = run(t, dst, "", "restore", dump)
	assert.Error(t, err, "tables already exist")
}

func TestShellSession(t *testing.T) {
	input := strings.Join([]string{
		".help",
		"CREATE TABLE notes (id INT PRIMARY KEY,",
		"  body TEXT);",
		"BEGIN;",
		"INSERT INTO notes VALUES (1, 'hello');",
		"COMMIT;",
		"SELECT body FROM notes;",
		".tables",
		".columns",
		".bogus",
		"SELEC nothing;",
		".history",
		".quit",
		"SELECT 'never reached' FROM notes;",
	}, "\n")

	out, err := run(t, t.TempDir(), input, "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Special Commands:")
	assert.Contains(t, out, "OK (")
	assert.Contains(t, out, "decentdb*> ")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, `["notes"]`)
	assert.Contains(t, out, "Usage: .columns <table>")
	assert.Contains(t, out, "Unknown command: .bogus")
	assert.Contains(t, out, "syntax error")
	assert.Contains(t, out, "Goodbye!")
	assert.NotContains(t, out, "never reached")
}

func TestShellEndOfInput(t *testing.T) {
	out, err := run(t, t.TempDir(), "SELECT")
	require.NoError(t, err)
	assert.Contains(t, out, "Goodbye!")
}

func TestShellHistory(t *testing.T) {
	sh := &Shell{}
	sh.addToHistory("SELECT 1;")
	sh.addToHistory("SELECT 2;")
	sh.addToHistory("SELECT 2;")
	assert.Equal(t, []string{"SELECT 1;", "SELECT 2;"}, sh.history)

	for i := 0; i < historyLimit+100; i++ {
		sh.addToHistory(strings.Repeat("x", i%7) + string(rune('a'+i%26)))
	}
	assert.LessOrEqual(t, len(sh.history), historyLimit)
}

func TestSplitStatements(t *testing.T) {
	tests := map[string][]string{
		"SELECT 1; SELECT 2":                       {"SELECT 1", "SELECT 2"},
		"INSERT INTO t VALUES ('a;b');":            {"INSERT INTO t VALUES ('a;b')"},
		"-- note; not a statement\nSELECT 1;":      {"SELECT 1"},
		"SELECT 'it''s; fine' FROM t;;":            {"SELECT 'it''s; fine' FROM t"},
		"  ;  ":                                    nil,
		"UPDATE t SET v = \"x;y\" WHERE id = 1; ": {"UPDATE t SET v = \"x;y\" WHERE id = 1"},
	}
	for input, want := range tests {
		assert.Equal(t, want, splitStatements(input), input)
	}
}

func TestJSONValue(t *testing.T) {
	dec, err := core.NewDecimal(-105, 2)
	require.NoError(t, err)

	assert.Nil(t, jsonValue(core.NewNull()))
	assert.Nil(t, jsonValue(nil))
	assert.Equal(t, int64(7), jsonValue(core.NewInt64(7)))
	assert.Equal(t, true, jsonValue(core.NewBool(true)))
	assert.Equal(t, 0.5, jsonValue(core.NewFloat64(0.5)))
	assert.Equal(t, "é", jsonValue(core.NewTextString("é")))
	assert.Equal(t, "00ff", jsonValue(core.NewBlob([]byte{0, 0xff})))
	assert.Equal(t, "-1.05", jsonValue(dec))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\nb", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
