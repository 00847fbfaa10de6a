package decentdb

import (
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decentdb/decentdb/core"

	_ "modernc.org/sqlite"
)

var comparativeSchema = "CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, age INT, city TEXT)"

var comparativeRows = []string{
	"INSERT INTO people VALUES (1, 'alice', 34, 'Oslo')",
	"INSERT INTO people VALUES (2, 'Bob', 25, 'Rome')",
	"INSERT INTO people VALUES (3, 'carol', NULL, 'Oslo')",
	"INSERT INTO people VALUES (4, 'dave', 41, NULL)",
	"INSERT INTO people VALUES (5, 'Anna', 25, 'Lima')",
	"INSERT INTO people VALUES (6, 'eve', 19, 'Rome')",
	"INSERT INTO people VALUES (7, 'frank', NULL, NULL)",
	"INSERT INTO people VALUES (8, 'alan', 52, 'Oslo')",
}

// comparativeQueries must mean the same thing to both engines.
var comparativeQueries = []string{
	"SELECT id, name, age, city FROM people ORDER BY id",
	"SELECT name FROM people WHERE age > 30 ORDER BY name",
	"SELECT id FROM people WHERE age IS NULL ORDER BY id",
	"SELECT id FROM people WHERE city IS NOT NULL AND age <= 25 ORDER BY id",
	"SELECT id FROM people WHERE NOT age > 30 ORDER BY id",
	"SELECT id FROM people WHERE city = 'Oslo' OR age < 25 ORDER BY id",
	"SELECT id FROM people WHERE city = 'Rome' OR city = 'Lima' AND age > 20 ORDER BY id",
	"SELECT id FROM people WHERE age <> 25 ORDER BY id",
	"SELECT id, name FROM people WHERE name LIKE 'a%' ORDER BY id",
	"SELECT id FROM people WHERE name LIKE '_ve' ORDER BY id",
	"SELECT id FROM people WHERE name NOT LIKE '%a%' ORDER BY id",
	"SELECT id FROM people WHERE city IN ('Oslo', 'Lima') ORDER BY id",
	"SELECT id FROM people WHERE age NOT IN (25, 34) ORDER BY id",
	"SELECT DISTINCT city FROM people ORDER BY city",
	"SELECT DISTINCT age FROM people WHERE age IS NOT NULL ORDER BY age DESC",
	"SELECT id, city FROM people ORDER BY city, id DESC",
	"SELECT id FROM people ORDER BY age DESC, id LIMIT 3 OFFSET 1",
	"SELECT id FROM people ORDER BY id LIMIT 2",
	"SELECT id FROM people ORDER BY id LIMIT 5 OFFSET 10",
	"SELECT COUNT(*), COUNT(age), COUNT(city) FROM people",
	"SELECT SUM(age), MIN(age), MAX(age) FROM people",
	"SELECT MIN(name), MAX(city) FROM people WHERE age > 20",
	"SELECT AVG(age) FROM people WHERE city = 'Oslo'",
	"SELECT SUM(age), AVG(age), MIN(age) FROM people WHERE id > 100",
}

// sqliteOracle opens an in-memory SQLite database loaded with the same rows.
func sqliteOracle(t testing.TB) *sql.DB {
	t.Helper()
	oracle, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	oracle.SetMaxOpenConns(1)
	t.Cleanup(func() { oracle.Close() })

	_, err = oracle.Exec(comparativeSchema)
	require.NoError(t, err)
	for _, stmt := range comparativeRows {
		_, err = oracle.Exec(stmt)
		require.NoError(t, err)
	}
	return oracle
}

func renderSQLite(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []byte:
		return string(x)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

func querySQLite(t *testing.T, oracle *sql.DB, query string) [][]string {
	t.Helper()
	rows, err := oracle.Query(query)
	require.NoError(t, err, query)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)

	out := [][]string{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = renderSQLite(v)
		}
		out = append(out, row)
	}
	require.NoError(t, rows.Err())
	return out
}

func queryDecent(t *testing.T, d *DB, query string) [][]string {
	t.Helper()
	stmt := mustPrepare(t, d, query)

	out := [][]string{}
	for _, row := range collect(t, stmt) {
		rendered := make([]string, len(row))
		for i, v := range row {
			rendered[i] = v.String()
		}
		out = append(out, rendered)
	}
	return out
}

func TestAgreesWithSQLite(t *testing.T) {
	oracle := sqliteOracle(t)

	d := openMemory(t)
	mustExec(t, d, comparativeSchema)
	for _, stmt := range comparativeRows {
		mustExec(t, d, stmt)
	}

	for _, query := range comparativeQueries {
		t.Run(query, func(t *testing.T) {
			want := querySQLite(t, oracle, query)
			got := queryDecent(t, d, query)
			assert.Equal(t, want, got)
		})
	}
}

func TestAgreesWithSQLiteAfterWrites(t *testing.T) {
	oracle := sqliteOracle(t)

	d := openMemory(t)
	mustExec(t, d, comparativeSchema)
	for _, stmt := range comparativeRows {
		mustExec(t, d, stmt)
	}

	writes := []string{
		"UPDATE people SET city = 'Kyiv' WHERE city IS NULL",
		"UPDATE people SET age = 30 WHERE name LIKE 'a%' AND age < 40",
		"DELETE FROM people WHERE age < 20",
		"INSERT INTO people (name, age) VALUES ('gus', 28)",
	}
	for _, stmt := range writes {
		res, err := oracle.Exec(stmt)
		require.NoError(t, err, stmt)
		want, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, want, mustExec(t, d, stmt), stmt)
	}

	for _, query := range comparativeQueries {
		assert.Equal(t, querySQLite(t, oracle, query), queryDecent(t, d, query), query)
	}
}

func benchmarkFixture(b *testing.B) *DB {
	d, err := Open(MemoryLocation, "")
	require.NoError(b, err)
	b.Cleanup(func() { d.Close() })

	_, err = d.Exec(comparativeSchema)
	require.NoError(b, err)
	insert, err := d.Prepare("INSERT INTO people (id, name, age, city) VALUES ($1, $2, $3, $4)")
	require.NoError(b, err)
	defer insert.Finalize()
	for i := 1; i <= 1000; i++ {
		_, _, err := insert.StepWithParams([]core.Value{
			core.NewInt64(int64(i)),
			core.NewTextString("User" + strconv.Itoa(i)),
			core.NewInt64(int64(20 + i%50)),
			core.NewTextString("City" + strconv.Itoa(i%10)),
		})
		require.NoError(b, err)
	}
	return d
}

func BenchmarkPointLookup(b *testing.B) {
	d := benchmarkFixture(b)
	stmt, err := d.Prepare("SELECT name FROM people WHERE id = $1")
	require.NoError(b, err)
	defer stmt.Finalize()

	params := []core.Value{core.NewInt64(0)}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		params[0] = core.NewInt64(int64(i%1000 + 1))
		if _, _, err := stmt.StepWithParams(params); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSQLitePointLookup(b *testing.B) {
	oracle, err := sql.Open("sqlite", ":memory:")
	require.NoError(b, err)
	defer oracle.Close()
	oracle.SetMaxOpenConns(1)

	_, err = oracle.Exec(comparativeSchema)
	require.NoError(b, err)
	for i := 1; i <= 1000; i++ {
		_, err = oracle.Exec("INSERT INTO people VALUES (?, ?, ?, ?)",
			i, "User"+strconv.Itoa(i), 20+i%50, "City"+strconv.Itoa(i%10))
		require.NoError(b, err)
	}
	stmt, err := oracle.Prepare("SELECT name FROM people WHERE id = ?")
	require.NoError(b, err)
	defer stmt.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var name string
		if err := stmt.QueryRow(i%1000 + 1).Scan(&name); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFilteredScan(b *testing.B) {
	d := benchmarkFixture(b)
	stmt, err := d.Prepare("SELECT id, name FROM people WHERE city = $1 AND age > $2")
	require.NoError(b, err)
	defer stmt.Finalize()

	params := []core.Value{core.NewTextString("City3"), core.NewInt64(40)}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, hasRow, err := stmt.StepWithParams(params)
		for err == nil && hasRow {
			hasRow, err = stmt.Step()
		}
		if err != nil {
			b.Fatal(err)
		}
	}
}
