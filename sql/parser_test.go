package sql

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/decentdb/decentdb/core"
)

func lit(v core.Value) Operand { return Operand{Literal: v} }
func param(n int) Operand      { return Operand{Param: n} }

func TestParser(t *testing.T) {
	ten := lit(core.Int64(10))
	one := param(1)

	tests := []struct {
		name     string
		sql      string
		expected Statement
		params   int
	}{
		{
			"select wildcard",
			"SELECT * FROM test",
			SelectStatement{Table: "test", Columns: []string{}},
			0,
		},
		{
			"select columns",
			"select col_1, col_2 from test;",
			SelectStatement{Table: "test", Columns: []string{"col_1", "col_2"}},
			0,
		},
		{
			"select with where param",
			"SELECT id FROM test WHERE id = $1",
			SelectStatement{
				Table:   "test",
				Columns: []string{"id"},
				Where:   WhereClause{Conditions: []WhereCondition{{Column: "id", Operator: EqualsOperator, Right: one}}},
			},
			1,
		},
		{
			"select with where string and decimal",
			"SELECT * FROM test WHERE name = 'it''s' OR price >= 12.50",
			SelectStatement{
				Table:   "test",
				Columns: []string{},
				Where: WhereClause{
					Conditions: []WhereCondition{
						{Column: "name", Operator: EqualsOperator, Right: lit(core.Text("it's"))},
						{Column: "price", Operator: GreaterThanOrEqualOperator, Right: lit(core.Decimal{Unscaled: 1250, Scale: 2})},
					},
					LogicalOps: []LogicalOperator{LogicalOr},
				},
			},
			0,
		},
		{
			"select with order limit offset",
			"SELECT name FROM test ORDER BY age DESC, name LIMIT 10 OFFSET $2",
			SelectStatement{
				Table:   "test",
				Columns: []string{"name"},
				OrderBy: []OrderByClause{{Column: "age", Descending: true}, {Column: "name"}},
				Limit:   &ten,
				Offset:  &Operand{Param: 2},
			},
			2,
		},
		{
			"select aggregates",
			"SELECT COUNT(*), SUM(amount) AS total FROM t",
			SelectStatement{
				Table: "t",
				Aggregates: []AggregateExpr{
					{Function: "COUNT", Column: "*"},
					{Function: "SUM", Column: "amount", Alias: "total"},
				},
			},
			0,
		},
		{
			"select null checks and in",
			"SELECT * FROM t WHERE a IS NOT NULL AND b NOT IN (1, $3)",
			SelectStatement{
				Table:   "t",
				Columns: []string{},
				Where: WhereClause{
					Conditions: []WhereCondition{
						{Column: "a", Operator: IsNotNullOperator},
						{Column: "b", Operator: InOperator, InValues: []Operand{lit(core.Int64(1)), param(3)}, Negated: true},
					},
					LogicalOps: []LogicalOperator{LogicalAnd},
				},
			},
			3,
		},
		{
			"insert with params",
			"INSERT INTO t (id, name) VALUES ($1, $2)",
			InsertStatement{Table: "t", Columns: []string{"id", "name"}, Rows: [][]Operand{{param(1), param(2)}}},
			2,
		},
		{
			"insert multiple rows without columns",
			"INSERT INTO t VALUES (1, x'00ff', NULL), (-2, x'', TRUE)",
			InsertStatement{Table: "t", Rows: [][]Operand{
				{lit(core.Int64(1)), lit(core.Blob{0x00, 0xff}), lit(core.Null{})},
				{lit(core.Int64(-2)), lit(core.Blob{}), lit(core.Bool(true))},
			}},
			0,
		},
		{
			"update",
			"UPDATE t SET name = $1, score = 1.5e2 WHERE id = $2",
			UpdateStatement{
				Table: "t",
				Updates: []SetClause{
					{Column: "name", Value: param(1)},
					{Column: "score", Value: lit(core.Float64(150))},
				},
				Where: WhereClause{Conditions: []WhereCondition{{Column: "id", Operator: EqualsOperator, Right: param(2)}}},
			},
			2,
		},
		{
			"delete",
			"DELETE FROM t",
			DeleteStatement{Table: "t"},
			0,
		},
		{
			"create table",
			"CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email VARCHAR(255) UNIQUE, amount DECIMAL(18,9), data BLOB, ok BOOL, f REAL)",
			CreateTableStatement{
				Table:       "t",
				IfNotExists: true,
				Columns: []core.Column{
					{Name: "id", Type: core.IntType, PrimaryKey: true, NotNull: true},
					{Name: "name", Type: core.TextType, NotNull: true},
					{Name: "email", Type: core.TextType, Unique: true},
					{Name: "amount", Type: core.DecimalType, Precision: 18, Scale: 9},
					{Name: "data", Type: core.BlobType},
					{Name: "ok", Type: core.BoolType},
					{Name: "f", Type: core.FloatType},
				},
			},
			0,
		},
		{
			"create unique index",
			"CREATE UNIQUE INDEX idx_ab ON t (a, b)",
			CreateIndexStatement{Name: "idx_ab", Table: "t", Columns: []string{"a", "b"}, Unique: true},
			0,
		},
		{
			"drop table",
			"DROP TABLE IF EXISTS t",
			DropTableStatement{Table: "t", IfExists: true},
			0,
		},
		{
			"drop index",
			"DROP INDEX idx",
			DropIndexStatement{Name: "idx"},
			0,
		},
		{
			"begin",
			"BEGIN TRANSACTION",
			BeginStatement{},
			0,
		},
		{
			"commit with comment",
			"-- done\nCOMMIT",
			CommitStatement{},
			0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			statement, params, err := Parse(test.sql)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", test.sql, err)
			}
			if !reflect.DeepEqual(statement, test.expected) {
				t.Errorf("Parse(%q)\n got: %#v\nwant: %#v", test.sql, statement, test.expected)
			}
			if params != test.params {
				t.Errorf("Parse(%q) params = %d, want %d", test.sql, params, test.params)
			}
		})
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		sql      string
		contains string
	}{
		{"SELEC * FROM t", "unknown statement type"},
		{"SELECT * FORM t", "expected FROM"},
		{"SELECT * FROM t WHERE id = ?", "unsupported parameter style ?"},
		{"SELECT * FROM t WHERE name = 'open", "unterminated string"},
		{"INSERT INTO t (a, b) VALUES (1)", "1 values for 2 columns"},
		{"CREATE TABLE t (a WIDGET)", "expected column type"},
		{"CREATE TABLE t (a DECIMAL(3,5))", "invalid DECIMAL(3,5)"},
		{"SELECT * FROM t LIMIT 1 garbage", "unexpected trailing input"},
		{"SELECT id, COUNT(*) FROM t", "cannot mix aggregates"},
		{"", "empty statement"},
		{"SELECT * FROM t WHERE id = 99999999999999999999", "integer literal out of range"},
	}

	for _, test := range tests {
		t.Run(test.sql, func(t *testing.T) {
			_, _, err := Parse(test.sql)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", test.sql)
			}
			if !errors.Is(err, core.ErrSyntax) {
				t.Errorf("Parse(%q) error %v is not a syntax error", test.sql, err)
			}
			msg := core.MessageOf(err)
			if !strings.HasPrefix(msg, "syntax error:") {
				t.Errorf("message %q lacks syntax error prefix", msg)
			}
			if !strings.Contains(msg, test.contains) {
				t.Errorf("message %q does not contain %q", msg, test.contains)
			}
		})
	}
}

func TestParserErrorIsStable(t *testing.T) {
	_, _, first := Parse("SELEC 1")
	_, _, second := Parse("SELEC 1")
	if core.MessageOf(first) == "" || core.MessageOf(first) != core.MessageOf(second) {
		t.Errorf("unstable messages: %q vs %q", core.MessageOf(first), core.MessageOf(second))
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("SELECT a FROM t WHERE b <> $12 -- trailing")
	types := []TokenType{Select, Identifier, From, Identifier, Where, Identifier, NotEquals, Param, EOF}
	if len(tokens) != len(types) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(types), tokens)
	}
	for i, tt := range types {
		if tokens[i].Type != tt {
			t.Errorf("token %d = %v, want type %d", i, tokens[i], tt)
		}
	}
	if tokens[7].Value != "12" {
		t.Errorf("param value = %q, want 12", tokens[7].Value)
	}
}
