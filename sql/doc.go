// Package sql provides SQL lexing and parsing for DecentDB.
//
// The package includes a lexer that tokenizes SQL strings and a parser
// that produces statement values. Placeholders use the $N form only.
//
// # Parser Usage
//
//	statement, params, err := sql.Parse("SELECT * FROM users WHERE id = $1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Parse errors are *core.Error values with CodeSyntax whose message starts
// with "syntax error:".
//
// # Supported Statements
//
//   - SelectStatement (columns or aggregates, WHERE, ORDER BY, LIMIT, OFFSET)
//   - InsertStatement (one or more VALUES rows)
//   - UpdateStatement, DeleteStatement
//   - CreateTableStatement, DropTableStatement
//   - CreateIndexStatement, DropIndexStatement
//   - BeginStatement, CommitStatement, RollbackStatement
package sql
