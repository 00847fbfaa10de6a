// Package db is the SQL engine behind a DecentDB handle.
//
// An Engine owns the in-memory store, the write-ahead log and the primary
// store it checkpoints into. Statements go through two phases:
//
//	plan, err := engine.Prepare("SELECT name FROM users WHERE id = $1")
//	result, err := engine.Execute(plan, []core.Value{core.NewInt64(1)})
//
// Prepare parses the text and checks it against the current schema, fixing
// result column metadata and the type every placeholder must carry. Execute
// runs the plan to completion and returns either a QueryResult (SELECT) or a
// CommitResult (everything else).
//
// # Transactions
//
// Each statement commits on its own unless BEGIN opened a transaction. A
// commit appends one record to the write-ahead log; Checkpoint folds all
// logged changes into a single commit of the primary store and truncates the
// log. A failed statement leaves no trace, inside a transaction or not.
package db
