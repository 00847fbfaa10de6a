// Package decentdb is an embeddable SQL database with a statement contract
// designed for foreign-call bindings.
//
// # Quick Start
//
//	db, err := decentdb.Open("/var/lib/app/data", "sync=full")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	db.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
//
//	stmt, _ := db.Prepare("INSERT INTO users (id, name) VALUES ($1, $2)")
//	stmt.BindInt64(1, 42)
//	stmt.BindText(2, "hello")
//	stmt.Step()
//	stmt.Finalize()
//
// # Statements
//
// A Stmt moves through Prepared, HasRow, Done and Error. Step executes the
// statement on its first call; a query then yields one row per Step. Reset
// goes back to Prepared and keeps bindings; Finalize releases the statement.
// Placeholders are numbered ($1, $2, ...) and bindings are type-checked
// against the column each placeholder is compared with or stored into, so a
// TypeMismatch is reported by Bind, never by Step.
//
// # Row Views
//
// RowView exposes the current row as core.ValueView records without copying
// per call. A view is tied to the row it was taken on: once the statement is
// stepped, reset or finalized every accessor returns InvalidState.
// StepWithParams performs reset, bind and step in one call and hands back
// the view.
//
// # Errors
//
// Every failing call returns a *core.Error carrying a Code. The DB and each
// Stmt also keep the last failure in an ErrorContext; statements mirror
// their failures into the DB slot.
//
// # Durability
//
// Each commit is appended to a write-ahead log. Checkpoint folds the log into
// a Git object store under the location directory and truncates it; reopening
// a location replays whatever the log still holds.
//
// # Options
//
// The option string takes key=value pairs separated by '&' or ';':
//   - cache_pages: object cache size in 4 KiB pages (default 1024)
//   - sync: full (fsync every commit, default) or normal
//   - checkpoint_bytes: automatic checkpoint threshold (default 8 MiB, 0 disables)
//   - author: "Name <email>" recorded on checkpoint commits
package decentdb
