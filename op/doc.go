// Package op provides table and schema operations for DecentDB.
//
// The op package sits between the SQL engine (db/) and the persistence layer
// (ps/). It keeps the database content in memory and enforces constraints.
//
// # Store
//
// Store holds tables and indexes. Every mutation is recorded as a ps.Change
// plus an undo step:
//
//	store := op.NewStore()
//	store.CreateTable(table, false)
//	sp := store.Savepoint()
//	...
//	store.RollbackTo(sp)      // undo everything after sp
//	changes := store.Commit() // hand the changes to the write-ahead log
//
// # TableOp
//
// TableOp wraps the rows of one table:
//
//	t, ok := store.GetTable("users")
//	id, err := t.Insert(row)      // NOT NULL, PRIMARY KEY, UNIQUE checks
//	err = t.Update(id, newRow)
//	err = t.Delete(id)
//	for id, row := range t.Scan() {
//	    // row id order
//	}
//
// # Architecture
//
// The layering is:
//
//	SQL Parser (sql/)
//	     ↓
//	SQL Engine (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Persistence (ps/)
//	     ↓
//	Git Storage (go-git) + write-ahead log
package op
