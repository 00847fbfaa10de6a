// Package ps provides the persistence layer for DecentDB.
//
// A database location holds two things: a write-ahead log (wal.log) and a
// Git object store (store/) managed with go-git. Committed transactions are
// appended to the log; a checkpoint folds everything logged since the last
// one into a single Git commit and truncates the log.
//
// # Memory Persistence
//
// For testing or ephemeral databases:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For persistent storage, with the object cache sized in 4 KiB pages:
//
//	persistence, err := ps.NewFilePersistence("/path/to/data", 1024)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	meta, err := persistence.Init(identity)
//
// # Store Layout
//
//	meta.json                  database id and format version
//	tables/<table>.table       table schema
//	rows/<table>/<rowid>       one row, hex row id, values in wire form
//	indexes/<name>.index       explicit index definition
//
// # Checkpoints
//
//	wal, pending, err := ps.OpenWAL(persistence.Filesystem(), meta.ID, true)
//	wal.Append(changes)
//	txn, err := persistence.Checkpoint(changes, identity)
//	wal.Reset()
//
// # Indexing
//
// Indexes are in-memory hash indexes rebuilt from the rows on open:
//
//	im := ps.NewIndexManager()
//	idx, _ := im.CreateIndex(def, []int{1})
//	ids := idx.Lookup([]core.Value{core.NewTextString("NYC")})
package ps
