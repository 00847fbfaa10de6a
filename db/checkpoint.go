package db

import (
	"github.com/decentdb/decentdb/core"
	"github.com/decentdb/decentdb/ps"
)

// Checkpoint writes every change committed since the last checkpoint as one
// commit of the primary store, then truncates the write-ahead log.
func (engine *Engine) Checkpoint() (ps.Transaction, error) {
	if engine.inTx {
		return ps.Transaction{}, core.Errorf(core.CodeLockContention, "cannot checkpoint while a transaction is open")
	}
	if len(engine.unchecked) == 0 {
		return engine.persistence.LatestTransaction(), nil
	}

	next := engine.meta
	next.Generation++
	txn, err := engine.persistence.Checkpoint(next, engine.unchecked, engine.config.Identity)
	if err != nil {
		return ps.Transaction{}, core.Wrap(core.CodeIO, err)
	}
	engine.meta = next

	// records logged from now on carry the new generation, so an old log
	// that survives a failed reset is skipped on the next open
	if err := engine.wal.Reset(); err != nil {
		core.Logf("[WARN] checkpoint %s committed but the write-ahead log was not reset: %v", txn.Id, err)
		engine.unchecked = nil
		return txn, core.Wrap(core.CodeIO, err)
	}

	core.Logf("[INFO] checkpoint %s: %d change(s)", txn.Id, len(engine.unchecked))
	engine.unchecked = nil
	return txn, nil
}
