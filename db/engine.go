package db

import (
	"fmt"
	"time"

	"github.com/decentdb/decentdb/core"
	"github.com/decentdb/decentdb/op"
	"github.com/decentdb/decentdb/ps"
	"github.com/decentdb/decentdb/sql"
)

// Config carries the engine settings derived from open options.
type Config struct {
	Identity core.Identity
	// SyncWrites fsyncs the write-ahead log on every commit.
	SyncWrites bool
	// CheckpointBytes triggers a checkpoint after a commit once the log holds
	// this many bytes. Zero disables it.
	CheckpointBytes int64
}

// Engine executes plans against one database. It is not safe for concurrent
// use; callers serialize access.
type Engine struct {
	persistence *ps.Persistence
	store       *op.Store
	wal         *ps.WAL
	meta        ps.Meta
	config      Config

	inTx      bool
	txStart   op.Savepoint
	unchecked []ps.Change // committed since the last checkpoint
}

// Open loads the last checkpoint and replays the write-ahead log on top.
func Open(persistence *ps.Persistence, config Config) (*Engine, error) {
	meta, err := persistence.Init(config.Identity)
	if err != nil {
		return nil, err
	}

	snap, err := persistence.LoadSnapshot()
	if err != nil {
		return nil, err
	}
	store := op.NewStore()
	if err := store.Load(snap); err != nil {
		return nil, err
	}

	wal, records, err := ps.OpenWAL(persistence.Filesystem(), meta.ID, config.SyncWrites)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		persistence: persistence,
		store:       store,
		wal:         wal,
		meta:        snap.Meta,
		config:      config,
	}

	replayed := 0
	for _, rec := range records {
		if rec.Generation < engine.meta.Generation {
			continue
		}
		for _, c := range rec.Changes {
			if err := store.Apply(c); err != nil {
				wal.Close()
				return nil, core.Errorf(core.CodeCorruption, "replay write-ahead log: %s", core.MessageOf(err))
			}
		}
		engine.unchecked = append(engine.unchecked, rec.Changes...)
		replayed++
	}
	store.Commit()

	if replayed > 0 {
		core.Logf("[INFO] replayed %d transaction(s) from the write-ahead log", replayed)
	}
	return engine, nil
}

// Execute runs a plan with its placeholder values (index 0 is $1). Missing
// values are NULL.
func (engine *Engine) Execute(plan *Plan, params []core.Value) (Result, error) {
	bound := make([]core.Value, max(plan.ParamCount, len(params)))
	copy(bound, params)
	for i, v := range bound {
		if v == nil {
			bound[i] = core.NewNull()
		}
	}
	params = bound

	x := execution{engine: engine, plan: plan, params: params, start: time.Now()}

	switch s := plan.Statement.(type) {
	case sql.BeginStatement:
		return engine.executeBegin()
	case sql.CommitStatement:
		return engine.executeCommit()
	case sql.RollbackStatement:
		return engine.executeRollback()
	case sql.SelectStatement:
		return x.executeSelect(s)
	}

	sp := engine.store.Savepoint()
	result, err := x.executeWrite()
	if err != nil {
		engine.store.RollbackTo(sp)
		return nil, withSQL(err, plan.SQL)
	}

	if !engine.inTx {
		if err := engine.commit(); err != nil {
			engine.store.RollbackTo(sp)
			return nil, err
		}
	}
	return result, nil
}

// commit logs the pending changes and makes them permanent in memory.
func (engine *Engine) commit() error {
	changes := engine.store.Pending()
	if len(changes) == 0 {
		engine.store.Commit()
		return nil
	}
	if err := engine.wal.Append(engine.meta.Generation, changes); err != nil {
		return core.Wrap(core.CodeIO, err)
	}
	engine.unchecked = append(engine.unchecked, engine.store.Commit()...)
	engine.maybeCheckpoint()
	return nil
}

func (engine *Engine) maybeCheckpoint() {
	limit := engine.config.CheckpointBytes
	if limit <= 0 || engine.inTx || engine.wal.Pending() < limit {
		return
	}
	if _, err := engine.Checkpoint(); err != nil {
		core.Logf("[WARN] automatic checkpoint failed: %v", err)
	}
}

func (engine *Engine) executeBegin() (Result, error) {
	if engine.inTx {
		return nil, core.Errorf(core.CodeTransaction, "cannot start a transaction within a transaction")
	}
	engine.inTx = true
	engine.txStart = engine.store.Savepoint()
	return CommitResult{}, nil
}

func (engine *Engine) executeCommit() (Result, error) {
	if !engine.inTx {
		return nil, core.Errorf(core.CodeTransaction, "cannot commit - no transaction is active")
	}
	engine.inTx = false
	if err := engine.commit(); err != nil {
		engine.inTx = true
		return nil, err
	}
	return CommitResult{}, nil
}

func (engine *Engine) executeRollback() (Result, error) {
	if !engine.inTx {
		return nil, core.Errorf(core.CodeTransaction, "cannot rollback - no transaction is active")
	}
	engine.store.RollbackTo(engine.txStart)
	engine.inTx = false
	return CommitResult{}, nil
}

// InTransaction reports whether an explicit transaction is open.
func (engine *Engine) InTransaction() bool {
	return engine.inTx
}

// Tables returns table schemas sorted by name.
func (engine *Engine) Tables() []core.Table {
	names := engine.store.TableNames()
	tables := make([]core.Table, 0, len(names))
	for _, name := range names {
		t, _ := engine.store.GetTable(name)
		tables = append(tables, t.Table)
	}
	return tables
}

func (engine *Engine) Table(name string) (core.Table, bool) {
	t, ok := engine.store.GetTable(name)
	if !ok {
		return core.Table{}, false
	}
	return t.Table, true
}

// Indexes returns every index definition, implicit ones included, sorted by name.
func (engine *Engine) Indexes() []core.Index {
	all := engine.store.Indexes.All()
	defs := make([]core.Index, len(all))
	for i, idx := range all {
		defs[i] = idx.Def
	}
	return defs
}

// History lists checkpoint commits, newest first.
func (engine *Engine) History(limit int) ([]ps.Transaction, error) {
	return engine.persistence.History(limit)
}

// PendingLog is the number of write-ahead log bytes not yet checkpointed.
func (engine *Engine) PendingLog() int64 {
	return engine.wal.Pending()
}

// Close releases the write-ahead log. Committed work is already durable in
// it; an open transaction is discarded.
func (engine *Engine) Close() error {
	if engine.inTx {
		engine.store.RollbackTo(engine.txStart)
		engine.inTx = false
	}
	if err := engine.wal.Close(); err != nil {
		return fmt.Errorf("failed to close write-ahead log: %w", err)
	}
	return nil
}
