package decentdb

import (
	"sync"

	"github.com/go-pkgz/lgr"
	"github.com/hashicorp/go-multierror"

	"github.com/decentdb/decentdb/core"
	"github.com/decentdb/decentdb/db"
	"github.com/decentdb/decentdb/ps"
)

// SetLogger sends the library's diagnostics to l. They are discarded until
// a logger is set.
func SetLogger(l lgr.L) {
	core.SetLogger(l)
}

// MemoryLocation opens a database that lives only as long as its handle.
const MemoryLocation = ":memory:"

// DB is an open database. All engine work is serialized by its mutex, so a
// DB may be shared by several statements and goroutines.
type DB struct {
	mu          sync.Mutex
	location    string
	options     Options
	persistence *ps.Persistence
	engine      *db.Engine
	stmts       map[*Stmt]struct{}
	closed      bool

	errs ErrorContext
}

// Open opens or creates the database at location with the given option
// string (see ParseOptions). An empty location is the same as MemoryLocation.
func Open(location, options string) (*DB, error) {
	opts, err := ParseOptions(options)
	if err != nil {
		return nil, err
	}

	var persistence *ps.Persistence
	if location == "" || location == MemoryLocation {
		persistence, err = ps.NewMemoryPersistence()
	} else {
		persistence, err = ps.NewFilePersistence(location, opts.CachePages)
	}
	if err != nil {
		return nil, core.Wrap(core.CodeIO, err)
	}

	engine, err := db.Open(persistence, db.Config{
		Identity:        opts.Author,
		SyncWrites:      opts.SyncWrites,
		CheckpointBytes: opts.CheckpointBytes,
	})
	if err != nil {
		persistence.Close()
		return nil, core.Wrap(core.CodeIO, err)
	}

	core.Logf("[DEBUG] opened database at %q", location)
	return &DB{
		location:    location,
		options:     opts,
		persistence: persistence,
		engine:      engine,
		stmts:       make(map[*Stmt]struct{}),
	}, nil
}

func (d *DB) Location() string {
	return d.location
}

func (d *DB) Options() Options {
	return d.options
}

// Errors is the handle's error slot. Handle-level calls record only here;
// statements record in their own slot and mirror into this one.
func (d *DB) Errors() *ErrorContext {
	return &d.errs
}

// LastError returns the code and message of the most recent failure on this
// handle or any of its statements.
func (d *DB) LastError() (core.Code, string) {
	return d.errs.Last()
}

// lock acquires the handle for engine work, failing once closed.
func (d *DB) lock() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return core.Errorf(core.CodeInvalidState, "database is closed")
	}
	return nil
}

// Prepare compiles text into a statement. Syntax and schema problems are
// reported here; no statement is returned for them.
func (d *DB) Prepare(text string) (*Stmt, error) {
	if err := d.lock(); err != nil {
		return nil, d.errs.set(err)
	}
	defer d.mu.Unlock()

	plan, err := d.engine.Prepare(text)
	if err != nil {
		return nil, d.errs.set(err)
	}

	stmt := newStmt(d, plan)
	d.stmts[stmt] = struct{}{}
	return stmt, nil
}

// Exec prepares, runs and finalizes a statement, returning the rows it
// affected.
func (d *DB) Exec(text string, params ...core.Value) (int64, error) {
	stmt, err := d.Prepare(text)
	if err != nil {
		return 0, err
	}
	defer stmt.Finalize()

	if _, _, err := stmt.StepWithParams(params); err != nil {
		return 0, err
	}
	for stmt.State() == StateHasRow {
		if _, err := stmt.Step(); err != nil {
			return 0, err
		}
	}
	return stmt.RowsAffected(), nil
}

// InTransaction reports whether BEGIN has been executed without a matching
// COMMIT or ROLLBACK.
func (d *DB) InTransaction() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed && d.engine.InTransaction()
}

// History lists checkpoints, newest first; limit <= 0 lists all.
func (d *DB) History(limit int) ([]ps.Transaction, error) {
	if err := d.lock(); err != nil {
		return nil, d.errs.set(err)
	}
	defer d.mu.Unlock()

	history, err := d.engine.History(limit)
	if err != nil {
		return nil, d.errs.set(core.Wrap(core.CodeIO, err))
	}
	return history, nil
}

func (d *DB) forget(stmt *Stmt) {
	d.mu.Lock()
	delete(d.stmts, stmt)
	d.mu.Unlock()
}

// Close finalizes remaining statements and releases the database. An open
// transaction is rolled back. Committed work is durable in the write-ahead
// log; Close does not checkpoint. A second Close is a no-op.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	if n := len(d.stmts); n > 0 {
		core.Logf("[DEBUG] closing %q with %d unfinalized statement(s)", d.location, n)
	}
	for stmt := range d.stmts {
		stmt.release()
	}
	d.stmts = nil

	var result error
	if err := d.engine.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := d.persistence.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if result != nil {
		return d.errs.set(core.Wrap(core.CodeIO, result))
	}
	return nil
}
