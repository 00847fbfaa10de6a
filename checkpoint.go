package decentdb

import (
	"github.com/decentdb/decentdb/core"
)

// Checkpoint writes every change logged since the previous checkpoint into
// the primary store and truncates the write-ahead log. It waits for any
// statement currently executing on this handle. While an explicit
// transaction is open it fails with LockContention; retry after COMMIT or
// ROLLBACK.
func (d *DB) Checkpoint() error {
	if err := d.lock(); err != nil {
		return d.errs.set(err)
	}
	defer d.mu.Unlock()

	if _, err := d.engine.Checkpoint(); err != nil {
		code := core.CodeOf(err)
		if code != core.CodeLockContention {
			code = core.CodeIO
		}
		return d.errs.set(&core.Error{Code: code, Message: core.MessageOf(err)})
	}
	return nil
}
