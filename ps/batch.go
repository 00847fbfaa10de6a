package ps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/decentdb/decentdb/core"
)

// Operation represents a single write operation in a checkpoint batch
type Operation struct {
	Type OperationType
	Path string
	Data []byte
}

type OperationType int

const (
	WriteOp OperationType = iota
	DeleteOp
	DeleteTreeOp
)

// TransactionBuilder batches tree operations into a single commit
type TransactionBuilder struct {
	persistence *Persistence
	operations  []Operation
	started     bool
}

// BeginTransaction creates a new transaction builder for batching operations
func (p *Persistence) BeginTransaction() (*TransactionBuilder, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	return &TransactionBuilder{
		persistence: p,
		operations:  make([]Operation, 0),
		started:     true,
	}, nil
}

// AddWrite adds a write operation to the transaction batch
func (tb *TransactionBuilder) AddWrite(path string, data []byte) error {
	if !tb.started {
		return fmt.Errorf("transaction not started")
	}
	tb.operations = append(tb.operations, Operation{Type: WriteOp, Path: path, Data: data})
	return nil
}

// AddDelete adds a file deletion to the transaction batch
func (tb *TransactionBuilder) AddDelete(path string) error {
	if !tb.started {
		return fmt.Errorf("transaction not started")
	}
	tb.operations = append(tb.operations, Operation{Type: DeleteOp, Path: path})
	return nil
}

// AddDeleteTree removes a directory and everything written below it so far
func (tb *TransactionBuilder) AddDeleteTree(path string) error {
	if !tb.started {
		return fmt.Errorf("transaction not started")
	}
	tb.operations = append(tb.operations, Operation{Type: DeleteTreeOp, Path: path})
	return nil
}

// coalesce reduces the operation list to the final state of each path.
// Directory deletions come back separately since they must be applied
// before any file written after them.
func (tb *TransactionBuilder) coalesce() (dirDeletes []string, files map[string]*Operation) {
	files = make(map[string]*Operation)
	dirs := make(map[string]bool)

	for i := range tb.operations {
		op := &tb.operations[i]
		switch op.Type {
		case DeleteTreeOp:
			prefix := op.Path + "/"
			for p := range files {
				if strings.HasPrefix(p, prefix) {
					delete(files, p)
				}
			}
			dirs[op.Path] = true
		default:
			files[op.Path] = op
		}
	}

	for dir := range dirs {
		dirDeletes = append(dirDeletes, dir)
	}
	sort.Strings(dirDeletes)
	return dirDeletes, files
}

// Commit applies all batched operations in a single git commit
func (tb *TransactionBuilder) Commit(identity core.Identity, message string) (Transaction, error) {
	if !tb.started {
		return Transaction{}, fmt.Errorf("transaction not started")
	}

	tb.persistence.mu.Lock()
	defer tb.persistence.mu.Unlock()

	currentTree, err := tb.persistence.getCurrentTree()
	if err != nil {
		return Transaction{}, err
	}

	dirDeletes, files := tb.coalesce()

	if len(dirDeletes) > 0 {
		changes := make([]TreeChange, 0, len(dirDeletes))
		for _, dir := range dirDeletes {
			changes = append(changes, TreeChange{Path: dir, IsDelete: true})
		}
		currentTree, err = tb.persistence.batchUpdateTree(currentTree, changes)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
		}
	}

	changes := make([]TreeChange, 0, len(files))
	for path, op := range files {
		switch op.Type {
		case WriteOp:
			blobHash, err := tb.persistence.createBlob(op.Data)
			if err != nil {
				return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", path, err)
			}
			changes = append(changes, TreeChange{Path: path, BlobHash: blobHash})
		case DeleteOp:
			changes = append(changes, TreeChange{Path: path, IsDelete: true})
		}
	}

	newTree, err := tb.persistence.batchUpdateTree(currentTree, changes)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}

	if message == "" {
		message = fmt.Sprintf("Checkpoint: %d operation(s)", len(tb.operations))
	}
	txn, err := tb.persistence.createCommitDirect(newTree, identity, message)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}

	tb.started = false
	tb.operations = nil

	return txn, nil
}

// Rollback discards all batched operations without committing
func (tb *TransactionBuilder) Rollback() {
	tb.started = false
	tb.operations = nil
}

// OperationCount returns the number of pending operations
func (tb *TransactionBuilder) OperationCount() int {
	return len(tb.operations)
}
