package ps

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/decentdb/decentdb/core"
)

const (
	metaPath     = "meta.json"
	tablesDir    = "tables"
	rowsDir      = "rows"
	indexesDir   = "indexes"
	formatLatest = 1
)

// Meta identifies the database a store belongs to. Generation counts
// checkpoints.
type Meta struct {
	ID         uuid.UUID `json:"id"`
	Format     int       `json:"format"`
	Generation uint64    `json:"generation"`
}

// TableSnapshot is one table as of the last checkpoint.
type TableSnapshot struct {
	Schema core.Table
	Rows   []RowSnapshot
}

type RowSnapshot struct {
	ID     int64
	Values []core.Value
}

// Snapshot is the content of the store at HEAD.
type Snapshot struct {
	Meta    Meta
	Tables  []TableSnapshot
	Indexes []core.Index
}

func tablePath(table string) string {
	return fmt.Sprintf("%s/%s.table", tablesDir, strings.ToLower(table))
}

func rowDir(table string) string {
	return fmt.Sprintf("%s/%s", rowsDir, strings.ToLower(table))
}

func rowPath(table string, rowID int64) string {
	return fmt.Sprintf("%s/%016x", rowDir(table), uint64(rowID))
}

func indexPath(name string) string {
	return fmt.Sprintf("%s/%s.index", indexesDir, strings.ToLower(name))
}

// Init makes sure the store has a meta.json, writing a first commit for a
// brand new store.
func (p *Persistence) Init(identity core.Identity) (Meta, error) {
	if err := p.ensureInitialized(); err != nil {
		return Meta{}, err
	}

	data, err := p.ReadFileDirect(metaPath)
	if err == nil {
		var meta Meta
		if err := json.Unmarshal(data, &meta); err != nil {
			return Meta{}, core.Errorf(core.CodeCorruption, "invalid %s: %v", metaPath, err)
		}
		if meta.Format > formatLatest {
			return Meta{}, core.Errorf(core.CodeCorruption, "unsupported store format %d", meta.Format)
		}
		return meta, nil
	}

	if tree, _ := p.headTree(); tree != nil {
		return Meta{}, core.Errorf(core.CodeCorruption, "store has no %s", metaPath)
	}

	meta := Meta{ID: uuid.New(), Format: formatLatest}
	data, err = json.Marshal(meta)
	if err != nil {
		return Meta{}, err
	}

	txn, err := p.BeginTransaction()
	if err != nil {
		return Meta{}, err
	}
	if err := txn.AddWrite(metaPath, data); err != nil {
		return Meta{}, err
	}
	if _, err := txn.Commit(identity, "Create database"); err != nil {
		return Meta{}, core.Wrap(core.CodeIO, err)
	}
	return meta, nil
}

// Checkpoint folds the changes into one commit on top of HEAD, together
// with meta, which should carry the next generation.
func (p *Persistence) Checkpoint(meta Meta, changes []Change, identity core.Identity) (Transaction, error) {
	txn, err := p.BeginTransaction()
	if err != nil {
		return Transaction{}, err
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return Transaction{}, err
	}
	if err := txn.AddWrite(metaPath, data); err != nil {
		return Transaction{}, err
	}

	for _, c := range changes {
		if err := addChange(txn, c); err != nil {
			txn.Rollback()
			return Transaction{}, err
		}
	}

	message := fmt.Sprintf("Checkpoint: %d change(s)", len(changes))
	result, err := txn.Commit(identity, message)
	if err != nil {
		return Transaction{}, core.Wrap(core.CodeIO, err)
	}
	return result, nil
}

func addChange(txn *TransactionBuilder, c Change) error {
	switch c.Type {
	case ChangeCreateTable:
		if c.Schema == nil {
			return core.Errorf(core.CodeInternal, "create_table change without schema")
		}
		data, err := json.Marshal(c.Schema)
		if err != nil {
			return err
		}
		// a recreated table must not inherit rows of a dropped one
		if err := txn.AddDeleteTree(rowDir(c.Table)); err != nil {
			return err
		}
		return txn.AddWrite(tablePath(c.Table), data)
	case ChangeDropTable:
		if err := txn.AddDeleteTree(rowDir(c.Table)); err != nil {
			return err
		}
		return txn.AddDelete(tablePath(c.Table))
	case ChangeCreateIndex:
		if c.Index == nil {
			return core.Errorf(core.CodeInternal, "create_index change without definition")
		}
		data, err := json.Marshal(c.Index)
		if err != nil {
			return err
		}
		return txn.AddWrite(indexPath(c.Index.Name), data)
	case ChangeDropIndex:
		return txn.AddDelete(indexPath(c.Name))
	case ChangePut:
		data, err := json.Marshal(c.Row)
		if err != nil {
			return err
		}
		return txn.AddWrite(rowPath(c.Table, c.RowID), data)
	case ChangeDelete:
		return txn.AddDelete(rowPath(c.Table, c.RowID))
	default:
		return core.Errorf(core.CodeCorruption, "unknown change type %q", c.Type)
	}
}

// LoadSnapshot reads every table, row and index definition at HEAD.
func (p *Persistence) LoadSnapshot() (*Snapshot, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := &Snapshot{}
	data, err := p.ReadFileDirect(metaPath)
	if err != nil {
		return nil, core.Errorf(core.CodeCorruption, "read %s: %v", metaPath, err)
	}
	if err := json.Unmarshal(data, &snap.Meta); err != nil {
		return nil, core.Errorf(core.CodeCorruption, "invalid %s: %v", metaPath, err)
	}

	tableEntries, err := p.ListEntriesDirect(tablesDir)
	if err != nil {
		return nil, core.Wrap(core.CodeIO, err)
	}
	for _, entry := range tableEntries {
		if entry.IsDir || !strings.HasSuffix(entry.Name, ".table") {
			continue
		}
		raw, err := p.readBlob(entry)
		if err != nil {
			return nil, core.Wrap(core.CodeIO, err)
		}
		var table core.Table
		if err := json.Unmarshal(raw, &table); err != nil {
			return nil, core.Errorf(core.CodeCorruption, "invalid table file %s: %v", entry.Name, err)
		}
		rows, err := p.loadRows(table.Name)
		if err != nil {
			return nil, err
		}
		snap.Tables = append(snap.Tables, TableSnapshot{Schema: table, Rows: rows})
	}

	indexEntries, err := p.ListEntriesDirect(indexesDir)
	if err != nil {
		return nil, core.Wrap(core.CodeIO, err)
	}
	for _, entry := range indexEntries {
		if entry.IsDir || !strings.HasSuffix(entry.Name, ".index") {
			continue
		}
		raw, err := p.readBlob(entry)
		if err != nil {
			return nil, core.Wrap(core.CodeIO, err)
		}
		var index core.Index
		if err := json.Unmarshal(raw, &index); err != nil {
			return nil, core.Errorf(core.CodeCorruption, "invalid index file %s: %v", entry.Name, err)
		}
		snap.Indexes = append(snap.Indexes, index)
	}

	sort.Slice(snap.Tables, func(i, j int) bool {
		return snap.Tables[i].Schema.Name < snap.Tables[j].Schema.Name
	})
	sort.Slice(snap.Indexes, func(i, j int) bool {
		return snap.Indexes[i].Name < snap.Indexes[j].Name
	})

	return snap, nil
}

func (p *Persistence) loadRows(table string) ([]RowSnapshot, error) {
	entries, err := p.ListEntriesDirect(rowDir(table))
	if err != nil {
		return nil, core.Wrap(core.CodeIO, err)
	}

	rows := make([]RowSnapshot, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		id, err := strconv.ParseUint(entry.Name, 16, 64)
		if err != nil {
			return nil, core.Errorf(core.CodeCorruption, "invalid row file %s/%s", table, entry.Name)
		}
		raw, err := p.readBlob(entry)
		if err != nil {
			return nil, core.Wrap(core.CodeIO, err)
		}
		var wire []core.WireValue
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, core.Errorf(core.CodeCorruption, "invalid row %s/%s: %v", table, entry.Name, err)
		}
		values, err := core.FromWireRow(wire)
		if err != nil {
			return nil, err
		}
		rows = append(rows, RowSnapshot{ID: int64(id), Values: values})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}
