package decentdb

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/decentdb/decentdb/core"
)

// Buffer is an owned snapshot returned by schema introspection. Release it
// exactly once; Bytes fails afterwards.
type Buffer struct {
	data     []byte
	released bool
}

func (b *Buffer) Bytes() ([]byte, error) {
	if b.released {
		return nil, core.Errorf(core.CodeInvalidState, "buffer already released")
	}
	return b.data, nil
}

func (b *Buffer) Len() int {
	if b.released {
		return 0
	}
	return len(b.data)
}

func (b *Buffer) Release() error {
	if b.released {
		return core.Errorf(core.CodeInvalidState, "buffer already released")
	}
	b.released = true
	b.data = nil
	return nil
}

// ColumnInfo is one element of TableColumnsJSON.
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null"`
	Unique     bool   `json:"unique"`
	PrimaryKey bool   `json:"primary_key"`
}

// IndexInfo is one element of ListIndexesJSON.
type IndexInfo struct {
	Name    string   `json:"name"`
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Kind    string   `json:"kind"`
}

func (d *DB) snapshot(build func() (any, error)) (*Buffer, error) {
	if err := d.lock(); err != nil {
		return nil, d.errs.set(err)
	}
	v, err := build()
	d.mu.Unlock()
	if err != nil {
		return nil, d.errs.set(err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, d.errs.set(core.Wrap(core.CodeInternal, err))
	}
	return &Buffer{data: data}, nil
}

// ListTablesJSON returns the table names as a sorted JSON array.
func (d *DB) ListTablesJSON() (*Buffer, error) {
	return d.snapshot(func() (any, error) {
		names := []string{}
		for _, t := range d.engine.Tables() {
			names = append(names, t.Name)
		}
		sort.Strings(names)
		return names, nil
	})
}

// TableColumnsJSON describes the columns of a table in declaration order.
func (d *DB) TableColumnsJSON(table string) (*Buffer, error) {
	return d.snapshot(func() (any, error) {
		t, ok := d.engine.Table(table)
		if !ok {
			return nil, core.Errorf(core.CodeSchema, "no such table: %s", table)
		}
		return columnInfos(t), nil
	})
}

func columnInfos(t core.Table) []ColumnInfo {
	pk := t.PrimaryKey()
	cols := make([]ColumnInfo, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = ColumnInfo{
			Name:       c.Name,
			Type:       c.DeclType(),
			NotNull:    c.NotNull || c.PrimaryKey,
			Unique:     c.Unique || (c.PrimaryKey && len(pk) == 1),
			PrimaryKey: c.PrimaryKey,
		}
	}
	return cols
}

// ListIndexesJSON lists every index, including the implicit ones backing
// PRIMARY KEY and UNIQUE, sorted by name.
func (d *DB) ListIndexesJSON() (*Buffer, error) {
	return d.snapshot(func() (any, error) {
		indexes := []IndexInfo{}
		for _, idx := range d.engine.Indexes() {
			indexes = append(indexes, IndexInfo{
				Name:    idx.Name,
				Table:   idx.Table,
				Columns: append([]string{}, idx.Columns...),
				Unique:  idx.Unique,
				Kind:    "hash",
			})
		}
		sort.Slice(indexes, func(i, j int) bool {
			return strings.ToLower(indexes[i].Name) < strings.ToLower(indexes[j].Name)
		})
		return indexes, nil
	})
}

// Schema returns the tables and indexes visible to this handle, tables in
// name order. Implicit indexes are included and marked.
func (d *DB) Schema() ([]core.Table, []core.Index, error) {
	if err := d.lock(); err != nil {
		return nil, nil, d.errs.set(err)
	}
	defer d.mu.Unlock()
	return d.engine.Tables(), d.engine.Indexes(), nil
}
