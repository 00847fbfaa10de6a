package ps

import (
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/decentdb/decentdb/core"
)

// Index is a hash index over one or more columns of a table. Rows with a
// NULL in any key column are not indexed.
type Index struct {
	Def     core.Index
	cols    []int
	Entries map[string][]int64 // key -> row ids
}

// IndexManager holds the indexes of one database, keyed by lower-cased name.
type IndexManager struct {
	indexes map[string]*Index
	mu      sync.RWMutex
}

// NewIndexManager creates a new index manager
func NewIndexManager() *IndexManager {
	return &IndexManager{
		indexes: make(map[string]*Index),
	}
}

func indexKey(name string) string {
	return strings.ToLower(name)
}

// PrimaryKeyIndexName names the implicit index of a table's primary key.
func PrimaryKeyIndexName(table string) string {
	return "pk_" + strings.ToLower(table)
}

// UniqueIndexName names the implicit index of a UNIQUE column.
func UniqueIndexName(table, column string) string {
	return fmt.Sprintf("uq_%s_%s", strings.ToLower(table), strings.ToLower(column))
}

// CreateIndex registers an empty index; cols are the positions of
// def.Columns in the table.
func (im *IndexManager) CreateIndex(def core.Index, cols []int) (*Index, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	key := indexKey(def.Name)
	if _, exists := im.indexes[key]; exists {
		return nil, core.Errorf(core.CodeSchema, "index %s already exists", def.Name)
	}

	idx := &Index{
		Def:     def,
		cols:    cols,
		Entries: make(map[string][]int64),
	}
	im.indexes[key] = idx
	return idx, nil
}

// GetIndex retrieves an existing index
func (im *IndexManager) GetIndex(name string) (*Index, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	idx, exists := im.indexes[indexKey(name)]
	return idx, exists
}

// DropIndex removes an index
func (im *IndexManager) DropIndex(name string) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	key := indexKey(name)
	if _, exists := im.indexes[key]; !exists {
		return core.Errorf(core.CodeSchema, "no such index: %s", name)
	}
	delete(im.indexes, key)
	return nil
}

// Restore puts a dropped index back, used when a transaction rolls back.
func (im *IndexManager) Restore(idx *Index) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.indexes[indexKey(idx.Def.Name)] = idx
}

// ForTable returns the indexes of a table sorted by name.
func (im *IndexManager) ForTable(table string) []*Index {
	im.mu.RLock()
	defer im.mu.RUnlock()

	var result []*Index
	for _, idx := range im.indexes {
		if strings.EqualFold(idx.Def.Table, table) {
			result = append(result, idx)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Def.Name < result[j].Def.Name })
	return result
}

// All returns every index sorted by name.
func (im *IndexManager) All() []*Index {
	im.mu.RLock()
	defer im.mu.RUnlock()

	result := make([]*Index, 0, len(im.indexes))
	for _, idx := range im.indexes {
		result = append(result, idx)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Def.Name < result[j].Def.Name })
	return result
}

// Columns returns the table positions of the key columns.
func (idx *Index) Columns() []int {
	return idx.cols
}

// KeyOf builds the index key of a row; ok is false when a key column is NULL.
func (idx *Index) KeyOf(row []core.Value) (key string, ok bool) {
	var b strings.Builder
	for i, c := range idx.cols {
		v := row[c]
		if core.IsNull(v) {
			return "", false
		}
		if i > 0 {
			b.WriteByte(0)
		}
		b.WriteString(core.Key(v))
	}
	return b.String(), true
}

// Check reports a unique violation that inserting row under rowID would cause.
func (idx *Index) Check(row []core.Value, rowID int64) error {
	if !idx.Def.Unique {
		return nil
	}
	key, ok := idx.KeyOf(row)
	if !ok {
		return nil
	}
	for _, id := range idx.Entries[key] {
		if id != rowID {
			return core.Errorf(core.CodeExecution, "UNIQUE constraint failed: %s.%s",
				idx.Def.Table, strings.Join(idx.Def.Columns, ", "))
		}
	}
	return nil
}

// Insert adds an entry to the index
func (idx *Index) Insert(row []core.Value, rowID int64) error {
	if err := idx.Check(row, rowID); err != nil {
		return err
	}
	key, ok := idx.KeyOf(row)
	if !ok {
		return nil
	}

	ids := idx.Entries[key]
	for _, id := range ids {
		if id == rowID {
			return nil
		}
	}
	idx.Entries[key] = append(ids, rowID)
	return nil
}

// Delete removes an entry from the index
func (idx *Index) Delete(row []core.Value, rowID int64) {
	key, ok := idx.KeyOf(row)
	if !ok {
		return
	}
	ids := idx.Entries[key]
	for i, id := range ids {
		if id == rowID {
			idx.Entries[key] = append(ids[:i:i], ids[i+1:]...)
			if len(idx.Entries[key]) == 0 {
				delete(idx.Entries, key)
			}
			return
		}
	}
}

// Lookup finds row ids whose key columns equal values, ascending.
func (idx *Index) Lookup(values []core.Value) []int64 {
	var b strings.Builder
	for i, v := range values {
		if core.IsNull(v) {
			return nil
		}
		if i > 0 {
			b.WriteByte(0)
		}
		b.WriteString(core.Key(v))
	}
	ids := append([]int64(nil), idx.Entries[b.String()]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Rebuild refills the index from a scan of its table.
func (idx *Index) Rebuild(rows iter.Seq2[int64, []core.Value]) error {
	idx.Entries = make(map[string][]int64)
	for id, row := range rows {
		if err := idx.Insert(row, id); err != nil {
			return err
		}
	}
	return nil
}
