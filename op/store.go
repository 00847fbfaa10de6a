package op

import (
	"sort"
	"strings"

	"github.com/decentdb/decentdb/core"
	"github.com/decentdb/decentdb/ps"
)

// Store is the in-memory state of a database: tables, rows and indexes.
// Every mutation made through it is recorded twice, as a change to log and
// as an undo step, until Commit.
type Store struct {
	tables  map[string]*TableOp
	Indexes *ps.IndexManager

	changes []ps.Change
	undo    []func()
}

// Savepoint marks a position that RollbackTo can return to.
type Savepoint struct {
	changes int
	undo    int
}

func NewStore() *Store {
	return &Store{
		tables:  make(map[string]*TableOp),
		Indexes: ps.NewIndexManager(),
	}
}

func tableKey(name string) string {
	return strings.ToLower(name)
}

func (s *Store) record(change ps.Change, undo func()) {
	s.changes = append(s.changes, change)
	s.undo = append(s.undo, undo)
}

func (s *Store) Savepoint() Savepoint {
	return Savepoint{changes: len(s.changes), undo: len(s.undo)}
}

// RollbackTo undoes everything recorded after sp, newest first.
func (s *Store) RollbackTo(sp Savepoint) {
	for i := len(s.undo) - 1; i >= sp.undo; i-- {
		s.undo[i]()
	}
	s.undo = s.undo[:sp.undo]
	s.changes = s.changes[:sp.changes]
}

// Pending returns the changes recorded since the last Commit.
func (s *Store) Pending() []ps.Change {
	return s.changes
}

// Commit forgets undo history and returns the changes recorded since the
// previous Commit.
func (s *Store) Commit() []ps.Change {
	changes := s.changes
	s.changes = nil
	s.undo = nil
	return changes
}

// GetTable looks a table up case-insensitively.
func (s *Store) GetTable(name string) (*TableOp, bool) {
	t, ok := s.tables[tableKey(name)]
	return t, ok
}

// TableNames returns table names sorted.
func (s *Store) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for _, t := range s.tables {
		names = append(names, t.Table.Name)
	}
	sort.Strings(names)
	return names
}

// implicitIndexes returns the indexes a table carries for its PRIMARY KEY
// and UNIQUE columns.
func implicitIndexes(table core.Table) []core.Index {
	var defs []core.Index
	if pk := table.PrimaryKey(); len(pk) > 0 {
		cols := make([]string, len(pk))
		for i, c := range pk {
			cols[i] = table.Columns[c].Name
		}
		defs = append(defs, core.Index{
			Name: ps.PrimaryKeyIndexName(table.Name), Table: table.Name,
			Columns: cols, Unique: true, Implicit: true,
		})
	}
	for _, col := range table.Columns {
		if col.Unique && !col.PrimaryKey {
			defs = append(defs, core.Index{
				Name: ps.UniqueIndexName(table.Name, col.Name), Table: table.Name,
				Columns: []string{col.Name}, Unique: true, Implicit: true,
			})
		}
	}
	return defs
}

func resolveColumns(table core.Table, names []string) ([]int, error) {
	cols := make([]int, len(names))
	for i, name := range names {
		c, ok := table.ColumnIndex(name)
		if !ok {
			return nil, core.Errorf(core.CodeSchema, "no such column: %s.%s", table.Name, name)
		}
		cols[i] = c
	}
	return cols, nil
}

func validateTable(table core.Table) error {
	if len(table.Columns) == 0 {
		return core.Errorf(core.CodeSchema, "table %s has no columns", table.Name)
	}
	seen := make(map[string]bool)
	for _, col := range table.Columns {
		key := strings.ToLower(col.Name)
		if seen[key] {
			return core.Errorf(core.CodeSchema, "duplicate column name: %s", col.Name)
		}
		seen[key] = true
	}
	return nil
}

// addTable installs a table and its implicit indexes.
func (s *Store) addTable(table core.Table) (*TableOp, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	t := newTableOp(table, s)
	var created []string
	for _, def := range implicitIndexes(table) {
		cols, err := resolveColumns(table, def.Columns)
		if err == nil {
			_, err = s.Indexes.CreateIndex(def, cols)
		}
		if err != nil {
			for _, name := range created {
				s.Indexes.DropIndex(name)
			}
			return nil, err
		}
		created = append(created, def.Name)
	}
	s.tables[tableKey(table.Name)] = t
	return t, nil
}

func (s *Store) removeTable(t *TableOp) []*ps.Index {
	dropped := s.Indexes.ForTable(t.Table.Name)
	for _, idx := range dropped {
		s.Indexes.DropIndex(idx.Def.Name)
	}
	delete(s.tables, tableKey(t.Table.Name))
	return dropped
}

// CreateTable creates a table. With ifNotExists an existing table is left
// untouched and created reports false.
func (s *Store) CreateTable(table core.Table, ifNotExists bool) (created bool, err error) {
	if _, exists := s.GetTable(table.Name); exists {
		if ifNotExists {
			return false, nil
		}
		return false, core.Errorf(core.CodeSchema, "table %s already exists", table.Name)
	}

	t, err := s.addTable(table)
	if err != nil {
		return false, err
	}
	s.record(ps.CreateTableChange(table), func() {
		s.removeTable(t)
	})
	return true, nil
}

// DropTable drops a table with its rows and indexes.
func (s *Store) DropTable(name string, ifExists bool) (dropped bool, err error) {
	t, exists := s.GetTable(name)
	if !exists {
		if ifExists {
			return false, nil
		}
		return false, core.Errorf(core.CodeSchema, "no such table: %s", name)
	}

	indexes := s.removeTable(t)
	for _, idx := range indexes {
		if !idx.Def.Implicit {
			s.changes = append(s.changes, ps.DropIndexChange(idx.Def.Name))
			s.undo = append(s.undo, func() {})
		}
	}
	s.record(ps.DropTableChange(t.Table.Name), func() {
		s.tables[tableKey(t.Table.Name)] = t
		for _, idx := range indexes {
			s.Indexes.Restore(idx)
		}
	})
	return true, nil
}

// CreateIndex builds an index over the existing rows of its table.
func (s *Store) CreateIndex(def core.Index, ifNotExists bool) (created bool, err error) {
	if _, exists := s.Indexes.GetIndex(def.Name); exists {
		if ifNotExists {
			return false, nil
		}
		return false, core.Errorf(core.CodeSchema, "index %s already exists", def.Name)
	}

	t, exists := s.GetTable(def.Table)
	if !exists {
		return false, core.Errorf(core.CodeSchema, "no such table: %s", def.Table)
	}
	cols, err := resolveColumns(t.Table, def.Columns)
	if err != nil {
		return false, err
	}
	def.Table = t.Table.Name
	def.Columns = make([]string, len(cols))
	for i, c := range cols {
		def.Columns[i] = t.Table.Columns[c].Name
	}

	idx, err := s.Indexes.CreateIndex(def, cols)
	if err != nil {
		return false, err
	}
	if err := idx.Rebuild(t.Scan()); err != nil {
		s.Indexes.DropIndex(def.Name)
		return false, err
	}

	s.record(ps.CreateIndexChange(def), func() {
		s.Indexes.DropIndex(def.Name)
	})
	return true, nil
}

// DropIndex drops an explicit index.
func (s *Store) DropIndex(name string, ifExists bool) (dropped bool, err error) {
	idx, exists := s.Indexes.GetIndex(name)
	if !exists {
		if ifExists {
			return false, nil
		}
		return false, core.Errorf(core.CodeSchema, "no such index: %s", name)
	}
	if idx.Def.Implicit {
		return false, core.Errorf(core.CodeSchema, "index %s belongs to a constraint of table %s and cannot be dropped", idx.Def.Name, idx.Def.Table)
	}

	if err := s.Indexes.DropIndex(name); err != nil {
		return false, err
	}
	s.record(ps.DropIndexChange(idx.Def.Name), func() {
		s.Indexes.Restore(idx)
	})
	return true, nil
}

// Load replaces the store content with a checkpointed snapshot.
func (s *Store) Load(snap *ps.Snapshot) error {
	s.tables = make(map[string]*TableOp)
	s.Indexes = ps.NewIndexManager()
	s.Commit()

	for _, ts := range snap.Tables {
		t, err := s.addTable(ts.Schema)
		if err != nil {
			return core.Errorf(core.CodeCorruption, "table %s: %v", ts.Schema.Name, core.MessageOf(err))
		}
		for _, r := range ts.Rows {
			if len(r.Values) != len(t.Table.Columns) {
				return core.Errorf(core.CodeCorruption, "row %d of %s has %d values", r.ID, t.Table.Name, len(r.Values))
			}
			t.put(r.ID, r.Values)
		}
	}

	for _, def := range snap.Indexes {
		if err := s.attachIndex(def); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) attachIndex(def core.Index) error {
	t, exists := s.GetTable(def.Table)
	if !exists {
		return core.Errorf(core.CodeCorruption, "index %s refers to missing table %s", def.Name, def.Table)
	}
	cols, err := resolveColumns(t.Table, def.Columns)
	if err != nil {
		return core.Errorf(core.CodeCorruption, "index %s: %v", def.Name, core.MessageOf(err))
	}
	idx, err := s.Indexes.CreateIndex(def, cols)
	if err != nil {
		return core.Errorf(core.CodeCorruption, "index %s: %v", def.Name, core.MessageOf(err))
	}
	return idx.Rebuild(t.Scan())
}

// Apply replays one logged change without recording it.
func (s *Store) Apply(c ps.Change) error {
	switch c.Type {
	case ps.ChangeCreateTable:
		if c.Schema == nil {
			return core.Errorf(core.CodeCorruption, "create_table change without schema")
		}
		_, err := s.addTable(*c.Schema)
		return err
	case ps.ChangeDropTable:
		if t, ok := s.GetTable(c.Table); ok {
			s.removeTable(t)
		}
		return nil
	case ps.ChangeCreateIndex:
		if c.Index == nil {
			return core.Errorf(core.CodeCorruption, "create_index change without definition")
		}
		return s.attachIndex(*c.Index)
	case ps.ChangeDropIndex:
		if _, ok := s.Indexes.GetIndex(c.Name); ok {
			return s.Indexes.DropIndex(c.Name)
		}
		return nil
	case ps.ChangePut, ps.ChangeDelete:
		t, ok := s.GetTable(c.Table)
		if !ok {
			return core.Errorf(core.CodeCorruption, "change for missing table %s", c.Table)
		}
		if c.Type == ps.ChangeDelete {
			t.remove(c.RowID)
			return nil
		}
		row, err := core.FromWireRow(c.Row)
		if err != nil {
			return err
		}
		if len(row) != len(t.Table.Columns) {
			return core.Errorf(core.CodeCorruption, "row %d of %s has %d values", c.RowID, t.Table.Name, len(row))
		}
		t.put(c.RowID, row)
		return nil
	default:
		return core.Errorf(core.CodeCorruption, "unknown change type %q", c.Type)
	}
}
