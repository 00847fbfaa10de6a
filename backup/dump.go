package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/decentdb/decentdb"
	"github.com/decentdb/decentdb/core"
)

// FormatVersion is written in the header line of every dump.
const FormatVersion = 1

// record is one line of a dump. Tables come first, then their explicit
// indexes, then rows.
type record struct {
	Type    string           `json:"type"`
	Version int              `json:"version,omitempty"`
	Table   *core.Table      `json:"table,omitempty"`
	Index   *core.Index      `json:"index,omitempty"`
	Name    string           `json:"name,omitempty"` // table a row belongs to
	Values  []core.WireValue `json:"values,omitempty"`
}

const (
	recordHeader = "header"
	recordTable  = "table"
	recordIndex  = "index"
	recordRow    = "row"
)

// Stats counts what a dump or restore processed.
type Stats struct {
	Tables  int
	Indexes int
	Rows    int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d table(s), %d index(es), %d row(s)", s.Tables, s.Indexes, s.Rows)
}

// Dump writes a logical copy of db to w as JSON lines. Each table is read
// by a single statement; writes made by other goroutines between tables may
// or may not be included.
func Dump(ctx context.Context, db *decentdb.DB, w io.Writer) (Stats, error) {
	var stats Stats
	tables, indexes, err := db.Schema()
	if err != nil {
		return stats, err
	}

	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)
	if err := enc.Encode(record{Type: recordHeader, Version: FormatVersion}); err != nil {
		return stats, err
	}

	for i := range tables {
		if err := enc.Encode(record{Type: recordTable, Table: &tables[i]}); err != nil {
			return stats, err
		}
		stats.Tables++
	}
	for i := range indexes {
		if indexes[i].Implicit {
			continue
		}
		if err := enc.Encode(record{Type: recordIndex, Index: &indexes[i]}); err != nil {
			return stats, err
		}
		stats.Indexes++
	}

	for _, t := range tables {
		n, err := dumpRows(ctx, db, t, enc)
		stats.Rows += n
		if err != nil {
			return stats, fmt.Errorf("failed to dump table %s: %w", t.Name, err)
		}
	}

	if err := out.Flush(); err != nil {
		return stats, err
	}
	core.Logf("[DEBUG] dumped %s", stats)
	return stats, nil
}

func dumpRows(ctx context.Context, db *decentdb.DB, t core.Table, enc *json.Encoder) (int, error) {
	stmt, err := db.Prepare("SELECT * FROM " + t.Name)
	if err != nil {
		return 0, err
	}
	defer stmt.Finalize()

	rows := 0
	for {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		hasRow, err := stmt.Step()
		if err != nil {
			return rows, err
		}
		if !hasRow {
			return rows, nil
		}
		view, err := stmt.RowView()
		if err != nil {
			return rows, err
		}
		values, err := view.Copy()
		if err != nil {
			return rows, err
		}
		if err := enc.Encode(record{Type: recordRow, Name: t.Name, Values: core.ToWireRow(values)}); err != nil {
			return rows, err
		}
		rows++
	}
}

// DumpTo writes a dump to a local path, file:// or s3:// location.
func DumpTo(ctx context.Context, db *decentdb.DB, location string, cfg *S3Config) (Stats, error) {
	w, err := OpenWriter(ctx, location, cfg)
	if err != nil {
		return Stats{}, err
	}

	stats, err := Dump(ctx, db, w)
	var result error
	if err != nil {
		result = multierror.Append(result, err)
	}
	if err := w.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close %s: %w", location, err))
	}
	return stats, result
}

// createTableSQL renders the DDL that recreates t.
func createTableSQL(t core.Table) string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		def := c.Name + " " + c.DeclType()
		switch {
		case c.PrimaryKey:
			def += " PRIMARY KEY"
		case c.NotNull:
			def += " NOT NULL"
		}
		if c.Unique && !c.PrimaryKey {
			def += " UNIQUE"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", t.Name, strings.Join(defs, ", "))
}

func createIndexSQL(idx core.Index) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, idx.Name, idx.Table, strings.Join(idx.Columns, ", "))
}

func insertSQL(t core.Table) string {
	names := make([]string, len(t.Columns))
	params := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name, strings.Join(names, ", "), strings.Join(params, ", "))
}
