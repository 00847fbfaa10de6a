package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/decentdb/decentdb"
	"github.com/decentdb/decentdb/core"
)

// Restore replays a dump into db inside one transaction. The tables in the
// dump must not exist yet. On any failure the transaction is rolled back
// and nothing of the dump remains.
func Restore(ctx context.Context, db *decentdb.DB, r io.Reader) (Stats, error) {
	dec := json.NewDecoder(r)

	var header record
	if err := dec.Decode(&header); err != nil {
		return Stats{}, core.Errorf(core.CodeCorruption, "invalid dump header: %v", err)
	}
	if header.Type != recordHeader {
		return Stats{}, core.Errorf(core.CodeCorruption, "dump does not start with a header")
	}
	if header.Version > FormatVersion {
		return Stats{}, core.Errorf(core.CodeCorruption, "unsupported dump version %d", header.Version)
	}

	if _, err := db.Exec("BEGIN"); err != nil {
		return Stats{}, err
	}

	stats, err := restoreRecords(ctx, db, dec)
	if err != nil {
		var result error = multierror.Append(nil, err)
		if _, rbErr := db.Exec("ROLLBACK"); rbErr != nil {
			result = multierror.Append(result, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return Stats{}, result
	}

	if _, err := db.Exec("COMMIT"); err != nil {
		return Stats{}, err
	}
	core.Logf("[DEBUG] restored %s", stats)
	return stats, nil
}

type restoreTable struct {
	table  core.Table
	insert *decentdb.Stmt
}

func restoreRecords(ctx context.Context, db *decentdb.DB, dec *json.Decoder) (Stats, error) {
	var stats Stats
	tables := make(map[string]*restoreTable)
	defer func() {
		for _, t := range tables {
			if t.insert != nil {
				t.insert.Finalize()
			}
		}
	}()

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var rec record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, core.Errorf(core.CodeCorruption, "record %d: %v", line, err)
		}

		switch rec.Type {
		case recordTable:
			if rec.Table == nil {
				return stats, core.Errorf(core.CodeCorruption, "record %d: table record without a table", line)
			}
			if _, err := db.Exec(createTableSQL(*rec.Table)); err != nil {
				return stats, fmt.Errorf("record %d: %w", line, err)
			}
			tables[strings.ToLower(rec.Table.Name)] = &restoreTable{table: *rec.Table}
			stats.Tables++

		case recordIndex:
			if rec.Index == nil {
				return stats, core.Errorf(core.CodeCorruption, "record %d: index record without an index", line)
			}
			if _, err := db.Exec(createIndexSQL(*rec.Index)); err != nil {
				return stats, fmt.Errorf("record %d: %w", line, err)
			}
			stats.Indexes++

		case recordRow:
			t, ok := tables[strings.ToLower(rec.Name)]
			if !ok {
				return stats, core.Errorf(core.CodeCorruption, "record %d: row for unknown table %q", line, rec.Name)
			}
			if err := restoreRow(db, t, rec.Values); err != nil {
				return stats, fmt.Errorf("record %d: %w", line, err)
			}
			stats.Rows++

		default:
			return stats, core.Errorf(core.CodeCorruption, "record %d: unknown record type %q", line, rec.Type)
		}
	}
}

func restoreRow(db *decentdb.DB, t *restoreTable, wire []core.WireValue) error {
	if len(wire) != len(t.table.Columns) {
		return core.Errorf(core.CodeCorruption, "row for %s has %d values, want %d", t.table.Name, len(wire), len(t.table.Columns))
	}
	values, err := core.FromWireRow(wire)
	if err != nil {
		return err
	}

	if t.insert == nil {
		if t.insert, err = db.Prepare(insertSQL(t.table)); err != nil {
			return err
		}
	}
	_, _, err = t.insert.StepWithParams(values)
	return err
}

// RestoreFrom reads a dump from a local path, file://, http(s):// or s3://
// location.
func RestoreFrom(ctx context.Context, db *decentdb.DB, location string, cfg *S3Config) (Stats, error) {
	r, err := OpenReader(ctx, location, cfg)
	if err != nil {
		return Stats{}, err
	}
	defer r.Close()
	return Restore(ctx, db, r)
}
