package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/decentdb/decentdb"
	"github.com/decentdb/decentdb/core"
	"github.com/decentdb/decentdb/db"
)

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	var file string
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "exec [sql]",
		Short: "Execute SQL statements",
		Long: `Execute one or more semicolon separated SQL statements, given as the
argument or read from --file ("-" reads stdin), and print their results.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			switch {
			case len(args) == 1 && file != "":
				return fmt.Errorf("give either SQL or --file, not both")
			case len(args) == 1:
				text = args[0]
			case file == "-":
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(data)
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				text = string(data)
			default:
				return fmt.Errorf("nothing to execute")
			}

			database, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer database.Close()
			return execScript(database, text, rootOpts.Format, keepGoing, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "SQL file to execute")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "continue after a failing statement")
	return cmd
}

// execScript runs every statement of text in order.
func execScript(database *decentdb.DB, text, format string, keepGoing bool, w io.Writer) error {
	failed := 0
	for i, stmt := range splitStatements(text) {
		result, err := runStatement(database, stmt)
		if err != nil {
			if !keepGoing {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
			fmt.Fprintf(w, "[%d] ✗ %s: %v\n", i+1, truncate(stmt, 50), err)
			failed++
			continue
		}
		if err := render(w, result, format); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d statement(s) failed", failed)
	}
	return nil
}

// runStatement executes one statement and collects its whole result.
func runStatement(database *decentdb.DB, text string) (db.Result, error) {
	start := time.Now()
	stmt, err := database.Prepare(text)
	if err != nil {
		return nil, err
	}
	defer stmt.Finalize()

	columns := make([]db.ResultColumn, stmt.ColumnCount())
	for i := range columns {
		name, _ := stmt.ColumnName(i)
		kind, _ := stmt.ColumnType(i)
		decl, _ := stmt.ColumnDeclType(i)
		columns[i] = db.ResultColumn{Name: name, Kind: kind, DeclType: decl}
	}

	var rows [][]core.Value
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, err
		}
		if !hasRow {
			break
		}
		view, err := stmt.RowView()
		if err != nil {
			return nil, err
		}
		row, err := view.Copy()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	elapsed := time.Since(start).Seconds()
	log.Printf("[DEBUG] %q took %s", truncate(text, 50), time.Since(start))

	if len(columns) > 0 {
		return db.QueryResult{Columns: columns, Rows: rows, RecordsRead: len(rows), ExecutionTimeSec: elapsed}, nil
	}
	return db.CommitResult{
		RowsAffected:     stmt.RowsAffected(),
		LastInsertID:     stmt.LastInsertID(),
		ExecutionTimeSec: elapsed,
	}, nil
}

type jsonQuery struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type jsonCommit struct {
	RowsAffected int64 `json:"rows_affected"`
	LastInsertID int64 `json:"last_insert_id"`
}

func render(w io.Writer, result db.Result, format string) error {
	if format != "json" {
		result.Display(w)
		return nil
	}

	enc := json.NewEncoder(w)
	switch r := result.(type) {
	case db.QueryResult:
		out := jsonQuery{Columns: make([]string, len(r.Columns)), Rows: make([][]any, len(r.Rows))}
		for i, c := range r.Columns {
			out.Columns[i] = c.Name
		}
		for i, row := range r.Rows {
			out.Rows[i] = make([]any, len(row))
			for j, v := range row {
				out.Rows[i][j] = jsonValue(v)
			}
		}
		return enc.Encode(out)
	case db.CommitResult:
		return enc.Encode(jsonCommit{RowsAffected: r.RowsAffected, LastInsertID: r.LastInsertID})
	}
	return fmt.Errorf("unexpected result %T", result)
}

// jsonValue maps a value to its natural JSON form. Decimals stay strings so
// no digits are lost; blobs are hex.
func jsonValue(v core.Value) any {
	switch x := v.(type) {
	case nil, core.Null:
		return nil
	case core.Int64:
		return int64(x)
	case core.Bool:
		return bool(x)
	case core.Float64:
		return float64(x)
	case core.Text:
		return string(x)
	case core.Blob:
		return hex.EncodeToString(x)
	}
	return v.String()
}

// splitStatements splits SQL content into individual statements, skipping
// -- comments and semicolons inside quotes.
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if ch == '\'' || ch == '"' {
			if !inString {
				inString = true
				stringChar = ch
			} else if ch == stringChar {
				inString = false
			}
		}

		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i < len(content) && content[i] != '\n' {
				i++
			}
			continue
		}

		if !inString && ch == ';' {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
