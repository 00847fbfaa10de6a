package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/decentdb/decentdb/core"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
)

type Result interface {
	Type() ResultType
	Display(w io.Writer)
}

// QueryResult holds the rows of a SELECT, fully materialized.
type QueryResult struct {
	Columns          []ResultColumn
	Rows             [][]core.Value
	RecordsRead      int
	ExecutionTimeSec float64
}

// CommitResult reports what a write or DDL statement did.
type CommitResult struct {
	RowsAffected     int64
	LastInsertID     int64
	TablesCreated    int
	TablesDeleted    int
	IndexesCreated   int
	IndexesDeleted   int
	ExecutionTimeSec float64
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 1 {
		return fmt.Sprintf("%dms", int(secs*1000))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	}
	mins := int(secs / 60)
	remainSecs := int(secs) % 60
	if remainSecs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, remainSecs)
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result CommitResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

// FormatValue renders a value for display; NULL prints as NULL.
func FormatValue(v core.Value) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

func (result QueryResult) Display(w io.Writer) {
	if len(result.Rows) > 0 {
		headers := make([]string, len(result.Columns))
		for i, c := range result.Columns {
			headers[i] = c.Name
		}
		data := NewTable(w)
		data.Header(headers)
		for i, c := range result.Columns {
			if isNumericKind(c.Kind) {
				data.AlignRight(i)
			}
		}
		for _, row := range result.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = FormatValue(v)
			}
			data.Row(cells)
		}
		data.Render()
	}

	fmt.Fprintf(w, "%d rows (%s)\n", len(result.Rows), result.ExecutionTime())
}

func (result CommitResult) Display(w io.Writer) {
	var parts []string

	if result.TablesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) created", result.TablesCreated))
	}
	if result.TablesDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) deleted", result.TablesDeleted))
	}
	if result.IndexesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d index(es) created", result.IndexesCreated))
	}
	if result.IndexesDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d index(es) deleted", result.IndexesDeleted))
	}
	if result.RowsAffected > 0 {
		parts = append(parts, fmt.Sprintf("%d row(s) affected", result.RowsAffected))
	}

	if len(parts) == 0 {
		fmt.Fprintf(w, "OK (%s)\n", result.ExecutionTime())
	} else {
		fmt.Fprintf(w, "%s (%s)\n", strings.Join(parts, ", "), result.ExecutionTime())
	}
}
