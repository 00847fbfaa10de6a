package ps

import (
	"github.com/decentdb/decentdb/core"
)

type ChangeType string

const (
	ChangeCreateTable ChangeType = "create_table"
	ChangeDropTable   ChangeType = "drop_table"
	ChangeCreateIndex ChangeType = "create_index"
	ChangeDropIndex   ChangeType = "drop_index"
	ChangePut         ChangeType = "put"
	ChangeDelete      ChangeType = "delete"
)

// Change is one logical mutation. Committed transactions are logged as a
// list of changes and folded into the store on checkpoint.
type Change struct {
	Type   ChangeType       `json:"t"`
	Table  string           `json:"table,omitempty"`
	Schema *core.Table      `json:"schema,omitempty"`
	Index  *core.Index      `json:"index,omitempty"`
	Name   string           `json:"name,omitempty"` // dropped index
	RowID  int64            `json:"rowid,omitempty"`
	Row    []core.WireValue `json:"row,omitempty"`
}

func CreateTableChange(table core.Table) Change {
	return Change{Type: ChangeCreateTable, Table: table.Name, Schema: &table}
}

func DropTableChange(table string) Change {
	return Change{Type: ChangeDropTable, Table: table}
}

func CreateIndexChange(index core.Index) Change {
	return Change{Type: ChangeCreateIndex, Table: index.Table, Index: &index}
}

func DropIndexChange(name string) Change {
	return Change{Type: ChangeDropIndex, Name: name}
}

func PutChange(table string, rowID int64, row []core.Value) Change {
	return Change{Type: ChangePut, Table: table, RowID: rowID, Row: core.ToWireRow(row)}
}

func DeleteChange(table string, rowID int64) Change {
	return Change{Type: ChangeDelete, Table: table, RowID: rowID}
}
