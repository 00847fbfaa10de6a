package ps

import (
	"testing"

	"github.com/decentdb/decentdb/core"
)

func TestTransactionBuilder(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	txn, err := persistence.BeginTransaction()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	if err := txn.AddWrite("rows/users/1", []byte(`[{"k":1,"i":1}]`)); err != nil {
		t.Fatalf("Failed to add write: %v", err)
	}
	if err := txn.AddWrite("rows/users/2", []byte(`[{"k":1,"i":2}]`)); err != nil {
		t.Fatalf("Failed to add write: %v", err)
	}

	if txn.OperationCount() != 2 {
		t.Errorf("Expected 2 operations, got %d", txn.OperationCount())
	}

	result, err := txn.Commit(testIdentity, "")
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	if result.Id == "" {
		t.Error("Expected transaction ID to be set")
	}

	entries, err := persistence.ListEntriesDirect("rows/users")
	if err != nil {
		t.Fatalf("ListEntriesDirect failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(entries))
	}
}

func TestTransactionBuilderRollback(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	txn, err := persistence.BeginTransaction()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	txn.AddWrite("meta.json", []byte(`{}`))
	txn.Rollback()

	if err := txn.AddWrite("meta.json", []byte(`{}`)); err == nil {
		t.Error("Expected error writing to a rolled back transaction")
	}
	if _, err := txn.Commit(testIdentity, ""); err == nil {
		t.Error("Expected error committing a rolled back transaction")
	}
	if persistence.LatestTransaction().Id != "" {
		t.Error("Expected no commit after rollback")
	}
}

func TestTransactionBuilderCoalesce(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	txn, _ := persistence.BeginTransaction()
	txn.AddWrite("rows/t/1", []byte("a"))
	txn.AddWrite("rows/t/2", []byte("b"))
	txn.AddWrite("rows/t/1", []byte("c"))
	if _, err := txn.Commit(testIdentity, ""); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	data, err := persistence.ReadFileDirect("rows/t/1")
	if err != nil {
		t.Fatalf("ReadFileDirect failed: %v", err)
	}
	if string(data) != "c" {
		t.Errorf("Expected last write to win, got %q", data)
	}

	// drop the directory, then write a new file into it within the same batch
	txn, _ = persistence.BeginTransaction()
	txn.AddWrite("rows/t/3", []byte("d"))
	txn.AddDeleteTree("rows/t")
	txn.AddWrite("rows/t/4", []byte("e"))
	if _, err := txn.Commit(testIdentity, ""); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	entries, err := persistence.ListEntriesDirect("rows/t")
	if err != nil {
		t.Fatalf("ListEntriesDirect failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "4" {
		t.Errorf("Expected only entry 4 to survive, got %+v", entries)
	}
}

func TestTransactionBuilderDeleteLastFileRemovesDirectory(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	txn, _ := persistence.BeginTransaction()
	txn.AddWrite("meta.json", []byte("{}"))
	txn.AddWrite("indexes/a.index", []byte("{}"))
	txn.Commit(testIdentity, "")

	txn, _ = persistence.BeginTransaction()
	txn.AddDelete("indexes/a.index")
	if _, err := txn.Commit(testIdentity, ""); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	root, err := persistence.ListEntriesDirect("")
	if err != nil {
		t.Fatalf("ListEntriesDirect failed: %v", err)
	}
	for _, e := range root {
		if e.Name == "indexes" {
			t.Error("Expected empty indexes directory to be pruned")
		}
	}
}

func TestCheckpointChanges(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	meta, err := persistence.Init(testIdentity)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	meta.Generation++

	users := core.Table{Name: "Users", Columns: []core.Column{
		{Name: "id", Type: core.IntType, PrimaryKey: true, NotNull: true},
		{Name: "name", Type: core.TextType},
	}}
	byName := core.Index{Name: "idx_name", Table: "Users", Columns: []string{"name"}}

	_, err = persistence.Checkpoint(meta, []Change{
		CreateTableChange(users),
		CreateIndexChange(byName),
		PutChange("Users", 1, []core.Value{core.NewInt64(1), core.NewTextString("ann")}),
		PutChange("Users", 2, []core.Value{core.NewInt64(2), core.NewTextString("bob")}),
		PutChange("Users", 3, []core.Value{core.NewInt64(3), core.NewNull()}),
		DeleteChange("Users", 2),
	}, testIdentity)
	if err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}

	snap, err := persistence.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(snap.Tables) != 1 {
		t.Fatalf("Expected 1 table, got %d", len(snap.Tables))
	}
	rows := snap.Tables[0].Rows
	if len(rows) != 2 || rows[0].ID != 1 || rows[1].ID != 3 {
		t.Fatalf("Unexpected rows %+v", rows)
	}
	if !core.IsNull(rows[1].Values[1]) {
		t.Errorf("Expected NULL name, got %v", rows[1].Values[1])
	}
	if len(snap.Indexes) != 1 || snap.Indexes[0].Name != "idx_name" {
		t.Errorf("Unexpected indexes %+v", snap.Indexes)
	}

	// drop and recreate: the old rows must not come back
	_, err = persistence.Checkpoint(meta, []Change{
		DropIndexChange("idx_name"),
		DropTableChange("Users"),
		CreateTableChange(users),
	}, testIdentity)
	if err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}

	snap, err = persistence.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(snap.Tables) != 1 || len(snap.Tables[0].Rows) != 0 {
		t.Errorf("Expected recreated empty table, got %+v", snap.Tables)
	}
	if len(snap.Indexes) != 0 {
		t.Errorf("Expected no indexes, got %+v", snap.Indexes)
	}
}
