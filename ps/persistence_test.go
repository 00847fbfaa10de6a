package ps

import (
	"testing"

	"github.com/decentdb/decentdb/core"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

func TestNewMemoryPersistence(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create memory persistence: %v", err)
	}

	if !persistence.IsInitialized() {
		t.Error("Expected persistence to be initialized")
	}
	if !persistence.IsMemory() {
		t.Error("Expected memory persistence to report IsMemory")
	}
}

func TestPersistenceNotInitialized(t *testing.T) {
	var persistence Persistence

	if persistence.IsInitialized() {
		t.Error("Expected uninitialized persistence to return false")
	}

	err := persistence.ensureInitialized()
	if err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestInitWritesMetaOnce(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	meta, err := persistence.Init(testIdentity)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if meta.Format != formatLatest {
		t.Errorf("Expected format %d, got %d", formatLatest, meta.Format)
	}

	again, err := persistence.Init(testIdentity)
	if err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	if again.ID != meta.ID {
		t.Errorf("Expected stable database id %s, got %s", meta.ID, again.ID)
	}

	history, err := persistence.History(0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("Expected 1 commit, got %d", len(history))
	}
}

func TestFilePersistenceReopen(t *testing.T) {
	dir := t.TempDir()

	p1, err := NewFilePersistence(dir, 16)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	meta, err := p1.Init(testIdentity)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	table := core.Table{Name: "users", Columns: []core.Column{{Name: "id", Type: core.IntType, PrimaryKey: true}}}
	_, err = p1.Checkpoint(Meta{ID: meta.ID, Format: formatLatest, Generation: 1}, []Change{
		CreateTableChange(table),
		PutChange("users", 1, []core.Value{core.NewInt64(7)}),
	}, testIdentity)
	if err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}

	p2, err := NewFilePersistence(dir, 0)
	if err != nil {
		t.Fatalf("Failed to reopen file persistence: %v", err)
	}
	snap, err := p2.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if snap.Meta.ID != meta.ID {
		t.Errorf("Expected database id %s, got %s", meta.ID, snap.Meta.ID)
	}
	if len(snap.Tables) != 1 || len(snap.Tables[0].Rows) != 1 {
		t.Fatalf("Expected 1 table with 1 row, got %+v", snap.Tables)
	}
	if !core.Equal(snap.Tables[0].Rows[0].Values[0], core.NewInt64(7)) {
		t.Errorf("Unexpected row value %v", snap.Tables[0].Rows[0].Values[0])
	}
}

func TestLatestTransaction(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	if txn := persistence.LatestTransaction(); txn.Id != "" {
		t.Errorf("Expected empty transaction before any commit, got %v", txn)
	}

	if _, err := persistence.Init(testIdentity); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	txn := persistence.LatestTransaction()
	if txn.Id == "" {
		t.Fatal("Expected a transaction id after Init")
	}
	if txn.Author != "test <test@test.com>" {
		t.Errorf("Unexpected author %q", txn.Author)
	}
}
