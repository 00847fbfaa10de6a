package decentdb

import (
	"testing"

	"github.com/decentdb/decentdb/core"
)

// TestFunc is the signature for tests that run against any location
type TestFunc func(t *testing.T, d *DB)

// runWithBothLocations runs a test function against a memory and a file database
func runWithBothLocations(t *testing.T, testFunc TestFunc) {
	t.Run("Memory", func(t *testing.T) {
		d, err := Open(MemoryLocation, "")
		if err != nil {
			t.Fatalf("Failed to open memory database: %v", err)
		}
		defer d.Close()
		testFunc(t, d)
	})

	t.Run("File", func(t *testing.T) {
		d, err := Open(t.TempDir(), "sync=normal")
		if err != nil {
			t.Fatalf("Failed to open file database: %v", err)
		}
		defer d.Close()
		testFunc(t, d)
	})
}

// queryStrings runs a query and renders every value as text
func queryStrings(t *testing.T, d *DB, text string, params ...core.Value) [][]string {
	t.Helper()
	stmt, err := d.Prepare(text)
	if err != nil {
		t.Fatalf("Failed to prepare %q: %v", text, err)
	}
	defer stmt.Finalize()

	var rows [][]string
	view, hasRow, err := stmt.StepWithParams(params)
	for err == nil && hasRow {
		values, copyErr := view.Copy()
		if copyErr != nil {
			t.Fatalf("Failed to copy row: %v", copyErr)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = v.String()
		}
		rows = append(rows, row)

		if hasRow, err = stmt.Step(); err == nil && hasRow {
			view, err = stmt.RowView()
		}
	}
	if err != nil {
		t.Fatalf("Failed to run %q: %v", text, err)
	}
	return rows
}

// TestIntegrationWorkflow tests a complete database workflow
func TestIntegrationWorkflow(t *testing.T) {
	runWithBothLocations(t, func(t *testing.T, d *DB) {

		if _, err := d.Exec("CREATE TABLE employees (id INT PRIMARY KEY, name TEXT, department TEXT, salary INT)"); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
		if _, err := d.Exec("CREATE INDEX idx_department ON employees (department)"); err != nil {
			t.Fatalf("Failed to create index: %v", err)
		}

		employees := []string{
			"INSERT INTO employees (id, name, department, salary) VALUES (1, 'Alice', 'Engineering', 80000)",
			"INSERT INTO employees (id, name, department, salary) VALUES (2, 'Bob', 'Engineering', 75000)",
			"INSERT INTO employees (id, name, department, salary) VALUES (3, 'Charlie', 'Sales', 60000)",
			"INSERT INTO employees (id, name, department, salary) VALUES (4, 'Diana', 'Marketing', 65000)",
			"INSERT INTO employees (id, name, department, salary) VALUES (5, 'Eve', 'Engineering', 90000)",
		}
		for _, sql := range employees {
			if _, err := d.Exec(sql); err != nil {
				t.Fatalf("Failed to insert: %v", err)
			}
		}

		rows := queryStrings(t, d, "SELECT COUNT(*) FROM employees")
		if rows[0][0] != "5" {
			t.Errorf("Expected 5 employees, got %s", rows[0][0])
		}

		rows = queryStrings(t, d, "SELECT name FROM employees ORDER BY salary DESC LIMIT 3")
		if len(rows) != 3 || rows[0][0] != "Eve" {
			t.Errorf("Expected 3 rows starting with Eve, got %v", rows)
		}

		rows = queryStrings(t, d, "SELECT id FROM employees WHERE salary > $1", core.NewInt64(70000))
		if len(rows) != 3 {
			t.Errorf("Expected 3 employees with salary > 70000, got %d", len(rows))
		}

		rows = queryStrings(t, d, "SELECT name FROM employees WHERE department = $1 ORDER BY name", core.NewTextString("Engineering"))
		if len(rows) != 3 || rows[0][0] != "Alice" {
			t.Errorf("Expected Alice, Bob and Eve, got %v", rows)
		}

		n, err := d.Exec("UPDATE employees SET salary = 95000 WHERE id = 5")
		if err != nil {
			t.Fatalf("Failed to update: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 row updated, got %d", n)
		}

		rows = queryStrings(t, d, "SELECT salary FROM employees WHERE id = 5")
		if rows[0][0] != "95000" {
			t.Errorf("Expected updated salary 95000, got %s", rows[0][0])
		}

		if _, err := d.Exec("DELETE FROM employees WHERE id = 3"); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}

		rows = queryStrings(t, d, "SELECT COUNT(*) FROM employees")
		if rows[0][0] != "4" {
			t.Errorf("Expected 4 employees after delete, got %s", rows[0][0])
		}

		if err := d.Checkpoint(); err != nil {
			t.Fatalf("Failed to checkpoint: %v", err)
		}
		rows = queryStrings(t, d, "SELECT COUNT(*) FROM employees WHERE department = 'Engineering'")
		if rows[0][0] != "3" {
			t.Errorf("Expected 3 engineers after checkpoint, got %s", rows[0][0])
		}
	})
}

// TestIntegrationAggregates tests aggregate functions
func TestIntegrationAggregates(t *testing.T) {
	runWithBothLocations(t, func(t *testing.T, d *DB) {

		d.Exec("CREATE TABLE orders (id INT PRIMARY KEY, customer TEXT, amount DECIMAL(10,2), region TEXT)")

		orders := []string{
			"INSERT INTO orders (id, customer, amount, region) VALUES (1, 'Acme', 1000.50, 'East')",
			"INSERT INTO orders (id, customer, amount, region) VALUES (2, 'Beta', 2000, 'West')",
			"INSERT INTO orders (id, customer, amount, region) VALUES (3, 'Acme', 1500.25, 'East')",
			"INSERT INTO orders (id, customer, amount, region) VALUES (4, 'Gamma', 3000, 'West')",
			"INSERT INTO orders (id, customer, amount, region) VALUES (5, 'Beta', 500, 'East')",
		}
		for _, sql := range orders {
			if _, err := d.Exec(sql); err != nil {
				t.Fatalf("Failed to insert order: %v", err)
			}
		}

		rows := queryStrings(t, d, "SELECT SUM(amount) FROM orders")
		if rows[0][0] != "8000.75" {
			t.Errorf("Expected SUM of 8000.75, got %s", rows[0][0])
		}

		rows = queryStrings(t, d, "SELECT MIN(amount), MAX(amount) FROM orders WHERE region = 'East'")
		if rows[0][0] != "500.00" || rows[0][1] != "1500.25" {
			t.Errorf("Expected MIN 500.00 and MAX 1500.25, got %v", rows[0])
		}

		rows = queryStrings(t, d, "SELECT COUNT(*) FROM orders WHERE customer = 'Acme'")
		if rows[0][0] != "2" {
			t.Errorf("Expected 2 Acme orders, got %s", rows[0][0])
		}

		rows = queryStrings(t, d, "SELECT AVG(amount) FROM orders WHERE region = 'West'")
		if rows[0][0] != "2500" {
			t.Errorf("Expected AVG of 2500, got %s", rows[0][0])
		}
	})
}

// TestIntegrationTransactions tests explicit transactions
func TestIntegrationTransactions(t *testing.T) {
	runWithBothLocations(t, func(t *testing.T, d *DB) {

		d.Exec("CREATE TABLE ledger (id INTEGER PRIMARY KEY, entry TEXT NOT NULL)")

		d.Exec("BEGIN")
		d.Exec("INSERT INTO ledger (entry) VALUES ('kept')")
		if _, err := d.Exec("COMMIT"); err != nil {
			t.Fatalf("Failed to commit: %v", err)
		}

		d.Exec("BEGIN")
		d.Exec("INSERT INTO ledger (entry) VALUES ('discarded')")
		if _, err := d.Exec("INSERT INTO ledger (entry) VALUES (NULL)"); err == nil {
			t.Error("Expected NOT NULL violation")
		}
		if !d.InTransaction() {
			t.Error("Expected a failed statement to leave the transaction open")
		}
		if _, err := d.Exec("ROLLBACK"); err != nil {
			t.Fatalf("Failed to roll back: %v", err)
		}

		rows := queryStrings(t, d, "SELECT entry FROM ledger")
		if len(rows) != 1 || rows[0][0] != "kept" {
			t.Errorf("Expected only the committed entry, got %v", rows)
		}
	})
}
