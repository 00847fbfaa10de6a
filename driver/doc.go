// Package driver registers DecentDB with database/sql under the name
// "decentdb".
//
//	import _ "github.com/decentdb/decentdb/driver"
//
//	db, err := sql.Open("decentdb", "file:/var/lib/app/data?sync=normal")
//	rows, err := db.Query("SELECT name FROM users WHERE id = $1", 42)
//
// Placeholders are $1..$N only; '?' and '@name' are rejected at prepare
// time. DECIMAL values travel as Decimal, time.Time arguments are bound as
// epoch milliseconds (UTC).
//
// All connections from one sql.DB share a single database handle. While a
// transaction is open the other connections wait for it to finish.
//
// Checkpoint and schema introspection are reachable through sql.Conn.Raw:
//
//	err = conn.Raw(func(dc any) error {
//	    return dc.(*driver.Conn).Checkpoint()
//	})
package driver
