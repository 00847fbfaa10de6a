package driver

import (
	"context"
	"database/sql"
	sqldriver "database/sql/driver"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/decentdb/decentdb"
	"github.com/decentdb/decentdb/core"
)

// DriverName is the name the driver is registered under.
const DriverName = "decentdb"

func init() {
	sql.Register(DriverName, &Driver{})
}

// Decimal is accepted as an argument and returned for DECIMAL columns.
type Decimal = core.Decimal

type Driver struct{}

func (d *Driver) Open(dsn string) (sqldriver.Conn, error) {
	connector, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector parses the DSN. Accepted forms are a bare path, ":memory:",
// and "file:/path/to/dir?sync=normal&checkpoint_bytes=0".
func (d *Driver) OpenConnector(dsn string) (sqldriver.Connector, error) {
	location, options, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return &connector{driver: d, location: location, options: options}, nil
}

// ParseDSN splits a DSN into the location and option string passed to
// decentdb.Open.
func ParseDSN(dsn string) (location, options string, err error) {
	if !strings.HasPrefix(dsn, "file:") {
		location, options, _ = strings.Cut(dsn, "?")
		return location, options, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", core.Errorf(core.CodeConfig, "invalid DSN %q: %v", dsn, err)
	}
	location = u.Path
	if location == "" {
		location = u.Opaque
	}
	return location, u.RawQuery, nil
}

// connector owns the database handle shared by every pooled connection.
// The engine has a single transaction scope, so the connection that opens a
// transaction holds the gate until it commits or rolls back and the others
// wait for it.
type connector struct {
	driver   *Driver
	location string
	options  string

	mu     sync.Mutex
	db     *decentdb.DB
	closed bool

	gate  sync.Mutex
	owner atomic.Pointer[Conn]
}

func (c *connector) Connect(ctx context.Context) (sqldriver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, core.Errorf(core.CodeInvalidState, "connector is closed")
	}
	if c.db == nil {
		db, err := decentdb.Open(c.location, c.options)
		if err != nil {
			return nil, err
		}
		core.Logf("[DEBUG] driver opened %q", c.location)
		c.db = db
	}
	return &Conn{connector: c, db: c.db}, nil
}

func (c *connector) Driver() sqldriver.Driver {
	return c.driver
}

// Close is called by sql.DB.Close.
func (c *connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// enter serializes conn against any transaction owned by another
// connection. The returned func releases the gate.
func (c *connector) enter(conn *Conn) func() {
	if c.owner.Load() == conn {
		return func() {}
	}
	c.gate.Lock()
	return c.gate.Unlock
}
