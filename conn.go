package classicpg

import (
	"context"

	"github.com/classicpg/classicpg-go/classicconn"
)

// ConnConfig contains all the options used to establish a connection.
type ConnConfig struct {
	classicconn.Config

	// Tracer, if set, is notified of query and connect lifecycle events.
	Tracer QueryTracer

	createdByParseConfig bool // Used to enforce created by ParseConfig rule.
}

// ParseConfig creates a ConnConfig from a connection string. See
// [classicconn.ParseConfig] for the format.
func ParseConfig(connString string) (*ConnConfig, error) {
	config, err := classicconn.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	return &ConnConfig{
		Config:               *config,
		createdByParseConfig: true,
	}, nil
}

// Conn is a classic protocol connection. It is cheap to create on top of an
// established session and shares no mutable protocol state with the engine:
// all wire handling lives in *classicconn.ClassicConn.
type Conn struct {
	classicConn *classicconn.ClassicConn
	config      *ConnConfig
}

// Connect establishes a connection using connString.
func Connect(ctx context.Context, connString string) (*Conn, error) {
	connConfig, err := ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	return ConnectConfig(ctx, connConfig)
}

// ConnectConfig establishes a connection using config. config must have been
// created by [ParseConfig].
func ConnectConfig(ctx context.Context, config *ConnConfig) (c *Conn, err error) {
	// Default values are set in ParseConfig. Enforce initial creation by
	// ParseConfig rather than setting defaults from zero values.
	if !config.createdByParseConfig {
		panic("config must be created by ParseConfig")
	}

	if connectTracer, ok := config.Tracer.(ConnectTracer); ok {
		ctx = connectTracer.TraceConnectStart(ctx, TraceConnectStartData{ConnConfig: config})
		defer func() {
			connectTracer.TraceConnectEnd(ctx, TraceConnectEndData{Conn: c, Err: err})
		}()
	}

	classicConn, err := classicconn.ConnectConfig(ctx, &config.Config)
	if err != nil {
		return nil, err
	}

	return &Conn{classicConn: classicConn, config: config}, nil
}

// Engine returns the underlying protocol engine. This is rarely necessary.
func (c *Conn) Engine() *classicconn.ClassicConn {
	return c.classicConn
}

// Config returns a copy of config that was used to establish this
// connection.
func (c *Conn) Config() *ConnConfig {
	newConfig := new(ConnConfig)
	*newConfig = *c.config
	return newConfig
}

// IsOpen reports whether the connection can still accept operations.
func (c *Conn) IsOpen() bool {
	return c.classicConn.IsOpen()
}

// Close releases the connection. It is safe to call Close more than once.
func (c *Conn) Close() error {
	return c.classicConn.Close()
}

// User returns the user name this connection was established with.
func (c *Conn) User() string {
	return c.config.Config.User
}

// Database returns the database name this connection was established with.
func (c *Conn) Database() string {
	return c.config.Config.Database
}

// Exec executes sql and returns its command tag. sql must be a single simple
// query statement of at most 8192 bytes.
func (c *Conn) Exec(ctx context.Context, sql string) (classicconn.CommandTag, error) {
	if c.config.Tracer != nil {
		ctx = c.config.Tracer.TraceQueryStart(ctx, c, TraceQueryStartData{SQL: sql})
	}

	result, err := c.classicConn.Exec(ctx, sql)

	var tag classicconn.CommandTag
	if result != nil {
		tag = result.CommandTag
	}
	if c.config.Tracer != nil {
		c.config.Tracer.TraceQueryEnd(ctx, c, TraceQueryEndData{CommandTag: tag, Err: err})
	}
	if err != nil {
		return classicconn.CommandTag{}, err
	}
	return tag, nil
}

// Query executes sql and returns a Rows iterator over the single result
// group. The entire response is drained before Query returns; iteration
// never touches the wire.
func (c *Conn) Query(ctx context.Context, sql string) (*Rows, error) {
	if c.config.Tracer != nil {
		ctx = c.config.Tracer.TraceQueryStart(ctx, c, TraceQueryStartData{SQL: sql})
	}

	result, err := c.classicConn.Exec(ctx, sql)

	if c.config.Tracer != nil {
		data := TraceQueryEndData{Err: err}
		if result != nil {
			data.CommandTag = result.CommandTag
		}
		c.config.Tracer.TraceQueryEnd(ctx, c, data)
	}
	if err != nil {
		return nil, err
	}
	return &Rows{result: result, idx: -1}, nil
}

// QueryRow executes sql and returns the first row of the result. If the
// query returns no rows the returned error is ErrNoRows.
func (c *Conn) QueryRow(ctx context.Context, sql string) ([][]byte, error) {
	rows, err := c.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, ErrNoRows
	}
	return rows.Values(), nil
}

// SetAutocommit changes the autocommit state; see
// [classicconn.ClassicConn.SetAutocommit].
func (c *Conn) SetAutocommit(ctx context.Context, on bool) error {
	return c.classicConn.SetAutocommit(ctx, on)
}

// Autocommit reports the current autocommit state.
func (c *Conn) Autocommit() bool {
	return c.classicConn.Autocommit()
}

// Commit commits the current transaction block and begins the next one. It
// is a no-op in autocommit mode.
func (c *Conn) Commit(ctx context.Context) error {
	return c.classicConn.Commit(ctx)
}

// Rollback rolls back the current transaction block and begins the next
// one. It is a no-op in autocommit mode.
func (c *Conn) Rollback(ctx context.Context) error {
	return c.classicConn.Rollback(ctx)
}

// SetReadOnly records the advisory read-only hint.
func (c *Conn) SetReadOnly(readOnly bool) {
	c.classicConn.SetReadOnly(readOnly)
}

// ReadOnly reports the advisory read-only hint.
func (c *Conn) ReadOnly() bool {
	return c.classicConn.ReadOnly()
}

// SetCursorName records the positioned update cursor name. One cursor per
// connection is supported.
func (c *Conn) SetCursorName(name string) {
	c.classicConn.SetCursorName(name)
}

// CursorName returns the recorded cursor name.
func (c *Conn) CursorName() string {
	return c.classicConn.CursorName()
}

// SetTransactionIsolation always fails: the classic protocol backend only
// runs serializable transactions and offers no way to change that.
func (c *Conn) SetTransactionIsolation(level string) error {
	return &classicconn.UnsupportedError{Feature: "transaction isolation level " + level}
}
