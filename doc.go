// Package classicpg is a client driver for the classic (pre-6.4) PostgreSQL
// frontend/backend protocol.
/*
classicpg provides a small, synchronous driver for backends that still speak
the classic wire protocol: a fixed 288 byte startup packet, simple queries
only, and tag-dispatched responses with null-bitmask rows.

Establishing a Connection

The primary way of establishing a connection is with [classicpg.Connect]:

	conn, err := classicpg.Connect(context.Background(), os.Getenv("DATABASE_URL"))

The connection string can be in URL or keyword/value format. A config struct
can also be created by [ParseConfig] and modified before establishing the
connection with [ConnectConfig] to configure settings such as tracing that
cannot be configured with a connection string.

Query Interface

Query drains one complete result group and returns a Rows iterator over it:

	rows, err := conn.Query(context.Background(), "select name, weight from widgets")
	if err != nil {
		return err
	}
	for rows.Next() {
		values := rows.Values()
		// values[i] is the raw column payload; nil means NULL.
	}

Exec executes a statement and returns only its command tag. Statements are
limited to 8192 bytes and parameters do not exist on this wire; [Conn.Prepare]
returns a client-side statement that interpolates arguments into the SQL text
locally.

Transactions

Connections start in autocommit mode. SetAutocommit(false) begins a
transaction block; Commit and Rollback end the current block and immediately
begin the next one, mirroring the behavior of the original drivers for this
protocol.

Connection Pool

[*classicpg.Conn] represents a single connection and serializes concurrent
callers. Use github.com/classicpg/classicpg-go/classicpool for a
concurrency-safe connection pool.

This package is a thin facade over github.com/classicpg/classicpg-go/classicconn,
which exposes the protocol engine itself. The facade holds no protocol state
of its own.
*/
package classicpg
