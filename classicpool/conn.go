package classicpool

import (
	"context"

	"github.com/jackc/puddle/v2"

	classicpg "github.com/classicpg/classicpg-go"
	"github.com/classicpg/classicpg-go/classicconn"
)

// Conn is an acquired *classicpg.Conn from a Pool.
type Conn struct {
	res  *puddle.Resource[*classicpg.Conn]
	pool *Pool
}

// Release returns c to the pool it was acquired from. Once Release has been
// called, other methods must not be called. A broken connection is destroyed
// instead of returning to the pool.
func (c *Conn) Release() {
	if c.res == nil {
		return
	}

	conn := c.Conn()
	res := c.res
	c.res = nil

	if c.pool.releaseTracer != nil {
		c.pool.releaseTracer.TraceRelease(c.pool, conn)
	}

	if conn.IsOpen() {
		res.Release()
	} else {
		res.Destroy()
	}
}

// Conn returns the underlying *classicpg.Conn.
func (c *Conn) Conn() *classicpg.Conn {
	return c.res.Value()
}

func (c *Conn) Exec(ctx context.Context, sql string) (classicconn.CommandTag, error) {
	return c.Conn().Exec(ctx, sql)
}

func (c *Conn) Query(ctx context.Context, sql string) (*classicpg.Rows, error) {
	return c.Conn().Query(ctx, sql)
}

func (c *Conn) QueryRow(ctx context.Context, sql string) ([][]byte, error) {
	return c.Conn().QueryRow(ctx, sql)
}
