package classicpool

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/jackc/puddle/v2"

	classicpg "github.com/classicpg/classicpg-go"
	"github.com/classicpg/classicpg-go/classicconn"
)

var defaultMaxConns = int32(4)

// AcquireTracer traces Acquire.
type AcquireTracer interface {
	// TraceAcquireStart is called at the beginning of Acquire. The returned
	// context is used for the rest of the call and will be passed to
	// TraceAcquireEnd.
	TraceAcquireStart(ctx context.Context, pool *Pool) context.Context

	TraceAcquireEnd(ctx context.Context, pool *Pool, conn *classicpg.Conn, err error)
}

// ReleaseTracer traces Release.
type ReleaseTracer interface {
	TraceRelease(pool *Pool, conn *classicpg.Conn)
}

// Config is the configuration struct for creating a pool. It must be created
// by [ParseConfig] and then it can be modified.
type Config struct {
	ConnConfig *classicpg.ConnConfig

	// MaxConns is the maximum size of the pool. The default is the greater
	// of 4 or runtime.NumCPU().
	MaxConns int32

	// AfterConnect is called after a connection is established, but before
	// it is added to the pool.
	AfterConnect func(ctx context.Context, conn *classicpg.Conn) error

	createdByParseConfig bool // Used to enforce created by ParseConfig rule.
}

// Pool allows for connection reuse. Acquired connections execute queries one
// at a time; the pool itself is safe for concurrent use.
type Pool struct {
	p      *puddle.Pool[*classicpg.Conn]
	config *Config

	acquireTracer AcquireTracer
	releaseTracer ReleaseTracer
}

// ParseConfig builds a pool Config from connString. In addition to the
// settings of [classicpg.ParseConfig], the pool recognizes
// pool_max_conns.
func ParseConfig(connString string) (*Config, error) {
	connConfig, err := classicpg.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	config := &Config{
		ConnConfig:           connConfig,
		MaxConns:             defaultMaxConns,
		createdByParseConfig: true,
	}
	if numCPU := int32(runtime.NumCPU()); numCPU > config.MaxConns {
		config.MaxConns = numCPU
	}

	if s, ok := poolSetting(connString, "pool_max_conns"); ok {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("cannot parse pool_max_conns: %w", err)
		}
		if n < 1 {
			return nil, fmt.Errorf("pool_max_conns too small: %d", n)
		}
		config.MaxConns = int32(n)
	}

	return config, nil
}

// New creates a Pool using connString.
func New(ctx context.Context, connString string) (*Pool, error) {
	config, err := ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, config)
}

// NewWithConfig creates a Pool using config. config must have been created
// by [ParseConfig].
func NewWithConfig(ctx context.Context, config *Config) (*Pool, error) {
	if !config.createdByParseConfig {
		panic("config must be created by ParseConfig")
	}

	pool := &Pool{config: config}

	if t, ok := config.ConnConfig.Tracer.(AcquireTracer); ok {
		pool.acquireTracer = t
	}
	if t, ok := config.ConnConfig.Tracer.(ReleaseTracer); ok {
		pool.releaseTracer = t
	}

	p, err := puddle.NewPool(&puddle.Config[*classicpg.Conn]{
		Constructor: func(ctx context.Context) (*classicpg.Conn, error) {
			conn, err := classicpg.ConnectConfig(ctx, config.ConnConfig)
			if err != nil {
				return nil, err
			}
			if config.AfterConnect != nil {
				if err := config.AfterConnect(ctx, conn); err != nil {
					conn.Close()
					return nil, err
				}
			}
			return conn, nil
		},
		Destructor: func(conn *classicpg.Conn) {
			conn.Close()
		},
		MaxSize: config.MaxConns,
	})
	if err != nil {
		return nil, err
	}
	pool.p = p

	return pool, nil
}

// Config returns a copy of config that was used to create this pool.
func (pool *Pool) Config() *Config {
	newConfig := new(Config)
	*newConfig = *pool.config
	return newConfig
}

// Acquire obtains a connection from the pool, establishing one if none is
// idle and the pool is below its maximum size. A broken connection is
// destroyed instead of being handed out again.
func (pool *Pool) Acquire(ctx context.Context) (c *Conn, err error) {
	if pool.acquireTracer != nil {
		ctx = pool.acquireTracer.TraceAcquireStart(ctx, pool)
		defer func() {
			var conn *classicpg.Conn
			if c != nil {
				conn = c.Conn()
			}
			pool.acquireTracer.TraceAcquireEnd(ctx, pool, conn, err)
		}()
	}

	for {
		res, err := pool.p.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		if res.Value().IsOpen() {
			return &Conn{res: res, pool: pool}, nil
		}
		res.Destroy()
	}
}

// Exec acquires a connection, executes sql on it and releases the
// connection.
func (pool *Pool) Exec(ctx context.Context, sql string) (classicconn.CommandTag, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return classicconn.CommandTag{}, err
	}
	defer conn.Release()

	return conn.Exec(ctx, sql)
}

// Query acquires a connection, runs sql on it, releases the connection and
// returns the drained rows.
func (pool *Pool) Query(ctx context.Context, sql string) (*classicpg.Rows, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return conn.Query(ctx, sql)
}

// Ping acquires a connection and executes the trivial probe statement on it.
func (pool *Pool) Ping(ctx context.Context) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, " ")
	return err
}

// Stat returns the pool's current usage counters.
func (pool *Pool) Stat() *Stat {
	return &Stat{s: pool.p.Stat()}
}

// Close closes all connections in the pool and rejects future Acquire
// calls. It blocks until all connections are returned to the pool and
// closed.
func (pool *Pool) Close() {
	pool.p.Close()
}

// Stat is a snapshot of pool statistics.
type Stat struct {
	s *puddle.Stat
}

// TotalConns is the total number of resources currently in the pool.
func (s *Stat) TotalConns() int32 {
	return s.s.TotalResources()
}

// AcquiredConns is the number of currently acquired connections.
func (s *Stat) AcquiredConns() int32 {
	return s.s.AcquiredResources()
}

// IdleConns is the number of currently idle connections.
func (s *Stat) IdleConns() int32 {
	return s.s.IdleResources()
}
