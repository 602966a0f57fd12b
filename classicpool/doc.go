// Package classicpool is a concurrency-safe connection pool for classicpg.
/*
classicpool implements a subset of the classicpg connection interface on top
of a pool of connections.

Creating a Pool

The primary way of creating a pool is with [classicpool.New]:

	pool, err := classicpool.New(context.Background(), os.Getenv("DATABASE_URL"))

The connection string can be in URL or keyword/value format. In addition, a
config struct can be created by [ParseConfig] and modified before creating
the pool with [NewWithConfig].

A pool returns without waiting for any connections to be established.
Acquire a connection immediately after creating the pool to check if a
connection can successfully be established.
*/
package classicpool
