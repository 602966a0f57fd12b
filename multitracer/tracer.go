// Package multitracer provides a Tracer that can combine several tracers into one.
package multitracer

import (
	"context"

	classicpg "github.com/classicpg/classicpg-go"
	"github.com/classicpg/classicpg-go/classicpool"
)

// Tracer can combine several tracers into one.
// You can use New to automatically split tracers by interface.
type Tracer struct {
	QueryTracers       []classicpg.QueryTracer
	ConnectTracers     []classicpg.ConnectTracer
	PoolAcquireTracers []classicpool.AcquireTracer
	PoolReleaseTracers []classicpool.ReleaseTracer
}

// New returns new Tracer from tracers with automatically split tracers by interface.
func New(tracers ...classicpg.QueryTracer) *Tracer {
	var t Tracer

	for _, tracer := range tracers {
		t.QueryTracers = append(t.QueryTracers, tracer)

		if connectTracer, ok := tracer.(classicpg.ConnectTracer); ok {
			t.ConnectTracers = append(t.ConnectTracers, connectTracer)
		}

		if poolAcquireTracer, ok := tracer.(classicpool.AcquireTracer); ok {
			t.PoolAcquireTracers = append(t.PoolAcquireTracers, poolAcquireTracer)
		}

		if poolReleaseTracer, ok := tracer.(classicpool.ReleaseTracer); ok {
			t.PoolReleaseTracers = append(t.PoolReleaseTracers, poolReleaseTracer)
		}
	}

	return &t
}

func (t *Tracer) TraceQueryStart(ctx context.Context, conn *classicpg.Conn, data classicpg.TraceQueryStartData) context.Context {
	for _, tracer := range t.QueryTracers {
		ctx = tracer.TraceQueryStart(ctx, conn, data)
	}

	return ctx
}

func (t *Tracer) TraceQueryEnd(ctx context.Context, conn *classicpg.Conn, data classicpg.TraceQueryEndData) {
	for _, tracer := range t.QueryTracers {
		tracer.TraceQueryEnd(ctx, conn, data)
	}
}

func (t *Tracer) TraceConnectStart(ctx context.Context, data classicpg.TraceConnectStartData) context.Context {
	for _, tracer := range t.ConnectTracers {
		ctx = tracer.TraceConnectStart(ctx, data)
	}

	return ctx
}

func (t *Tracer) TraceConnectEnd(ctx context.Context, data classicpg.TraceConnectEndData) {
	for _, tracer := range t.ConnectTracers {
		tracer.TraceConnectEnd(ctx, data)
	}
}

func (t *Tracer) TraceAcquireStart(ctx context.Context, pool *classicpool.Pool) context.Context {
	for _, tracer := range t.PoolAcquireTracers {
		ctx = tracer.TraceAcquireStart(ctx, pool)
	}

	return ctx
}

func (t *Tracer) TraceAcquireEnd(ctx context.Context, pool *classicpool.Pool, conn *classicpg.Conn, err error) {
	for _, tracer := range t.PoolAcquireTracers {
		tracer.TraceAcquireEnd(ctx, pool, conn, err)
	}
}

func (t *Tracer) TraceRelease(pool *classicpool.Pool, conn *classicpg.Conn) {
	for _, tracer := range t.PoolReleaseTracers {
		tracer.TraceRelease(pool, conn)
	}
}
