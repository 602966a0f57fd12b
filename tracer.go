package classicpg

import (
	"context"

	"github.com/classicpg/classicpg-go/classicconn"
)

// QueryTracer traces Query and Exec.
type QueryTracer interface {
	// TraceQueryStart is called at the beginning of Query and Exec calls.
	// The returned context is used for the rest of the call and will be
	// passed to TraceQueryEnd.
	TraceQueryStart(ctx context.Context, conn *Conn, data TraceQueryStartData) context.Context

	TraceQueryEnd(ctx context.Context, conn *Conn, data TraceQueryEndData)
}

type TraceQueryStartData struct {
	SQL string
}

type TraceQueryEndData struct {
	CommandTag classicconn.CommandTag
	Err        error
}

// ConnectTracer traces Connect and ConnectConfig.
type ConnectTracer interface {
	// TraceConnectStart is called at the beginning of Connect and
	// ConnectConfig calls. The returned context is used for the rest of the
	// call and will be passed to TraceConnectEnd.
	TraceConnectStart(ctx context.Context, data TraceConnectStartData) context.Context

	TraceConnectEnd(ctx context.Context, data TraceConnectEndData)
}

type TraceConnectStartData struct {
	ConnConfig *ConnConfig
}

type TraceConnectEndData struct {
	Conn *Conn
	Err  error
}
