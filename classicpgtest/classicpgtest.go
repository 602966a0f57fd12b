// Package classicpgtest provides utilities for testing classicpg and packages that integrate with classicpg.
package classicpgtest

import (
	"context"
	"testing"

	classicpg "github.com/classicpg/classicpg-go"
)

// ConnTestRunner controls how a *classicpg.Conn is created and closed by tests. All fields are required. Use DefaultConnTestRunner to get a
// ConnTestRunner with reasonable default values.
type ConnTestRunner struct {
	// CreateConfig returns a *classicpg.ConnConfig suitable for use with classicpg.ConnectConfig.
	CreateConfig func(ctx context.Context, t testing.TB) *classicpg.ConnConfig

	// AfterConnect is called after conn is established. It allows for arbitrary connection setup before a test begins.
	AfterConnect func(ctx context.Context, t testing.TB, conn *classicpg.Conn)

	// AfterTest is called after the test is run. It allows for validating the state of the connection before it is closed.
	AfterTest func(ctx context.Context, t testing.TB, conn *classicpg.Conn)

	// CloseConn closes conn.
	CloseConn func(ctx context.Context, t testing.TB, conn *classicpg.Conn)
}

// DefaultConnTestRunner returns a new ConnTestRunner with all fields set to reasonable default values.
func DefaultConnTestRunner() ConnTestRunner {
	return ConnTestRunner{
		CreateConfig: func(ctx context.Context, t testing.TB) *classicpg.ConnConfig {
			config, err := classicpg.ParseConfig("")
			if err != nil {
				t.Fatalf("ParseConfig failed: %v", err)
			}
			return config
		},
		AfterConnect: func(ctx context.Context, t testing.TB, conn *classicpg.Conn) {},
		AfterTest:    func(ctx context.Context, t testing.TB, conn *classicpg.Conn) {},
		CloseConn: func(ctx context.Context, t testing.TB, conn *classicpg.Conn) {
			err := conn.Close()
			if err != nil {
				t.Errorf("Close failed: %v", err)
			}
		},
	}
}

func (ctr *ConnTestRunner) RunTest(ctx context.Context, t testing.TB, f func(ctx context.Context, t testing.TB, conn *classicpg.Conn)) {
	t.Helper()

	config := ctr.CreateConfig(ctx, t)
	conn, err := classicpg.ConnectConfig(ctx, config)
	if err != nil {
		t.Fatalf("ConnectConfig failed: %v", err)
	}
	defer ctr.CloseConn(ctx, t, conn)

	ctr.AfterConnect(ctx, t, conn)
	f(ctx, t, conn)
	ctr.AfterTest(ctx, t, conn)
}
