package classicconn_test

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/classicpg/classicpg-go/classicconn"
	"github.com/classicpg/classicpg-go/classicproto"
	"github.com/classicpg/classicpg-go/internal/classicmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startMockBackend runs script against a single accepted connection and
// returns a connection string pointing at it. Script errors fail the test at
// cleanup.
func startMockBackend(t *testing.T, script *classicmock.Script) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:")
	require.NoError(t, err)

	serverErrChan := make(chan error, 1)
	go func() {
		defer close(serverErrChan)

		conn, err := ln.Accept()
		if err != nil {
			serverErrChan <- err
			return
		}
		defer conn.Close()

		if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
			serverErrChan <- err
			return
		}

		if err := script.Run(classicproto.NewBackend(conn, conn)); err != nil {
			serverErrChan <- err
			return
		}
	}()

	t.Cleanup(func() {
		ln.Close()
		if err := <-serverErrChan; err != nil {
			t.Errorf("mock backend: %v", err)
		}
	})

	host, port, _ := strings.Cut(ln.Addr().String(), ":")
	return fmt.Sprintf("host=%s port=%s user=alice database=app", host, port)
}

func mockConnect(t *testing.T, ctx context.Context, steps ...classicmock.Step) *classicconn.ClassicConn {
	t.Helper()

	script := &classicmock.Script{Steps: append(classicmock.AcceptConnSteps(), steps...)}
	connString := startMockBackend(t, script)

	conn, err := classicconn.Connect(ctx, connString)
	require.NoError(t, err)
	return conn
}

func TestConnectSendsStartupPacketAndProbe(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	script := &classicmock.Script{
		Steps: []classicmock.Step{
			classicmock.ExpectStartup(&classicproto.StartupMessage{Database: "app", User: "alice"}),
			classicmock.ExpectMessage(&classicproto.Query{String: " "}),
			classicmock.SendMessage(&classicproto.EmptyQueryResponse{}),
			classicmock.WaitForClose(),
		},
	}
	connString := startMockBackend(t, script)

	conn, err := classicconn.Connect(ctx, connString)
	require.NoError(t, err)
	assert.True(t, conn.IsOpen())

	require.NoError(t, conn.Close())
	assert.False(t, conn.IsOpen())
}

func TestConnectConfigRequiresConfigFromParseConfig(t *testing.T) {
	t.Parallel()

	config := &classicconn.Config{Host: "127.0.0.1", Port: 5432, User: "alice"}

	require.PanicsWithValue(t, "config must be created by ParseConfig", func() {
		classicconn.ConnectConfig(context.Background(), config)
	})
}

func TestConnectProbeFailure(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	script := &classicmock.Script{
		Steps: []classicmock.Step{
			classicmock.ExpectAnyStartup(),
			classicmock.ExpectMessage(&classicproto.Query{String: " "}),
			classicmock.SendMessage(&classicproto.ErrorResponse{Message: "no such database"}),
		},
	}
	connString := startMockBackend(t, script)

	_, err := classicconn.Connect(ctx, connString)
	require.Error(t, err)

	var connectionErr *classicconn.ConnectionError
	require.ErrorAs(t, err, &connectionErr)
	assert.Contains(t, err.Error(), "connection probe failed")
}

func TestExecSelect(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := mockConnect(t, ctx,
		classicmock.ExpectMessage(&classicproto.Query{String: "select id, name from users"}),
		classicmock.SendMessage(&classicproto.RowDescription{
			Fields: []classicproto.FieldDescription{
				{Name: "id", DataTypeOID: 23, DataTypeSize: 4},
				{Name: "name", DataTypeOID: 25, DataTypeSize: -1},
			},
		}),
		classicmock.SendMessage(&classicproto.DataRow{Values: [][]byte{[]byte("1"), []byte("alice")}}),
		classicmock.SendMessage(&classicproto.DataRow{Values: [][]byte{[]byte("2"), nil}}),
		classicmock.SendMessage(&classicproto.CommandComplete{Tag: "SELECT"}),
		classicmock.WaitForClose(),
	)
	defer conn.Close()

	result, err := conn.Exec(ctx, "select id, name from users")
	require.NoError(t, err)

	require.Len(t, result.FieldDescriptions, 2)
	assert.Equal(t, "id", result.FieldDescriptions[0].Name)
	assert.EqualValues(t, 23, result.FieldDescriptions[0].DataTypeOID)
	assert.Equal(t, "name", result.FieldDescriptions[1].Name)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, [][]byte{[]byte("1"), []byte("alice")}, result.Rows[0])
	assert.Equal(t, []byte("2"), result.Rows[1][0])
	assert.Nil(t, result.Rows[1][1])

	assert.Equal(t, "SELECT", result.CommandTag.String())
	assert.True(t, result.CommandTag.Select())
	assert.Equal(t, 1, result.ResultGroup)

	assert.True(t, conn.IsOpen())
}

func TestExecRowlessStatementSynchronizes(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// A row-less statement gives no ready signal. The driver must issue a
	// trivial synchronization query and wait for its acknowledgment.
	conn := mockConnect(t, ctx,
		classicmock.ExpectMessage(&classicproto.Query{String: "create table t (a int4)"}),
		classicmock.SendMessage(&classicproto.CommandComplete{Tag: "CREATE"}),
		classicmock.ExpectMessage(&classicproto.Query{String: " "}),
		classicmock.SendMessage(&classicproto.EmptyQueryResponse{}),
		classicmock.WaitForClose(),
	)
	defer conn.Close()

	result, err := conn.Exec(ctx, "create table t (a int4)")
	require.NoError(t, err)

	assert.Nil(t, result.FieldDescriptions)
	assert.Len(t, result.Rows, 0)
	assert.Equal(t, "CREATE", result.CommandTag.String())

	assert.True(t, conn.IsOpen())
}

func TestExecServerErrorDiscardsRows(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := mockConnect(t, ctx,
		classicmock.ExpectMessage(&classicproto.Query{String: "select * from t"}),
		classicmock.SendMessage(&classicproto.RowDescription{
			Fields: []classicproto.FieldDescription{{Name: "a", DataTypeOID: 23, DataTypeSize: 4}},
		}),
		classicmock.SendMessage(&classicproto.DataRow{Values: [][]byte{[]byte("1")}}),
		classicmock.SendMessage(&classicproto.ErrorResponse{Message: "canceling query"}),
		classicmock.ExpectMessage(&classicproto.Query{String: "select 1"}),
		classicmock.SendMessage(&classicproto.RowDescription{
			Fields: []classicproto.FieldDescription{{Name: "?column?", DataTypeOID: 23, DataTypeSize: 4}},
		}),
		classicmock.SendMessage(&classicproto.DataRow{Values: [][]byte{[]byte("1")}}),
		classicmock.SendMessage(&classicproto.CommandComplete{Tag: "SELECT"}),
		classicmock.WaitForClose(),
	)
	defer conn.Close()

	result, err := conn.Exec(ctx, "select * from t")
	require.Error(t, err)
	assert.Nil(t, result)

	var serverErr *classicconn.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "canceling query", serverErr.Message)

	// A server error is fatal to its query only; the session still works.
	require.True(t, conn.IsOpen())
	result, err = conn.Exec(ctx, "select 1")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
}

func TestExecRejectsMultipleResultGroups(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := mockConnect(t, ctx,
		classicmock.ExpectMessage(&classicproto.Query{String: "select 1; select 2"}),
		classicmock.SendMessage(&classicproto.RowDescription{
			Fields: []classicproto.FieldDescription{{Name: "a", DataTypeOID: 23, DataTypeSize: 4}},
		}),
		classicmock.SendMessage(&classicproto.RowDescription{
			Fields: []classicproto.FieldDescription{{Name: "b", DataTypeOID: 23, DataTypeSize: 4}},
		}),
	)
	defer conn.Close()

	_, err := conn.Exec(ctx, "select 1; select 2")
	require.Error(t, err)

	var protocolErr *classicproto.ProtocolError
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, "cannot handle multiple result groups", err.Error())
}

func TestExecStatementTooLong(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := mockConnect(t, ctx, classicmock.WaitForClose())
	defer conn.Close()

	// Rejected locally before any bytes reach the transport: the mock
	// backend sees nothing but the eventual close.
	_, err := conn.Exec(ctx, strings.Repeat("a", 8193))
	require.Error(t, err)

	var validationErr *classicconn.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "statement too long: exceeds 8192 bytes", err.Error())

	assert.True(t, conn.IsOpen())
}

func TestExecContextAlreadyCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := mockConnect(t, ctx, classicmock.WaitForClose())
	defer conn.Close()

	canceledCtx, cancelNow := context.WithCancel(ctx)
	cancelNow()

	_, err := conn.Exec(canceledCtx, "select 1")
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, conn.IsOpen())
}

func TestExecAfterCloseFails(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := mockConnect(t, ctx, classicmock.WaitForClose())

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	_, err := conn.Exec(ctx, "select 1")
	require.Error(t, err)
	assert.Equal(t, "conn closed", err.Error())
}

func TestExecBrokenConnection(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The script ends after accepting the session, so the server closes its
	// end. The next query dies mid-receive.
	conn := mockConnect(t, ctx)

	_, err := conn.Exec(ctx, "select 1")
	require.Error(t, err)

	var connectionErr *classicconn.ConnectionError
	require.ErrorAs(t, err, &connectionErr)

	assert.False(t, conn.IsOpen())
}

func TestNoticesAndNotificationsDuringQuery(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	script := &classicmock.Script{Steps: append(classicmock.AcceptConnSteps(),
		classicmock.ExpectMessage(&classicproto.Query{String: "create table t (a int4)"}),
		classicmock.SendMessage(&classicproto.NoticeResponse{Message: "implicit sequence created"}),
		classicmock.SendMessage(&classicproto.NotificationResponse{PID: 4711, Payload: "mytable"}),
		classicmock.SendMessage(&classicproto.CommandComplete{Tag: "CREATE"}),
		classicmock.ExpectMessage(&classicproto.Query{String: " "}),
		classicmock.SendMessage(&classicproto.EmptyQueryResponse{}),
		classicmock.WaitForClose(),
	)}
	connString := startMockBackend(t, script)

	config, err := classicconn.ParseConfig(connString)
	require.NoError(t, err)

	var notices []*classicconn.Notice
	var notifications []*classicconn.Notification
	config.OnNotice = func(_ *classicconn.ClassicConn, n *classicconn.Notice) {
		notices = append(notices, n)
	}
	config.OnNotification = func(_ *classicconn.ClassicConn, n *classicconn.Notification) {
		notifications = append(notifications, n)
	}

	conn, err := classicconn.ConnectConfig(ctx, config)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(ctx, "create table t (a int4)")
	require.NoError(t, err)

	require.Len(t, notices, 1)
	assert.Equal(t, "implicit sequence created", notices[0].Message)
	require.Len(t, notifications, 1)
	assert.EqualValues(t, 4711, notifications[0].PID)
	assert.Equal(t, "mytable", notifications[0].Payload)
}

func TestSetAutocommitSameValueIsNoOp(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := mockConnect(t, ctx, classicmock.WaitForClose())
	defer conn.Close()

	// The default is autocommit on. Setting it again issues no statements;
	// the mock backend would reject any unexpected wire traffic.
	require.True(t, conn.Autocommit())
	require.NoError(t, conn.SetAutocommit(ctx, true))
	require.True(t, conn.Autocommit())
}

func rowlessExchange(sql, tag string) []classicmock.Step {
	return []classicmock.Step{
		classicmock.ExpectMessage(&classicproto.Query{String: sql}),
		classicmock.SendMessage(&classicproto.CommandComplete{Tag: tag}),
		classicmock.ExpectMessage(&classicproto.Query{String: " "}),
		classicmock.SendMessage(&classicproto.EmptyQueryResponse{}),
	}
}

func TestSetAutocommitOffBeginsTransaction(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var steps []classicmock.Step
	steps = append(steps, rowlessExchange("begin", "BEGIN")...)
	steps = append(steps, classicmock.WaitForClose())

	conn := mockConnect(t, ctx, steps...)
	defer conn.Close()

	require.NoError(t, conn.SetAutocommit(ctx, false))
	assert.False(t, conn.Autocommit())
}

func TestCommitEndsAndBeginsTransaction(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var steps []classicmock.Step
	steps = append(steps, rowlessExchange("begin", "BEGIN")...)
	steps = append(steps, rowlessExchange("commit", "COMMIT")...)
	steps = append(steps, rowlessExchange("begin", "BEGIN")...)
	steps = append(steps, classicmock.WaitForClose())

	conn := mockConnect(t, ctx, steps...)
	defer conn.Close()

	require.NoError(t, conn.SetAutocommit(ctx, false))
	require.NoError(t, conn.Commit(ctx))
}

func TestRollbackEndsAndBeginsTransaction(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var steps []classicmock.Step
	steps = append(steps, rowlessExchange("begin", "BEGIN")...)
	steps = append(steps, rowlessExchange("rollback", "ROLLBACK")...)
	steps = append(steps, rowlessExchange("begin", "BEGIN")...)
	steps = append(steps, classicmock.WaitForClose())

	conn := mockConnect(t, ctx, steps...)
	defer conn.Close()

	require.NoError(t, conn.SetAutocommit(ctx, false))
	require.NoError(t, conn.Rollback(ctx))
}

func TestCommitInAutocommitIsNoOp(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := mockConnect(t, ctx, classicmock.WaitForClose())
	defer conn.Close()

	require.NoError(t, conn.Commit(ctx))
	require.NoError(t, conn.Rollback(ctx))
}

func TestReadOnlyAndCursorNameBookkeeping(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := mockConnect(t, ctx, classicmock.WaitForClose())
	defer conn.Close()

	// Both settings are local bookkeeping: no wire statements are issued.
	assert.False(t, conn.ReadOnly())
	conn.SetReadOnly(true)
	assert.True(t, conn.ReadOnly())

	assert.Equal(t, "", conn.CursorName())
	conn.SetCursorName("mycursor")
	assert.Equal(t, "mycursor", conn.CursorName())
}

func TestPortalNameMessageIsDiscarded(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := mockConnect(t, ctx,
		classicmock.ExpectMessage(&classicproto.Query{String: "select 1"}),
		classicmock.SendMessage(&classicproto.PortalName{Name: "blank"}),
		classicmock.SendMessage(&classicproto.RowDescription{
			Fields: []classicproto.FieldDescription{{Name: "?column?", DataTypeOID: 23, DataTypeSize: 4}},
		}),
		classicmock.SendMessage(&classicproto.DataRow{Values: [][]byte{[]byte("1")}}),
		classicmock.SendMessage(&classicproto.CommandComplete{Tag: "SELECT"}),
		classicmock.WaitForClose(),
	)
	defer conn.Close()

	result, err := conn.Exec(ctx, "select 1")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	// Portal names from the backend never feed the cursor name.
	assert.Equal(t, "", conn.CursorName())
}

func TestBinaryRows(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := mockConnect(t, ctx,
		classicmock.ExpectMessage(&classicproto.Query{String: "fetch binary in mycursor"}),
		classicmock.SendMessage(&classicproto.RowDescription{
			Fields: []classicproto.FieldDescription{{Name: "a", DataTypeOID: 23, DataTypeSize: 4}},
		}),
		classicmock.SendMessage(&classicproto.DataRow{Values: [][]byte{{0, 0, 0, 42}}, Binary: true}),
		classicmock.SendMessage(&classicproto.CommandComplete{Tag: "FETCH"}),
		classicmock.WaitForClose(),
	)
	defer conn.Close()

	result, err := conn.Exec(ctx, "fetch binary in mycursor")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, []byte{0, 0, 0, 42}, result.Rows[0][0])
}

func TestCommandTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag          string
		rowsAffected int64
		isInsert     bool
		isUpdate     bool
		isDelete     bool
		isSelect     bool
	}{
		{tag: "INSERT 18392 1", rowsAffected: 1, isInsert: true},
		{tag: "UPDATE 3", rowsAffected: 3, isUpdate: true},
		{tag: "DELETE 0", rowsAffected: 0, isDelete: true},
		{tag: "SELECT", rowsAffected: 0, isSelect: true},
		{tag: "CREATE", rowsAffected: 0},
		{tag: "", rowsAffected: 0},
	}

	for _, tt := range tests {
		ct := classicconn.NewCommandTag(tt.tag)
		assert.Equalf(t, tt.rowsAffected, ct.RowsAffected(), "%q", tt.tag)
		assert.Equalf(t, tt.isInsert, ct.Insert(), "%q", tt.tag)
		assert.Equalf(t, tt.isUpdate, ct.Update(), "%q", tt.tag)
		assert.Equalf(t, tt.isDelete, ct.Delete(), "%q", tt.tag)
		assert.Equalf(t, tt.isSelect, ct.Select(), "%q", tt.tag)
		assert.Equalf(t, tt.tag, ct.String(), "%q", tt.tag)
	}
}
