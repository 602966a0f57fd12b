// Package classicconn is a low-level driver for the classic (pre-6.4)
// PostgreSQL frontend/backend protocol. It operates at nearly the same level
// as the C library libpq did for that protocol revision: simple queries
// only, one result group per execution, text or binary rows with a null
// bitmask.
package classicconn

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	"github.com/classicpg/classicpg-go/classicproto"
)

const (
	statusOpen = iota
	statusBroken
)

// flushQuery is the synthetic trivial statement issued to resynchronize
// with a backend that gives no explicit ready signal after a row-less
// statement, and to probe a new session after the handshake.
const flushQuery = " "

// Notice is a diagnostic message reported by the backend.
type Notice struct {
	Message string
}

// Notification is an asynchronous notify message received from the backend.
type Notification struct {
	PID     uint32 // backend pid that sent the notification
	Payload string
}

// ClassicConn is a low-level classic protocol session. It is not safe for
// concurrent use in the sense of interleaving queries: every query is a
// strict send-then-drain cycle guarded by an internal mutex, so concurrent
// callers serialize rather than corrupt the stream. Close participates in
// the same mutex and therefore cannot race an in-flight query.
type ClassicConn struct {
	conn     net.Conn
	frontend *classicproto.Frontend
	config   *Config

	mu     sync.Mutex
	status byte // statusOpen or statusBroken

	autocommit bool
	readOnly   bool
	cursorName string

	fieldDescriptions [16]FieldDescription
}

// Connect establishes a session using connString to provide configuration.
// See [ParseConfig] for the connection string format.
func Connect(ctx context.Context, connString string) (*ClassicConn, error) {
	config, err := ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	return ConnectConfig(ctx, config)
}

// ConnectConfig establishes a session using config. config must have been
// constructed with [ParseConfig].
//
// The handshake is a fixed startup packet followed by a trivial probe query.
// No credential bytes are transmitted: the configured password stays local,
// as this protocol revision's observable handshake carries none. The session
// is marked open only after the probe succeeds.
func ConnectConfig(ctx context.Context, config *Config) (*ClassicConn, error) {
	// Default values are set in ParseConfig. Enforce initial creation by
	// ParseConfig rather than setting defaults from zero values.
	if !config.createdByParseConfig {
		panic("config must be created by ParseConfig")
	}

	classicConn := &ClassicConn{
		config:     config,
		status:     statusBroken,
		autocommit: config.Autocommit,
		readOnly:   config.ReadOnly,
	}

	dialFunc := config.DialFunc
	if dialFunc == nil {
		d := net.Dialer{Timeout: config.ConnectTimeout}
		dialFunc = d.DialContext
	}

	network, address := NetworkAddress(config.Host, config.Port)
	conn, err := dialFunc(ctx, network, address)
	if err != nil {
		return nil, newConnectionError(err, "failed to connect to `%s`", config.ConnString())
	}
	classicConn.conn = conn
	classicConn.frontend = classicproto.NewFrontend(conn, conn)

	startup := &classicproto.StartupMessage{
		Database: config.Database,
		User:     config.User,
	}
	classicConn.frontend.SendStartup(startup)
	if err := classicConn.frontend.Flush(); err != nil {
		conn.Close()
		return nil, newConnectionError(err, "failed to send startup packet to `%s`", config.ConnString())
	}

	// The backend sends no handshake response of its own. Validate the
	// session with a trivial statement instead.
	classicConn.mu.Lock()
	if _, err := classicConn.exec(ctx, flushQuery); err != nil {
		classicConn.mu.Unlock()
		conn.Close()
		return nil, newConnectionError(err, "connection probe failed for `%s`", config.ConnString())
	}
	classicConn.status = statusOpen
	classicConn.mu.Unlock()

	return classicConn, nil
}

// Config returns a copy of the config used to establish this session.
func (classicConn *ClassicConn) Config() *Config {
	return classicConn.config.Copy()
}

// Conn returns the underlying net.Conn. This is rarely necessary.
func (classicConn *ClassicConn) Conn() net.Conn {
	return classicConn.conn
}

// IsOpen reports whether the session can still accept operations. A session
// is broken by Close or by any transport failure; a server or protocol error
// during one query does not by itself break it.
func (classicConn *ClassicConn) IsOpen() bool {
	classicConn.mu.Lock()
	defer classicConn.mu.Unlock()
	return classicConn.status == statusOpen
}

// Close releases the underlying stream. It is safe to call Close on an
// already closed session. Close takes the same lock as query execution, so
// it waits for an in-flight query to drain rather than racing it.
func (classicConn *ClassicConn) Close() error {
	classicConn.mu.Lock()
	defer classicConn.mu.Unlock()

	if classicConn.status == statusBroken {
		return nil
	}
	classicConn.status = statusBroken

	// The classic protocol has no terminate message; closing the stream is
	// the disconnect.
	return classicConn.conn.Close()
}

// markBroken closes the underlying stream and marks the session broken. The
// caller must hold mu.
func (classicConn *ClassicConn) markBroken() {
	if classicConn.status == statusBroken {
		return
	}
	classicConn.status = statusBroken
	classicConn.conn.Close()
}

// lock acquires the per-session critical section and verifies the session
// still accepts operations.
func (classicConn *ClassicConn) lock() error {
	classicConn.mu.Lock()
	if classicConn.status != statusOpen {
		classicConn.mu.Unlock()
		return &connLockError{status: "conn closed"}
	}
	return nil
}

func (classicConn *ClassicConn) unlock() {
	classicConn.mu.Unlock()
}

// Exec executes sql via the simple query protocol and drains the entire
// response into a Result. The whole send-then-drain cycle is exclusive per
// session.
//
// ctx is consulted only before any bytes are written. The protocol has no
// cancellation primitive: once the query is on the wire a non-responding
// backend blocks the calling goroutine indefinitely.
func (classicConn *ClassicConn) Exec(ctx context.Context, sql string) (*Result, error) {
	if err := classicConn.lock(); err != nil {
		return nil, err
	}
	defer classicConn.unlock()

	return classicConn.exec(ctx, sql)
}

// exec runs one send-then-drain cycle. The caller must hold mu.
func (classicConn *ClassicConn) exec(ctx context.Context, sql string) (*Result, error) {
	if len(sql) > classicproto.MaxQueryLen {
		return nil, &ValidationError{msg: "statement too long: exceeds 8192 bytes"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	classicConn.frontend.SendQuery(&classicproto.Query{String: sql})
	if err := classicConn.frontend.Flush(); err != nil {
		classicConn.markBroken()
		return nil, newConnectionError(err, "failed to send query")
	}

	return classicConn.readQueryResponse()
}

// readQueryResponse drives the tag-dispatched response state machine for one
// submitted query. Reading stops exactly when the final message has been
// seen and no synchronization queries remain outstanding.
func (classicConn *ClassicConn) readQueryResponse() (*Result, error) {
	var (
		fields    []FieldDescription
		fieldsSet bool
		rows      [][][]byte
		status    string
		serverErr error

		finalSeen      bool
		pendingFlushes int
	)

	for !finalSeen || pendingFlushes > 0 {
		msg, err := classicConn.frontend.Receive()
		if err != nil {
			var protocolErr *classicproto.ProtocolError
			if errors.As(err, &protocolErr) {
				// A local protocol violation is fatal to this query but the
				// stream itself is still alive.
				return nil, err
			}
			classicConn.markBroken()
			return nil, newConnectionError(err, "failed to receive message")
		}

		switch msg := msg.(type) {
		case *classicproto.RowDescription:
			if fieldsSet {
				return nil, classicproto.NewProtocolError("cannot handle multiple result groups")
			}
			fields = classicConn.convertRowDescription(classicConn.fieldDescriptions[:], msg)
			fieldsSet = true
		case *classicproto.DataRow:
			// The frontend rejects rows arriving before a row description,
			// so msg.Values always matches len(fields) here.
			rows = append(rows, msg.Values)
		case *classicproto.CommandComplete:
			status = msg.Tag
			if fieldsSet {
				finalSeen = true
			} else {
				// Row-less statements produce no explicit ready signal.
				// Issue a synthetic trivial query and wait for its empty
				// query acknowledgment to resynchronize.
				classicConn.frontend.SendQuery(&classicproto.Query{String: flushQuery})
				if err := classicConn.frontend.Flush(); err != nil {
					classicConn.markBroken()
					return nil, newConnectionError(err, "failed to send synchronization query")
				}
				pendingFlushes++
			}
		case *classicproto.EmptyQueryResponse:
			if pendingFlushes > 0 {
				pendingFlushes--
			}
			if pendingFlushes == 0 {
				finalSeen = true
			}
		case *classicproto.ErrorResponse:
			serverErr = &ServerError{Message: msg.Message}
			// Outstanding synchronization queries must still drain before
			// the loop may stop.
			finalSeen = true
		case *classicproto.NoticeResponse:
			if classicConn.config.OnNotice != nil {
				classicConn.config.OnNotice(classicConn, &Notice{Message: msg.Message})
			}
		case *classicproto.NotificationResponse:
			if classicConn.config.OnNotification != nil {
				classicConn.config.OnNotification(classicConn, &Notification{PID: msg.PID, Payload: msg.Payload})
			}
		case *classicproto.PortalName:
			// Consumed and discarded. Deliberately not linked to the
			// session's cursor name bookkeeping.
		}
	}

	if serverErr != nil {
		// Any rows buffered for this query are discarded, never returned
		// partially.
		return nil, serverErr
	}

	result := &Result{
		Rows:        rows,
		CommandTag:  NewCommandTag(status),
		ResultGroup: 1,
	}
	if fieldsSet {
		result.FieldDescriptions = make([]FieldDescription, len(fields))
		copy(result.FieldDescriptions, fields)
	}
	return result, nil
}

// SetAutocommit changes the autocommit state. Turning autocommit on ends the
// open transaction block; turning it off begins one. Setting the current
// value issues no wire statements.
func (classicConn *ClassicConn) SetAutocommit(ctx context.Context, on bool) error {
	if err := classicConn.lock(); err != nil {
		return err
	}
	defer classicConn.unlock()

	if classicConn.autocommit == on {
		return nil
	}

	stmt := "begin"
	if on {
		stmt = "end"
	}
	if _, err := classicConn.exec(ctx, stmt); err != nil {
		return err
	}
	classicConn.autocommit = on
	return nil
}

// Autocommit reports the current autocommit state.
func (classicConn *ClassicConn) Autocommit() bool {
	classicConn.mu.Lock()
	defer classicConn.mu.Unlock()
	return classicConn.autocommit
}

// Commit makes all changes since the previous commit or rollback permanent
// and immediately begins a new transaction block. It is a no-op while
// autocommit is on. If the commit statement itself fails no new transaction
// is begun and autocommit remains off.
func (classicConn *ClassicConn) Commit(ctx context.Context) error {
	return classicConn.endTransaction(ctx, "commit")
}

// Rollback drops all changes since the previous commit or rollback and
// immediately begins a new transaction block. It is a no-op while autocommit
// is on.
func (classicConn *ClassicConn) Rollback(ctx context.Context) error {
	return classicConn.endTransaction(ctx, "rollback")
}

func (classicConn *ClassicConn) endTransaction(ctx context.Context, stmt string) error {
	if err := classicConn.lock(); err != nil {
		return err
	}
	defer classicConn.unlock()

	if classicConn.autocommit {
		return nil
	}

	if _, err := classicConn.exec(ctx, stmt); err != nil {
		return err
	}
	_, err := classicConn.exec(ctx, "begin")
	return err
}

// SetReadOnly records the read-only hint. The hint is advisory only; it is
// not enforced over the wire.
func (classicConn *ClassicConn) SetReadOnly(readOnly bool) {
	classicConn.mu.Lock()
	defer classicConn.mu.Unlock()
	classicConn.readOnly = readOnly
}

// ReadOnly reports the advisory read-only hint.
func (classicConn *ClassicConn) ReadOnly() bool {
	classicConn.mu.Lock()
	defer classicConn.mu.Unlock()
	return classicConn.readOnly
}

// SetCursorName records the positioned update cursor name. This is local
// bookkeeping only; portal name messages from the backend never feed it.
func (classicConn *ClassicConn) SetCursorName(name string) {
	classicConn.mu.Lock()
	defer classicConn.mu.Unlock()
	classicConn.cursorName = name
}

// CursorName returns the recorded cursor name.
func (classicConn *ClassicConn) CursorName() string {
	classicConn.mu.Lock()
	defer classicConn.mu.Unlock()
	return classicConn.cursorName
}

// FieldDescription describes one column of a result group.
type FieldDescription struct {
	Name         string
	DataTypeOID  uint32
	DataTypeSize int16
}

func (classicConn *ClassicConn) convertRowDescription(dst []FieldDescription, rd *classicproto.RowDescription) []FieldDescription {
	if cap(dst) >= len(rd.Fields) {
		dst = dst[:len(rd.Fields):len(rd.Fields)]
	} else {
		dst = make([]FieldDescription, len(rd.Fields))
	}

	for i := range rd.Fields {
		dst[i].Name = rd.Fields[i].Name
		dst[i].DataTypeOID = rd.Fields[i].DataTypeOID
		dst[i].DataTypeSize = rd.Fields[i].DataTypeSize
	}

	return dst
}

// Result is the decoded response to one query: the ordered column
// descriptors (nil when the statement produced no row-oriented result), the
// ordered rows, and the command status. Every row has exactly one slot per
// field description; a nil slot is a NULL.
type Result struct {
	FieldDescriptions []FieldDescription
	Rows              [][][]byte
	CommandTag        CommandTag
	ResultGroup       int
}

// CommandTag is the status text returned by the backend for a query.
type CommandTag struct {
	s string
}

// NewCommandTag makes a CommandTag from s.
func NewCommandTag(s string) CommandTag {
	return CommandTag{s: s}
}

// RowsAffected returns the number of rows affected. If the CommandTag was
// not for a row affecting command (e.g. "CREATE TABLE") then it returns 0.
func (ct CommandTag) RowsAffected() int64 {
	// Find last non-digit
	idx := -1
	for i := len(ct.s) - 1; i >= 0; i-- {
		if ct.s[i] >= '0' && ct.s[i] <= '9' {
			idx = i
		} else {
			break
		}
	}

	if idx == -1 {
		return 0
	}

	var n int64
	for _, b := range ct.s[idx:] {
		n = n*10 + int64(b-'0')
	}

	return n
}

func (ct CommandTag) String() string {
	return ct.s
}

// Insert is true if the command tag starts with "INSERT".
func (ct CommandTag) Insert() bool {
	return strings.HasPrefix(ct.s, "INSERT")
}

// Update is true if the command tag starts with "UPDATE".
func (ct CommandTag) Update() bool {
	return strings.HasPrefix(ct.s, "UPDATE")
}

// Delete is true if the command tag starts with "DELETE".
func (ct CommandTag) Delete() bool {
	return strings.HasPrefix(ct.s, "DELETE")
}

// Select is true if the command tag starts with "SELECT".
func (ct CommandTag) Select() bool {
	return strings.HasPrefix(ct.s, "SELECT")
}
