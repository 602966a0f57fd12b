package classicproto

import "fmt"

// Message tags sent by the backend. A single leading byte identifies each
// response message.
const (
	tagNotification    = 'A'
	tagBinaryRow       = 'B'
	tagCommandComplete = 'C'
	tagTextRow         = 'D'
	tagErrorResponse   = 'E'
	tagEmptyQuery      = 'I'
	tagNoticeResponse  = 'N'
	tagPortalName      = 'P'
	tagQuery           = 'Q'
	tagRowDescription  = 'T'
)

const (
	// StartupPacketLen is the fixed size of the startup packet, including its
	// own 4 byte length field.
	StartupPacketLen = 288

	// StartupCode identifies the protocol revision in the startup packet.
	StartupCode = 7

	startupDatabaseLen = 64
	startupUserLen     = StartupPacketLen - 8 - startupDatabaseLen
)

const (
	// MaxQueryLen is the longest SQL text accepted for a simple query.
	MaxQueryLen = 8192

	// maxStringLen caps generic null-terminated strings (command status,
	// field names, portal names, notification payloads).
	maxStringLen = 8192

	// maxMessageLen caps error and notice message strings.
	maxMessageLen = 4096
)

// FrontendMessage is a message sent by the frontend (i.e. the client).
type FrontendMessage interface {
	Frontend() // no-op method to distinguish frontend from backend methods
}

// BackendMessage is a message sent by the backend (i.e. the server).
type BackendMessage interface {
	Backend() // no-op method to distinguish frontend from backend methods
}

// ProtocolError occurs when the byte stream is malformed or arrives out of
// order. It is fatal to the current query but not necessarily to the session.
type ProtocolError struct {
	msg string
}

func (e *ProtocolError) Error() string {
	return e.msg
}

// NewProtocolError formats a new ProtocolError.
func NewProtocolError(format string, args ...any) *ProtocolError {
	return &ProtocolError{msg: fmt.Sprintf(format, args...)}
}
