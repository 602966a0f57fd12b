package classicproto

import "io"

// Backend acts as a server for the classic frontend/backend protocol. Its
// primary use in this module is the scripted mock server the tests run
// against.
type Backend struct {
	stream *Stream
}

// NewBackend creates a Backend that reads from r and writes to w.
func NewBackend(r io.Reader, w io.Writer) *Backend {
	return &Backend{stream: NewStream(r, w)}
}

// ReceiveStartup reads and validates the fixed size startup packet. It must
// be called before the first Receive.
func (b *Backend) ReceiveStartup() (*StartupMessage, error) {
	msg := &StartupMessage{}
	if err := msg.decode(b.stream); err != nil {
		return nil, err
	}
	return msg, nil
}

// Receive reads one frontend message. The only tagged message a frontend
// sends after startup is the simple query.
func (b *Backend) Receive() (FrontendMessage, error) {
	tag, err := b.stream.RecvByte()
	if err != nil {
		return nil, err
	}
	if tag != tagQuery {
		return nil, NewProtocolError("unknown frontend message type %q", tag)
	}
	msg := &Query{}
	if err := msg.decode(b.stream); err != nil {
		return nil, err
	}
	return msg, nil
}

// Send buffers a backend message. Call Flush to actually send it.
func (b *Backend) Send(msg BackendMessage) error {
	switch msg := msg.(type) {
	case *RowDescription:
		return msg.encode(b.stream)
	case *DataRow:
		return msg.encode(b.stream)
	case *CommandComplete:
		return msg.encode(b.stream)
	case *EmptyQueryResponse:
		return msg.encode(b.stream)
	case *ErrorResponse:
		return msg.encode(b.stream)
	case *NoticeResponse:
		return msg.encode(b.stream)
	case *NotificationResponse:
		return msg.encode(b.stream)
	case *PortalName:
		return msg.encode(b.stream)
	default:
		return NewProtocolError("cannot encode message type %T", msg)
	}
}

// Flush writes any buffered messages to the frontend.
func (b *Backend) Flush() error {
	return b.stream.Flush()
}
