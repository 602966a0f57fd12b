package classicproto

import "io"

// Frontend acts as a client for the classic frontend/backend protocol.
//
// Row messages carry no independent framing: their layout depends on the
// field count of the preceding RowDescription. Receive therefore tracks the
// current field count; SendQuery resets it for the next result group.
type Frontend struct {
	stream *Stream

	fieldCount int
	haveFields bool
}

// NewFrontend creates a Frontend that reads from r and writes to w.
func NewFrontend(r io.Reader, w io.Writer) *Frontend {
	return &Frontend{stream: NewStream(r, w)}
}

// SendStartup buffers the startup packet. Call Flush to actually send it.
func (f *Frontend) SendStartup(msg *StartupMessage) error {
	return msg.encode(f.stream)
}

// SendQuery buffers a simple query message and resets the row description
// state for the response that will follow. Call Flush to actually send it.
func (f *Frontend) SendQuery(msg *Query) error {
	f.haveFields = false
	f.fieldCount = 0
	return msg.encode(f.stream)
}

// Flush writes any buffered messages to the backend.
func (f *Frontend) Flush() error {
	return f.stream.Flush()
}

// Receive reads one tagged message from the backend and decodes it.
func (f *Frontend) Receive() (BackendMessage, error) {
	tag, err := f.stream.RecvByte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagRowDescription:
		msg := &RowDescription{}
		if err := msg.decode(f.stream); err != nil {
			return nil, err
		}
		f.fieldCount = len(msg.Fields)
		f.haveFields = true
		return msg, nil
	case tagBinaryRow, tagTextRow:
		if !f.haveFields {
			return nil, NewProtocolError("tuple received before row description")
		}
		msg := &DataRow{Binary: tag == tagBinaryRow}
		if err := msg.decodeRow(f.stream, f.fieldCount); err != nil {
			return nil, err
		}
		return msg, nil
	case tagCommandComplete:
		msg := &CommandComplete{}
		if err := msg.decode(f.stream); err != nil {
			return nil, err
		}
		return msg, nil
	case tagEmptyQuery:
		msg := &EmptyQueryResponse{}
		if err := msg.decode(f.stream); err != nil {
			return nil, err
		}
		return msg, nil
	case tagErrorResponse:
		msg := &ErrorResponse{}
		if err := msg.decode(f.stream); err != nil {
			return nil, err
		}
		return msg, nil
	case tagNoticeResponse:
		msg := &NoticeResponse{}
		if err := msg.decode(f.stream); err != nil {
			return nil, err
		}
		return msg, nil
	case tagNotification:
		msg := &NotificationResponse{}
		if err := msg.decode(f.stream); err != nil {
			return nil, err
		}
		return msg, nil
	case tagPortalName:
		msg := &PortalName{}
		if err := msg.decode(f.stream); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, NewProtocolError("unknown response type %q", tag)
	}
}
