package classicproto

// Query is a simple query message: tag 'Q', the raw SQL text, and a zero
// terminator.
type Query struct {
	String string
}

// Frontend identifies this message as sendable by the frontend.
func (*Query) Frontend() {}

func (src *Query) encode(s *Stream) error {
	if len(src.String) > MaxQueryLen {
		return NewProtocolError("query longer than %d bytes", MaxQueryLen)
	}
	if err := s.SendByte(tagQuery); err != nil {
		return err
	}
	if err := s.SendBytes([]byte(src.String)); err != nil {
		return err
	}
	return s.SendByte(0)
}

func (dst *Query) decode(s *Stream) error {
	sql, err := s.RecvString(MaxQueryLen + 1)
	if err != nil {
		return err
	}
	dst.String = sql
	return nil
}
