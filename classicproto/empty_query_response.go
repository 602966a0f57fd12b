package classicproto

// EmptyQueryResponse acknowledges an empty query. On the wire it is the tag
// 'I' followed by a single byte that must be zero.
type EmptyQueryResponse struct{}

// Backend identifies this message as sendable by the backend.
func (*EmptyQueryResponse) Backend() {}

func (dst *EmptyQueryResponse) decode(s *Stream) error {
	b, err := s.RecvByte()
	if err != nil {
		return err
	}
	if b != 0 {
		return NewProtocolError("garbled data: expected zero terminator after empty query response, got %#x", b)
	}
	return nil
}

func (src *EmptyQueryResponse) encode(s *Stream) error {
	if err := s.SendByte(tagEmptyQuery); err != nil {
		return err
	}
	return s.SendByte(0)
}
