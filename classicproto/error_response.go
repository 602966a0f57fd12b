package classicproto

// ErrorResponse is an error reported by the backend. This protocol revision
// carries a single message string rather than structured error fields.
type ErrorResponse struct {
	Message string
}

// Backend identifies this message as sendable by the backend.
func (*ErrorResponse) Backend() {}

func (dst *ErrorResponse) decode(s *Stream) error {
	msg, err := s.RecvString(maxMessageLen)
	if err != nil {
		return err
	}
	dst.Message = msg
	return nil
}

func (src *ErrorResponse) encode(s *Stream) error {
	if err := s.SendByte(tagErrorResponse); err != nil {
		return err
	}
	if err := s.SendBytes([]byte(src.Message)); err != nil {
		return err
	}
	return s.SendByte(0)
}
