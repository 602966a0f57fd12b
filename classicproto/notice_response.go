package classicproto

// NoticeResponse is a diagnostic message from the backend. Notices never
// terminate a query and are never promoted to errors.
type NoticeResponse struct {
	Message string
}

// Backend identifies this message as sendable by the backend.
func (*NoticeResponse) Backend() {}

func (dst *NoticeResponse) decode(s *Stream) error {
	msg, err := s.RecvString(maxMessageLen)
	if err != nil {
		return err
	}
	dst.Message = msg
	return nil
}

func (src *NoticeResponse) encode(s *Stream) error {
	if err := s.SendByte(tagNoticeResponse); err != nil {
		return err
	}
	if err := s.SendBytes([]byte(src.Message)); err != nil {
		return err
	}
	return s.SendByte(0)
}
