package classicproto

// NotificationResponse is an asynchronous notify from the backend: the
// originating backend pid and the notification payload.
type NotificationResponse struct {
	PID     uint32
	Payload string
}

// Backend identifies this message as sendable by the backend.
func (*NotificationResponse) Backend() {}

func (dst *NotificationResponse) decode(s *Stream) error {
	pid, err := s.RecvUint(4)
	if err != nil {
		return err
	}
	payload, err := s.RecvString(maxStringLen)
	if err != nil {
		return err
	}
	dst.PID = pid
	dst.Payload = payload
	return nil
}

func (src *NotificationResponse) encode(s *Stream) error {
	if err := s.SendByte(tagNotification); err != nil {
		return err
	}
	if err := s.SendUint(src.PID, 4); err != nil {
		return err
	}
	if err := s.SendBytes([]byte(src.Payload)); err != nil {
		return err
	}
	return s.SendByte(0)
}
