package classicproto

// CommandComplete signals that a statement finished executing. Tag is the
// command status string, e.g. "SELECT" or "INSERT 18392 1".
type CommandComplete struct {
	Tag string
}

// Backend identifies this message as sendable by the backend.
func (*CommandComplete) Backend() {}

func (dst *CommandComplete) decode(s *Stream) error {
	tag, err := s.RecvString(maxStringLen)
	if err != nil {
		return err
	}
	dst.Tag = tag
	return nil
}

func (src *CommandComplete) encode(s *Stream) error {
	if err := s.SendByte(tagCommandComplete); err != nil {
		return err
	}
	if err := s.SendBytes([]byte(src.Tag)); err != nil {
		return err
	}
	return s.SendByte(0)
}
