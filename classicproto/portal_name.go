package classicproto

// PortalName announces the name of the portal a result group belongs to.
type PortalName struct {
	Name string
}

// Backend identifies this message as sendable by the backend.
func (*PortalName) Backend() {}

func (dst *PortalName) decode(s *Stream) error {
	name, err := s.RecvString(maxStringLen)
	if err != nil {
		return err
	}
	dst.Name = name
	return nil
}

func (src *PortalName) encode(s *Stream) error {
	if err := s.SendByte(tagPortalName); err != nil {
		return err
	}
	if err := s.SendBytes([]byte(src.Name)); err != nil {
		return err
	}
	return s.SendByte(0)
}
