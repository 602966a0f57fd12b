package classicproto

// FieldDescription describes one column of a result group: its name, type
// OID and type size hint.
type FieldDescription struct {
	Name         string
	DataTypeOID  uint32
	DataTypeSize int16
}

// RowDescription carries the ordered column descriptors for a result group.
// A count of zero is valid and means the statement produces no columns.
type RowDescription struct {
	Fields []FieldDescription
}

// Backend identifies this message as sendable by the backend.
func (*RowDescription) Backend() {}

func (dst *RowDescription) decode(s *Stream) error {
	n, err := s.RecvUint(2)
	if err != nil {
		return err
	}
	dst.Fields = make([]FieldDescription, n)
	for i := range dst.Fields {
		name, err := s.RecvString(maxStringLen)
		if err != nil {
			return err
		}
		oid, err := s.RecvUint(4)
		if err != nil {
			return err
		}
		size, err := s.RecvUint(2)
		if err != nil {
			return err
		}
		dst.Fields[i] = FieldDescription{
			Name:         name,
			DataTypeOID:  oid,
			DataTypeSize: int16(size),
		}
	}
	return nil
}

func (src *RowDescription) encode(s *Stream) error {
	if err := s.SendByte(tagRowDescription); err != nil {
		return err
	}
	if err := s.SendUint(uint32(len(src.Fields)), 2); err != nil {
		return err
	}
	for _, fd := range src.Fields {
		if err := s.SendBytes([]byte(fd.Name)); err != nil {
			return err
		}
		if err := s.SendByte(0); err != nil {
			return err
		}
		if err := s.SendUint(fd.DataTypeOID, 4); err != nil {
			return err
		}
		if err := s.SendUint(uint32(uint16(fd.DataTypeSize)), 2); err != nil {
			return err
		}
	}
	return nil
}
