package classicproto

// DataRow is one decoded row. Values has one slot per column of the current
// row description; a nil slot is a NULL. Binary records whether the row
// arrived on the binary ('B') or text ('D') channel. In text mode the wire
// length of each present value includes the 4 length bytes themselves.
type DataRow struct {
	Values [][]byte
	Binary bool
}

// Backend identifies this message as sendable by the backend.
func (*DataRow) Backend() {}

// decodeRow reads the null bitmask and per-column payloads for fieldCount
// columns. Presence bits are consumed MSB-first, one per column in column
// order; ceil(n/8) bitmask bytes are read, zero when n is zero.
func (dst *DataRow) decodeRow(s *Stream, fieldCount int) error {
	bitmask, err := s.RecvExact((fieldCount + 7) / 8)
	if err != nil {
		return err
	}

	dst.Values = make([][]byte, fieldCount)
	for i := range dst.Values {
		if bitmask[i/8]&(0x80>>(i%8)) == 0 {
			continue // NULL, no payload bytes follow
		}
		length, err := s.RecvUint(4)
		if err != nil {
			return err
		}
		n := int(int32(length))
		if !dst.Binary {
			n -= 4
		}
		if n < 0 {
			n = 0
		}
		dst.Values[i], err = s.RecvExact(n)
		if err != nil {
			return err
		}
	}
	return nil
}

func (src *DataRow) encode(s *Stream) error {
	tag := byte(tagTextRow)
	if src.Binary {
		tag = tagBinaryRow
	}
	if err := s.SendByte(tag); err != nil {
		return err
	}

	bitmask := make([]byte, (len(src.Values)+7)/8)
	for i, v := range src.Values {
		if v != nil {
			bitmask[i/8] |= 0x80 >> (i % 8)
		}
	}
	if err := s.SendBytes(bitmask); err != nil {
		return err
	}

	for _, v := range src.Values {
		if v == nil {
			continue
		}
		length := len(v)
		if !src.Binary {
			length += 4
		}
		if err := s.SendUint(uint32(length), 4); err != nil {
			return err
		}
		if err := s.SendBytes(v); err != nil {
			return err
		}
	}
	return nil
}
