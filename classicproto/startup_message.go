package classicproto

import "bytes"

// StartupMessage is the fixed 288 byte handshake packet: total length,
// startup code, then padded/truncated database and user name fields. No
// credential material is carried; the password stays client-side in this
// protocol revision.
type StartupMessage struct {
	Database string
	User     string
}

// Frontend identifies this message as sendable by the frontend.
func (*StartupMessage) Frontend() {}

func (src *StartupMessage) encode(s *Stream) error {
	if err := s.SendUint(StartupPacketLen, 4); err != nil {
		return err
	}
	if err := s.SendUint(StartupCode, 4); err != nil {
		return err
	}
	if err := s.SendPadded([]byte(src.Database), startupDatabaseLen); err != nil {
		return err
	}
	return s.SendPadded([]byte(src.User), startupUserLen)
}

func (dst *StartupMessage) decode(s *Stream) error {
	length, err := s.RecvUint(4)
	if err != nil {
		return err
	}
	if length != StartupPacketLen {
		return NewProtocolError("bad startup packet length %d", length)
	}
	code, err := s.RecvUint(4)
	if err != nil {
		return err
	}
	if code != StartupCode {
		return NewProtocolError("bad startup code %d", code)
	}
	database, err := s.RecvExact(startupDatabaseLen)
	if err != nil {
		return err
	}
	user, err := s.RecvExact(startupUserLen)
	if err != nil {
		return err
	}
	dst.Database = string(bytes.TrimRight(database, "\x00"))
	dst.User = string(bytes.TrimRight(user, "\x00"))
	return nil
}
