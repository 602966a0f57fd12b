// Package classicio contains low level functions for encoding the big-endian
// integers used by the classic frontend/backend protocol.
package classicio

import "encoding/binary"

func AppendUint16(buf []byte, n uint16) []byte {
	return binary.BigEndian.AppendUint16(buf, n)
}

func AppendUint32(buf []byte, n uint32) []byte {
	return binary.BigEndian.AppendUint32(buf, n)
}

func AppendInt16(buf []byte, n int16) []byte {
	return binary.BigEndian.AppendUint16(buf, uint16(n))
}

func AppendInt32(buf []byte, n int32) []byte {
	return binary.BigEndian.AppendUint32(buf, uint32(n))
}

// AppendUint appends n as width bytes in network order. Only widths of 1, 2
// and 4 occur on this wire.
func AppendUint(buf []byte, n uint32, width int) []byte {
	for shift := (width - 1) * 8; shift >= 0; shift -= 8 {
		buf = append(buf, byte(n>>shift))
	}
	return buf
}

func SetInt32(buf []byte, n int32) {
	binary.BigEndian.PutUint32(buf, uint32(n))
}
