package classicproto

import (
	"bufio"
	"fmt"
	"io"

	"github.com/classicpg/classicpg-go/internal/classicio"
)

// Stream provides the byte level transport primitives the classic protocol
// is built from: fixed width big-endian integers, raw bytes, padded fixed
// width fields and capped null-terminated strings. All operations block the
// calling goroutine. Sends are buffered until Flush.
type Stream struct {
	r *bufio.Reader
	w *bufio.Writer

	scratch []byte
}

// NewStream creates a Stream reading from r and writing to w.
func NewStream(r io.Reader, w io.Writer) *Stream {
	return &Stream{
		r:       bufio.NewReader(r),
		w:       bufio.NewWriter(w),
		scratch: make([]byte, 0, 64),
	}
}

// SendByte buffers a single byte.
func (s *Stream) SendByte(b byte) error {
	return s.w.WriteByte(b)
}

// SendUint buffers v as width bytes in network order.
func (s *Stream) SendUint(v uint32, width int) error {
	s.scratch = classicio.AppendUint(s.scratch[:0], v, width)
	_, err := s.w.Write(s.scratch)
	return err
}

// SendBytes buffers buf verbatim.
func (s *Stream) SendBytes(buf []byte) error {
	_, err := s.w.Write(buf)
	return err
}

// SendPadded buffers exactly width bytes: buf silently truncated if longer,
// zero padded if shorter. No terminator is appended.
func (s *Stream) SendPadded(buf []byte, width int) error {
	if len(buf) > width {
		buf = buf[:width]
	}
	if _, err := s.w.Write(buf); err != nil {
		return err
	}
	for i := len(buf); i < width; i++ {
		if err := s.w.WriteByte(0); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes any buffered bytes to the underlying stream.
func (s *Stream) Flush() error {
	return s.w.Flush()
}

// RecvByte reads one byte, failing on end of stream.
func (s *Stream) RecvByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, normalizeEOF(err)
	}
	return b, nil
}

// RecvUint reads width bytes and reconstructs the big-endian unsigned
// integer.
func (s *Stream) RecvUint(width int) (uint32, error) {
	buf, err := s.RecvExact(width)
	if err != nil {
		return 0, err
	}
	var n uint32
	for _, b := range buf {
		n = n<<8 | uint32(b)
	}
	return n, nil
}

// RecvString reads bytes up to a zero terminator. Consuming max bytes
// without seeing the terminator is a ProtocolError.
func (s *Stream) RecvString(max int) (string, error) {
	buf := make([]byte, 0, 32)
	for len(buf) < max {
		b, err := s.r.ReadByte()
		if err != nil {
			return "", normalizeEOF(err)
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
	return "", NewProtocolError("string exceeds %d bytes: too much data", max)
}

// RecvExact blocks until exactly n bytes have been read, failing on end of
// stream.
func (s *Stream) RecvExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, normalizeEOF(err)
	}
	return buf, nil
}

// normalizeEOF converts bare io.EOF into an error that reads as a broken
// connection rather than a clean end of input. The backend never closes the
// stream mid-session on purpose.
func normalizeEOF(err error) error {
	if err == io.EOF {
		return fmt.Errorf("unexpected EOF from backend: %w", io.ErrUnexpectedEOF)
	}
	return err
}
