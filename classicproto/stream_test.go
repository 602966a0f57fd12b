package classicproto

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamUintRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n     uint32
		width int
	}{
		{n: 0, width: 1},
		{n: 255, width: 1},
		{n: 0x0102, width: 2},
		{n: 65535, width: 2},
		{n: 288, width: 4},
		{n: 0xdeadbeef, width: 4},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		s := NewStream(&buf, &buf)
		require.NoError(t, s.SendUint(tt.n, tt.width))
		require.NoError(t, s.Flush())
		require.Len(t, buf.Bytes(), tt.width)

		got, err := s.RecvUint(tt.width)
		require.NoError(t, err)
		assert.Equal(t, tt.n, got)
	}
}

func TestStreamSendPadded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		buf   []byte
		width int
		want  []byte
	}{
		{
			name:  "shorter than width is zero padded",
			buf:   []byte("ab"),
			width: 4,
			want:  []byte{'a', 'b', 0, 0},
		},
		{
			name:  "longer than width is silently truncated",
			buf:   []byte("abcdef"),
			width: 4,
			want:  []byte("abcd"),
		},
		{
			name:  "exact width is passed through unterminated",
			buf:   []byte("abcd"),
			width: 4,
			want:  []byte("abcd"),
		},
		{
			name:  "empty is all zeros",
			buf:   nil,
			width: 3,
			want:  []byte{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := NewStream(&buf, &buf)
			require.NoError(t, s.SendPadded(tt.buf, tt.width))
			require.NoError(t, s.Flush())
			assert.Equal(t, tt.want, buf.Bytes())
		})
	}
}

func TestStreamRecvString(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	buf.WriteString("hello")
	buf.WriteByte(0)

	s := NewStream(&buf, &buf)
	got, err := s.RecvString(16)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestStreamRecvStringTooLong(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	buf.WriteString(strings.Repeat("x", 16))
	buf.WriteByte(0)

	s := NewStream(&buf, &buf)
	_, err := s.RecvString(8)
	require.Error(t, err)

	var protocolErr *ProtocolError
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, "string exceeds 8 bytes: too much data", err.Error())
}

func TestStreamEOFIsUnexpected(t *testing.T) {
	t.Parallel()

	s := NewStream(bytes.NewReader(nil), io.Discard)

	_, err := s.RecvByte()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = s.RecvUint(4)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = s.RecvString(8)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestStreamRecvExactShortRead(t *testing.T) {
	t.Parallel()

	s := NewStream(bytes.NewReader([]byte{1, 2}), io.Discard)
	_, err := s.RecvExact(4)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
