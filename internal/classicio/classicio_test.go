package classicio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendUint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n     uint32
		width int
		want  []byte
	}{
		{n: 0, width: 1, want: []byte{0}},
		{n: 7, width: 1, want: []byte{7}},
		{n: 0x1234, width: 2, want: []byte{0x12, 0x34}},
		{n: 0x12345678, width: 4, want: []byte{0x12, 0x34, 0x56, 0x78}},
		{n: 288, width: 4, want: []byte{0, 0, 0x01, 0x20}},
		{n: 0xff, width: 2, want: []byte{0, 0xff}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AppendUint(nil, tt.n, tt.width))
	}
}

func TestAppendFixedWidths(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0x01, 0x02}, AppendUint16(nil, 0x0102))
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, AppendUint32(nil, 0x01020304))
	assert.Equal(t, []byte{0xff, 0xff}, AppendInt16(nil, -1))
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xfc}, AppendInt32(nil, -4))
}

func TestSetInt32(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 4)
	SetInt32(buf, 288)
	assert.Equal(t, []byte{0, 0, 0x01, 0x20}, buf)
}
