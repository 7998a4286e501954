package imgerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bare",
			err:  New(ErrTruncated, "ppm", "need %d bytes", 12),
			want: "ppm: truncated input: need 12 bytes",
		},
		{
			name: "chunk and offset",
			err:  New(ErrIntegrity, "png", "crc 0x00000000 != 0x12345678").InChunk("IDAT").At(33),
			want: "png: checksum mismatch in IDAT chunk at offset 33: crc 0x00000000 != 0x12345678",
		},
		{
			name: "field",
			err:  New(ErrFormat, "png", "bit depth 3").InChunk("IHDR").WithField("bit depth"),
			want: "png: malformed field in IHDR chunk (field bit depth): bit depth 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("decoding frame: %w", New(ErrCorruptStream, "inflate", "bad code"))
	require.ErrorIs(t, err, ErrCorruptStream)
	assert.False(t, errors.Is(err, ErrFormat))

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "inflate", e.Op)
	assert.Equal(t, ErrCorruptStream, KindOf(err))
	assert.Nil(t, KindOf(errors.New("plain")))
}
