package util

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jpfielding/pixdec.go/pkg/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentUUID(t *testing.T) {
	a := &pixel.Buffer{Width: 2, Height: 1, Layout: pixel.Gray, Depth: 8, Samples: []byte{1, 2}}
	b := &pixel.Buffer{Width: 2, Height: 1, Layout: pixel.Gray, Depth: 8, Samples: []byte{1, 2}}
	flipped := &pixel.Buffer{Width: 1, Height: 2, Layout: pixel.Gray, Depth: 8, Samples: []byte{1, 2}}
	changed := &pixel.Buffer{Width: 2, Height: 1, Layout: pixel.Gray, Depth: 8, Samples: []byte{1, 3}}

	id := ContentUUID(a)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())

	assert.Equal(t, id, ContentUUID(b))
	assert.NotEqual(t, id, ContentUUID(flipped))
	assert.NotEqual(t, id, ContentUUID(changed))
}

func TestMd5ThenHex(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Md5ThenHex(nil))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", Md5ThenHex([]byte("abc")))
}
