package imgdec

import (
	"bytes"
	"image"
	"image/color"
	stdpng "image/png"
	"testing"

	"github.com/jpfielding/pixdec.go/pkg/compress/inflate"
	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/jpfielding/pixdec.go/pkg/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	img.SetNRGBA(1, 0, color.NRGBA{R: 5, G: 6, B: 7, A: 8})
	var buf bytes.Buffer
	require.NoError(t, stdpng.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode_Sniff(t *testing.T) {
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	tests := []struct {
		name   string
		data   []byte
		codec  string
		layout pixel.Layout
	}{
		{"png", encodePNG(t), "png", pixel.RGBA},
		{"pam", append([]byte("P7\nWIDTH 2\nHEIGHT 1\nDEPTH 4\nMAXVAL 255\nENDHDR\n"), want...), "pam", pixel.RGBA},
		{"ppm", append([]byte("P6 2 1 255\n"), want[:6]...), "ppm", pixel.RGB},
		{"plain ppm", []byte("P3 2 1 255 1 2 3 4 5 6"), "ppm", pixel.RGB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, name, err := Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.codec, name)
			assert.Equal(t, tt.layout, buf.Layout)
			assert.Equal(t, want[:len(buf.Samples)], buf.Samples)
		})
	}
}

func TestDecode_Options(t *testing.T) {
	data := encodePNG(t)
	buf, _, err := Decode(data, &Options{Inflater: inflate.Klauspost{}, ToRGBA: true})
	require.NoError(t, err)
	assert.Equal(t, pixel.RGBA, buf.Layout)

	_, name, err := Decode(data, &Options{Limits: pixel.Limits{MaxPixels: 1}})
	require.ErrorIs(t, err, imgerr.ErrLimitExceeded)
	assert.Equal(t, "png", name)

	ppm := []byte("P3 2 1 255 1 2 3 4 5 6")
	buf, _, err = Decode(ppm, &Options{ToRGBA: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 255, 4, 5, 6, 255}, buf.Samples)
}

func TestDecode_Unknown(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("GIF89a"), []byte("P5\n1 1\n255\n\x00")} {
		buf, name, err := Decode(data)
		require.ErrorIs(t, err, imgerr.ErrFormat)
		assert.Nil(t, buf)
		assert.Empty(t, name)
	}
}

func TestCodecs(t *testing.T) {
	var names []string
	for _, c := range Codecs() {
		names = append(names, c.Name())
		assert.NotEmpty(t, c.Extensions())
	}
	assert.Equal(t, []string{"pam", "png", "ppm"}, names)

	assert.Equal(t, CodecPNG, CodecByName("png"))
	assert.Nil(t, CodecByName("gif"))
	assert.True(t, CodecPPM.Match([]byte("P3")))
	assert.False(t, CodecPAM.Match([]byte("P6")))
}
