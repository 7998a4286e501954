package pixel

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_AtSet(t *testing.T) {
	b := NewBuffer(3, 2, RGB, 16)
	require.Len(t, b.Samples, 3*2*3*2)
	assert.Equal(t, 18, b.Stride())

	b.Set(2, 1, 1, 0xABCD)
	assert.Equal(t, uint16(0xABCD), b.At(2, 1, 1))
	// big-endian storage
	i := 1*b.Stride() + (2*3+1)*2
	assert.Equal(t, []byte{0xAB, 0xCD}, b.Samples[i:i+2])

	g := NewBuffer(2, 2, Gray, 8)
	g.Set(1, 1, 0, 0x1FF)
	assert.Equal(t, uint16(0xFF), g.At(1, 1, 0))
}

func TestLayout(t *testing.T) {
	tests := []struct {
		layout   Layout
		channels int
		alpha    bool
		name     string
	}{
		{Gray, 1, false, "gray"},
		{GrayAlpha, 2, true, "gray-alpha"},
		{RGB, 3, false, "rgb"},
		{RGBA, 4, true, "rgba"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.channels, tt.layout.Channels())
			assert.Equal(t, tt.alpha, tt.layout.HasAlpha())
			assert.Equal(t, tt.name, tt.layout.String())

			var back Layout
			require.NoError(t, back.UnmarshalText([]byte(tt.name)))
			assert.Equal(t, tt.layout, back)
		})
	}

	var l Layout
	require.Error(t, l.UnmarshalText([]byte("cmyk")))
}

func TestLimits_Check(t *testing.T) {
	l := Limits{MaxWidth: 100, MaxHeight: 50, MaxPixels: 2000, MaxBytes: 4000}

	require.NoError(t, l.Check("test", 40, 50, 1, 8))

	tests := []struct {
		name                  string
		w, h, channels, depth int
		kind                  error
	}{
		{"zero width", 0, 10, 1, 8, imgerr.ErrFormat},
		{"too wide", 101, 1, 1, 8, imgerr.ErrLimitExceeded},
		{"too tall", 1, 51, 1, 8, imgerr.ErrLimitExceeded},
		{"too many pixels", 100, 50, 1, 8, imgerr.ErrLimitExceeded},
		{"too many bytes", 40, 50, 4, 8, imgerr.ErrLimitExceeded},
		{"wide samples", 40, 30, 2, 16, imgerr.ErrLimitExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Check("test", tt.w, tt.h, tt.channels, tt.depth)
			require.ErrorIs(t, err, tt.kind)
		})
	}

	// zero limits are unlimited
	require.NoError(t, Limits{}.Check("test", 1<<20, 1<<20, 4, 16))
	require.NoError(t, NoLimits().Check("test", math.MaxInt32, math.MaxInt32, 4, 16))

	// width*height*channels*2 does not fit in int64; the size saturates
	huge := Limits{MaxPixels: math.MaxInt64, MaxBytes: math.MaxInt64 - 1}
	err := huge.Check("test", math.MaxInt32, math.MaxInt32, 4, 16)
	require.ErrorIs(t, err, imgerr.ErrLimitExceeded)
}

func TestResolve(t *testing.T) {
	o := Resolve(nil)
	assert.Equal(t, DefaultLimits(), o.Limits)

	o = Resolve([]*Options{{ToRGBA: true}})
	assert.True(t, o.ToRGBA)
	assert.Equal(t, DefaultLimits(), o.Limits)

	o = Resolve([]*Options{{Limits: NoLimits()}})
	assert.Equal(t, NoLimits(), o.Limits)

	custom := Limits{MaxWidth: 8}
	o = Resolve([]*Options{{Limits: custom}})
	assert.Equal(t, custom, o.Limits)
}

func TestToRGBA(t *testing.T) {
	t.Run("gray8", func(t *testing.T) {
		b := &Buffer{Width: 2, Height: 1, Layout: Gray, Depth: 8, Samples: []byte{10, 200}}
		got := b.ToRGBA()
		assert.Equal(t, RGBA, got.Layout)
		assert.Equal(t, []byte{10, 10, 10, 255, 200, 200, 200, 255}, got.Samples)
	})
	t.Run("grayalpha16", func(t *testing.T) {
		b := &Buffer{Width: 1, Height: 1, Layout: GrayAlpha, Depth: 16, Samples: []byte{0x12, 0x34, 0x00, 0x80}}
		got := b.ToRGBA()
		assert.Equal(t, []byte{0x12, 0x34, 0x12, 0x34, 0x12, 0x34, 0x00, 0x80}, got.Samples)
	})
	t.Run("rgb16", func(t *testing.T) {
		b := &Buffer{Width: 1, Height: 1, Layout: RGB, Depth: 16, Samples: []byte{1, 2, 3, 4, 5, 6}}
		got := b.ToRGBA()
		assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 0xff, 0xff}, got.Samples)
	})
	t.Run("rgba passthrough", func(t *testing.T) {
		b := NewBuffer(1, 1, RGBA, 8)
		assert.Same(t, b, b.ToRGBA())
	})
}

func TestImage(t *testing.T) {
	gray := &Buffer{Width: 2, Height: 1, Layout: Gray, Depth: 8, Samples: []byte{1, 2}}
	img, ok := gray.Image().(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, color.Gray{Y: 2}, img.GrayAt(1, 0))

	rgb := &Buffer{Width: 1, Height: 1, Layout: RGB, Depth: 8, Samples: []byte{9, 8, 7}}
	rimg, ok := rgb.Image().(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, color.RGBA{9, 8, 7, 255}, rimg.RGBAAt(0, 0))

	ga := &Buffer{Width: 1, Height: 1, Layout: GrayAlpha, Depth: 16, Samples: []byte{0, 1, 0, 2}}
	nimg, ok := ga.Image().(*image.NRGBA64)
	require.True(t, ok)
	assert.Equal(t, color.NRGBA64{1, 1, 1, 2}, nimg.NRGBA64At(0, 0))

	cfg := ga.Config()
	assert.Equal(t, color.NRGBA64Model, cfg.ColorModel)
	assert.Equal(t, 1, cfg.Width)
}

func TestStats(t *testing.T) {
	b := &Buffer{Width: 2, Height: 2, Layout: GrayAlpha, Depth: 8, Samples: []byte{
		0, 255, 10, 255,
		20, 0, 30, 255,
	}}
	stats := b.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, uint16(0), stats[0].Min)
	assert.Equal(t, uint16(30), stats[0].Max)
	assert.InDelta(t, 15.0, stats[0].Mean, 1e-9)
	assert.Equal(t, uint16(0), stats[1].Min)
	assert.Equal(t, uint16(255), stats[1].Max)
}
