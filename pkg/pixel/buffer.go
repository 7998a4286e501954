// Package pixel holds the decoded pixel buffer handed out by every decoder in
// this module, along with the limits and options they share.
package pixel

import (
	"encoding/binary"
	"fmt"
)

// Layout is the channel layout of a Buffer.
type Layout int

const (
	Gray Layout = iota
	GrayAlpha
	RGB
	RGBA
)

// Channels returns the number of samples per pixel.
func (l Layout) Channels() int {
	switch l {
	case Gray:
		return 1
	case GrayAlpha:
		return 2
	case RGB:
		return 3
	case RGBA:
		return 4
	}
	return 0
}

// HasAlpha reports whether the last channel is alpha.
func (l Layout) HasAlpha() bool {
	return l == GrayAlpha || l == RGBA
}

func (l Layout) String() string {
	switch l {
	case Gray:
		return "gray"
	case GrayAlpha:
		return "gray-alpha"
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

// MarshalText lets layouts print by name in JSON output.
func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Layout) UnmarshalText(text []byte) error {
	for _, c := range []Layout{Gray, GrayAlpha, RGB, RGBA} {
		if c.String() == string(text) {
			*l = c
			return nil
		}
	}
	return fmt.Errorf("unknown layout %q", text)
}

// Buffer is a decoded image: row-major, top-to-bottom samples with no row
// padding. 16-bit samples are stored big-endian, matching image.Gray16 and
// friends.
type Buffer struct {
	Width   int
	Height  int
	Layout  Layout
	Depth   int // bits per sample, 8 or 16
	Samples []byte
}

// NewBuffer allocates a zeroed buffer. Callers validate dimensions against
// Limits first.
func NewBuffer(width, height int, layout Layout, depth int) *Buffer {
	b := &Buffer{
		Width:  width,
		Height: height,
		Layout: layout,
		Depth:  depth,
	}
	b.Samples = make([]byte, b.Stride()*height)
	return b
}

// Channels is a shortcut for b.Layout.Channels().
func (b *Buffer) Channels() int {
	return b.Layout.Channels()
}

// BytesPerSample is 1 or 2.
func (b *Buffer) BytesPerSample() int {
	return b.Depth / 8
}

// Stride is the number of bytes per row.
func (b *Buffer) Stride() int {
	return b.Width * b.Channels() * b.BytesPerSample()
}

// At returns sample c of the pixel at (x, y).
func (b *Buffer) At(x, y, c int) uint16 {
	bps := b.BytesPerSample()
	i := y*b.Stride() + (x*b.Channels()+c)*bps
	if bps == 2 {
		return binary.BigEndian.Uint16(b.Samples[i:])
	}
	return uint16(b.Samples[i])
}

// Set stores v as sample c of the pixel at (x, y). 8-bit buffers keep the
// low byte.
func (b *Buffer) Set(x, y, c int, v uint16) {
	bps := b.BytesPerSample()
	i := y*b.Stride() + (x*b.Channels()+c)*bps
	if bps == 2 {
		binary.BigEndian.PutUint16(b.Samples[i:], v)
		return
	}
	b.Samples[i] = byte(v)
}

func (b *Buffer) String() string {
	return fmt.Sprintf("%dx%d %s/%d", b.Width, b.Height, b.Layout, b.Depth)
}
