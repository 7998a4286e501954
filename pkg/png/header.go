package png

import (
	"encoding/binary"
	"fmt"

	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/jpfielding/pixdec.go/pkg/pixel"
)

// ColorType is the IHDR color type field.
type ColorType uint8

const (
	ColorGray      ColorType = 0
	ColorRGB       ColorType = 2
	ColorPalette   ColorType = 3
	ColorGrayAlpha ColorType = 4
	ColorRGBA      ColorType = 6
)

func (c ColorType) String() string {
	switch c {
	case ColorGray:
		return "gray"
	case ColorRGB:
		return "rgb"
	case ColorPalette:
		return "palette"
	case ColorGrayAlpha:
		return "gray-alpha"
	case ColorRGBA:
		return "rgba"
	}
	return fmt.Sprintf("ColorType(%d)", uint8(c))
}

// Channels is the number of samples per pixel as stored in the file.
func (c ColorType) Channels() int {
	switch c {
	case ColorRGB:
		return 3
	case ColorGrayAlpha:
		return 2
	case ColorRGBA:
		return 4
	}
	return 1
}

// pixfmt is the (color type, bit depth) pair the assembler switches on.
type pixfmt int

const (
	fmtInvalid pixfmt = iota
	fmtG1
	fmtG2
	fmtG4
	fmtG8
	fmtG16
	fmtRGB8
	fmtRGB16
	fmtP1
	fmtP2
	fmtP4
	fmtP8
	fmtGA8
	fmtGA16
	fmtRGBA8
	fmtRGBA16
)

var pixfmts = map[ColorType]map[uint8]pixfmt{
	ColorGray:      {1: fmtG1, 2: fmtG2, 4: fmtG4, 8: fmtG8, 16: fmtG16},
	ColorRGB:       {8: fmtRGB8, 16: fmtRGB16},
	ColorPalette:   {1: fmtP1, 2: fmtP2, 4: fmtP4, 8: fmtP8},
	ColorGrayAlpha: {8: fmtGA8, 16: fmtGA16},
	ColorRGBA:      {8: fmtRGBA8, 16: fmtRGBA16},
}

// Header is the decoded IHDR chunk.
type Header struct {
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	BitDepth    uint8     `json:"bit_depth"`
	ColorType   ColorType `json:"color_type"`
	Compression uint8     `json:"compression"`
	Filter      uint8     `json:"filter"`
	Interlace   uint8     `json:"interlace"`

	format pixfmt
}

// ParseHeader validates an IHDR chunk.
func ParseHeader(c Chunk) (*Header, error) {
	bad := func(field, format string, args ...any) error {
		return imgerr.New(imgerr.ErrFormat, "png", format, args...).InChunk(ChunkIHDR).WithField(field).At(c.Offset)
	}
	if len(c.Data) != 13 {
		return nil, bad("length", "IHDR is %d bytes, want 13", len(c.Data))
	}
	d := c.Data
	w := binary.BigEndian.Uint32(d[0:4])
	h := binary.BigEndian.Uint32(d[4:8])
	if w == 0 || w > maxChunkLength {
		return nil, bad("width", "width %d", w)
	}
	if h == 0 || h > maxChunkLength {
		return nil, bad("height", "height %d", h)
	}
	hdr := &Header{
		Width:       int(w),
		Height:      int(h),
		BitDepth:    d[8],
		ColorType:   ColorType(d[9]),
		Compression: d[10],
		Filter:      d[11],
		Interlace:   d[12],
	}

	depths, ok := pixfmts[hdr.ColorType]
	if !ok {
		return nil, bad("color type", "color type %d", d[9])
	}
	hdr.format, ok = depths[hdr.BitDepth]
	if !ok {
		return nil, bad("bit depth", "bit depth %d not allowed for %s", hdr.BitDepth, hdr.ColorType)
	}
	if hdr.Compression != 0 {
		return nil, bad("compression method", "compression method %d", hdr.Compression)
	}
	if hdr.Filter != 0 {
		return nil, bad("filter method", "filter method %d", hdr.Filter)
	}
	switch hdr.Interlace {
	case 0:
	case 1:
		return nil, imgerr.New(imgerr.ErrUnsupportedCompression, "png", "Adam7 interlacing").
			InChunk(ChunkIHDR).WithField("interlace method").At(c.Offset)
	default:
		return nil, bad("interlace method", "interlace method %d", hdr.Interlace)
	}
	return hdr, nil
}

// BitsPerPixel is bit depth times the stored channel count.
func (h *Header) BitsPerPixel() int {
	return int(h.BitDepth) * h.ColorType.Channels()
}

// RowBytes is the unfiltered scanline length, without the filter byte.
func (h *Header) RowBytes() int {
	return (h.BitsPerPixel()*h.Width + 7) / 8
}

// FilterStride is the byte distance to the corresponding byte of the
// pixel to the left, never less than 1.
func (h *Header) FilterStride() int {
	return max(1, h.BitsPerPixel()/8)
}

// Layout returns the output layout and depth for this header.
// Palette images expand to RGB, and a tRNS chunk adds an alpha channel.
func (h *Header) Layout(transparent bool) (pixel.Layout, int) {
	depth := 8
	if h.BitDepth == 16 {
		depth = 16
	}
	var l pixel.Layout
	switch h.ColorType {
	case ColorGray:
		l = pixel.Gray
		if transparent {
			l = pixel.GrayAlpha
		}
	case ColorRGB, ColorPalette:
		l = pixel.RGB
		if transparent {
			l = pixel.RGBA
		}
	case ColorGrayAlpha:
		l = pixel.GrayAlpha
	default:
		l = pixel.RGBA
	}
	return l, depth
}

func (h *Header) String() string {
	return fmt.Sprintf("%dx%d %s/%d", h.Width, h.Height, h.ColorType, h.BitDepth)
}

// ParsePalette validates a PLTE chunk against the header.
func ParsePalette(h *Header, c Chunk) ([]byte, error) {
	if h.ColorType == ColorGray || h.ColorType == ColorGrayAlpha {
		return nil, imgerr.New(imgerr.ErrStructural, "png", "PLTE not allowed for %s", h.ColorType).InChunk(ChunkPLTE).At(c.Offset)
	}
	n := len(c.Data)
	if n == 0 || n%3 != 0 || n/3 > 256 {
		return nil, imgerr.New(imgerr.ErrFormat, "png", "palette length %d", n).InChunk(ChunkPLTE).WithField("length").At(c.Offset)
	}
	if h.ColorType == ColorPalette && n/3 > 1<<h.BitDepth {
		return nil, imgerr.New(imgerr.ErrFormat, "png", "%d entries for bit depth %d", n/3, h.BitDepth).
			InChunk(ChunkPLTE).WithField("length").At(c.Offset)
	}
	return c.Data, nil
}

// transparency holds a decoded tRNS chunk.
type transparency struct {
	alpha []byte    // per palette entry
	key   [3]uint16 // gray uses key[0]
}

// parseTransparency validates a tRNS chunk against the header and palette.
func parseTransparency(h *Header, palette []byte, c Chunk) (*transparency, error) {
	bad := func(format string, args ...any) error {
		return imgerr.New(imgerr.ErrFormat, "png", format, args...).InChunk(ChunkTRNS).WithField("length").At(c.Offset)
	}
	t := &transparency{}
	d := c.Data
	switch h.ColorType {
	case ColorGray:
		if len(d) != 2 {
			return nil, bad("gray key is %d bytes, want 2", len(d))
		}
		t.key[0] = binary.BigEndian.Uint16(d)
	case ColorRGB:
		if len(d) != 6 {
			return nil, bad("rgb key is %d bytes, want 6", len(d))
		}
		for i := range t.key {
			t.key[i] = binary.BigEndian.Uint16(d[2*i:])
		}
	case ColorPalette:
		if palette == nil {
			return nil, imgerr.New(imgerr.ErrStructural, "png", "tRNS before PLTE").InChunk(ChunkTRNS).At(c.Offset)
		}
		if len(d) > len(palette)/3 {
			return nil, bad("%d alpha entries for %d palette entries", len(d), len(palette)/3)
		}
		t.alpha = d
	default:
		return nil, imgerr.New(imgerr.ErrStructural, "png", "tRNS not allowed for %s", h.ColorType).InChunk(ChunkTRNS).At(c.Offset)
	}
	return t, nil
}
