// Package png decodes non-interlaced PNG images from a byte buffer into a
// pixel.Buffer.
//
// Decoding is a single pass: the chunk reader validates framing, CRCs and
// ordering, IDAT payloads are concatenated and inflated, scanline filters
// are reversed, and the assembler expands palette, sub-byte and tRNS data
// into the output layout.
package png

import (
	"errors"
	"io"
	"log/slog"

	"github.com/jpfielding/pixdec.go/pkg/compress/inflate"
	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/jpfielding/pixdec.go/pkg/pixel"
)

// Options configures Decode.
type Options struct {
	// Limits is checked against IHDR before anything is allocated.
	// The zero value means pixel.DefaultLimits; pixel.NoLimits disables
	// the checks.
	Limits pixel.Limits
	// ToRGBA normalizes the result to the RGBA layout.
	ToRGBA bool
	// Inflater decodes the IDAT stream, inflate.Native when nil.
	Inflater inflate.Inflater
	// StrictCRC fails on ancillary chunks with a bad CRC instead of
	// skipping them.
	StrictCRC bool
}

// DefaultOptions returns the options used when a caller passes none.
func DefaultOptions() *Options {
	return &Options{
		Limits:   pixel.DefaultLimits(),
		Inflater: inflate.Native{},
	}
}

func resolve(opts []*Options) *Options {
	if len(opts) == 0 || opts[0] == nil {
		return DefaultOptions()
	}
	o := *opts[0]
	if o.Limits == (pixel.Limits{}) {
		o.Limits = pixel.DefaultLimits()
	}
	if o.Inflater == nil {
		o.Inflater = inflate.Native{}
	}
	return &o
}

// stage tracks decoding progress for logging.
type stage int

const (
	stageStart stage = iota
	stageHeaderParsed
	stagePaletteLoaded
	stageStreamAssembled
	stageFiltered
	stageAssembled
)

func (s stage) String() string {
	switch s {
	case stageStart:
		return "start"
	case stageHeaderParsed:
		return "header-parsed"
	case stagePaletteLoaded:
		return "palette-loaded"
	case stageStreamAssembled:
		return "stream-assembled"
	case stageFiltered:
		return "filtered"
	case stageAssembled:
		return "assembled"
	}
	return "unknown"
}

// decoder holds the state of one Decode call.
type decoder struct {
	opts    *Options
	stage   stage
	header  *Header
	palette []byte
	trns    *transparency
	idat    [][]byte
	idatLen int
}

func (d *decoder) advance(s stage, attrs ...any) {
	d.stage = s
	slog.Debug("png stage", append([]any{slog.String("stage", s.String())}, attrs...)...)
}

// Decode decodes a complete PNG file. Either the whole image is returned or
// an *imgerr.Error; there is no partial result.
func Decode(data []byte, opts ...*Options) (*pixel.Buffer, error) {
	d := &decoder{opts: resolve(opts)}
	cr, err := NewChunkReader(data, d.opts.StrictCRC)
	if err != nil {
		return nil, err
	}
	for {
		c, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := d.chunk(c); err != nil {
			return nil, err
		}
	}
	return d.finish()
}

// DecodeHeader reads only as far as IHDR.
func DecodeHeader(data []byte) (*Header, error) {
	cr, err := NewChunkReader(data, false)
	if err != nil {
		return nil, err
	}
	c, err := cr.Next()
	if err != nil {
		return nil, err
	}
	return ParseHeader(c)
}

func (d *decoder) chunk(c Chunk) error {
	switch c.Type {
	case ChunkIHDR:
		h, err := ParseHeader(c)
		if err != nil {
			return err
		}
		// tRNS may still add alpha, assume the wider layout until IDAT
		layout, depth := h.Layout(h.ColorType == ColorPalette || h.ColorType == ColorGray || h.ColorType == ColorRGB)
		if err := d.checkLimits(h, layout, depth); err != nil {
			return err
		}
		d.header = h
		d.advance(stageHeaderParsed, slog.String("header", h.String()))
	case ChunkPLTE:
		p, err := ParsePalette(d.header, c)
		if err != nil {
			return err
		}
		if d.header.ColorType == ColorPalette {
			d.palette = p
		}
		d.advance(stagePaletteLoaded, slog.Int("entries", len(p)/3))
	case ChunkTRNS:
		t, err := parseTransparency(d.header, d.palette, c)
		if err != nil {
			return err
		}
		d.trns = t
	case ChunkIDAT:
		if d.idat == nil && d.header.ColorType == ColorPalette && d.palette == nil {
			return imgerr.New(imgerr.ErrStructural, "png", "palette image without PLTE").InChunk(ChunkIDAT).At(c.Offset)
		}
		d.idat = append(d.idat, c.Data)
		d.idatLen += len(c.Data)
	case ChunkIEND:
	default:
		slog.Debug("skipping ancillary chunk", slog.String("chunk", c.Type), slog.Int("length", len(c.Data)))
	}
	return nil
}

func (d *decoder) checkLimits(h *Header, layout pixel.Layout, depth int) error {
	channels := layout.Channels()
	if d.opts.ToRGBA {
		channels = 4
	}
	if err := d.opts.Limits.Check("png", h.Width, h.Height, channels, depth); err != nil {
		var e *imgerr.Error
		if errors.As(err, &e) {
			e.InChunk(ChunkIHDR)
		}
		return err
	}
	return nil
}

func (d *decoder) finish() (*pixel.Buffer, error) {
	h := d.header
	stream := d.idat[0]
	if len(d.idat) > 1 {
		stream = make([]byte, 0, d.idatLen)
		for _, p := range d.idat {
			stream = append(stream, p...)
		}
	}
	d.advance(stageStreamAssembled, slog.Int("idat_chunks", len(d.idat)), slog.Int("compressed", len(stream)))

	rowBytes := h.RowBytes()
	expected := h.Height * (rowBytes + 1)
	inflated, err := d.opts.Inflater.Inflate(stream, expected)
	if err != nil {
		var e *imgerr.Error
		if errors.As(err, &e) && e.Chunk == "" {
			e.InChunk(ChunkIDAT)
		}
		return nil, err
	}
	rows, err := Unfilter(inflated, h.Height, rowBytes, h.FilterStride())
	if err != nil {
		return nil, err
	}
	d.advance(stageFiltered, slog.Int("inflated", len(inflated)))

	buf, err := assemble(h, rows, d.palette, d.trns)
	if err != nil {
		return nil, err
	}
	if d.opts.ToRGBA {
		buf = buf.ToRGBA()
	}
	d.advance(stageAssembled, slog.String("buffer", buf.String()))
	return buf, nil
}
