package netpbm

import (
	"log/slog"

	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/jpfielding/pixdec.go/pkg/pixel"
)

// PPMHeader is a parsed P6 or P3 header.
type PPMHeader struct {
	Magic  string `json:"magic"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	MaxVal int    `json:"maxval"`
}

// Plain reports whether the raster is ASCII decimal (P3).
func (h *PPMHeader) Plain() bool {
	return h.Magic == MagicPPMPlain
}

// DecodePPM decodes a PPM image into an RGB buffer, 8-bit when maxval is at
// most 255 and 16-bit otherwise.
func DecodePPM(data []byte, opts ...*pixel.Options) (*pixel.Buffer, error) {
	o := pixel.Resolve(opts)
	h, t, err := readPPMHeader(data)
	if err != nil {
		return nil, err
	}
	start := 0
	if !h.Plain() {
		if start, err = t.raster(); err != nil {
			return nil, err
		}
	}
	slog.Debug("ppm header", slog.String("magic", h.Magic), slog.Int("width", h.Width),
		slog.Int("height", h.Height), slog.Int("maxval", h.MaxVal))

	r := raster{op: "ppm", width: h.Width, height: h.Height, layout: pixel.RGB, maxval: h.MaxVal, plain: h.Plain()}
	return r.decode(t, start, o)
}

// DecodePPMHeader parses only the header.
func DecodePPMHeader(data []byte) (*PPMHeader, error) {
	h, _, err := readPPMHeader(data)
	return h, err
}

func readPPMHeader(data []byte) (*PPMHeader, *tokenizer, error) {
	t := &tokenizer{op: "ppm", data: data}
	magic, _, err := t.next()
	if err != nil || (magic != MagicPPM && magic != MagicPPMPlain) {
		return nil, nil, imgerr.New(imgerr.ErrFormat, "ppm", "not a PPM file").WithField("magic").At(0)
	}
	h := &PPMHeader{Magic: magic}
	if h.Width, err = t.number("width", 1, 1<<31-1); err != nil {
		return nil, nil, err
	}
	if h.Height, err = t.number("height", 1, 1<<31-1); err != nil {
		return nil, nil, err
	}
	if h.MaxVal, err = t.number("maxval", 1, 0xffff); err != nil {
		return nil, nil, err
	}
	return h, t, nil
}
