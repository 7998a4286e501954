package netpbm

import (
	"log/slog"

	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/jpfielding/pixdec.go/pkg/pixel"
)

// TUPLTYPE values and the DEPTH each implies
var tupleDepths = map[string]int{
	"BLACKANDWHITE":       1,
	"GRAYSCALE":           1,
	"BLACKANDWHITE_ALPHA": 2,
	"GRAYSCALE_ALPHA":     2,
	"RGB":                 3,
	"RGB_ALPHA":           4,
}

var depthLayouts = [...]pixel.Layout{1: pixel.Gray, 2: pixel.GrayAlpha, 3: pixel.RGB, 4: pixel.RGBA}

// PAMHeader is a parsed P7 header.
type PAMHeader struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Depth     int    `json:"depth"`
	MaxVal    int    `json:"maxval"`
	TupleType string `json:"tupltype,omitempty"`
}

// Layout maps DEPTH onto a channel layout.
func (h *PAMHeader) Layout() pixel.Layout {
	return depthLayouts[h.Depth]
}

// DecodePAM decodes a binary PAM image. DEPTH 1 to 4 is read as gray,
// gray-alpha, RGB and RGBA; MAXVAL above 255 yields 16-bit samples.
func DecodePAM(data []byte, opts ...*pixel.Options) (*pixel.Buffer, error) {
	o := pixel.Resolve(opts)
	h, t, err := readPAMHeader(data)
	if err != nil {
		return nil, err
	}
	start, err := t.raster()
	if err != nil {
		return nil, err
	}
	slog.Debug("pam header", slog.Int("width", h.Width), slog.Int("height", h.Height),
		slog.Int("depth", h.Depth), slog.Int("maxval", h.MaxVal), slog.String("tupltype", h.TupleType))

	r := raster{op: "pam", width: h.Width, height: h.Height, layout: h.Layout(), maxval: h.MaxVal}
	return r.decode(t, start, o)
}

// DecodePAMHeader parses only the header.
func DecodePAMHeader(data []byte) (*PAMHeader, error) {
	h, _, err := readPAMHeader(data)
	return h, err
}

func readPAMHeader(data []byte) (*PAMHeader, *tokenizer, error) {
	t := &tokenizer{op: "pam", data: data}
	if magic, _, err := t.next(); err != nil || magic != MagicPAM {
		return nil, nil, imgerr.New(imgerr.ErrFormat, "pam", "not a PAM file").WithField("magic").At(0)
	}

	h := &PAMHeader{}
	seen := map[string]bool{}
	for {
		key, off, err := t.next()
		if err != nil {
			return nil, nil, err
		}
		if key == "ENDHDR" {
			break
		}
		if seen[key] {
			return nil, nil, imgerr.New(imgerr.ErrFormat, "pam", "duplicate %s", key).WithField(key).At(off)
		}
		seen[key] = true

		switch key {
		case "WIDTH":
			h.Width, err = t.number(key, 1, 1<<31-1)
		case "HEIGHT":
			h.Height, err = t.number(key, 1, 1<<31-1)
		case "DEPTH":
			h.Depth, err = t.number(key, 1, 4)
		case "MAXVAL":
			h.MaxVal, err = t.number(key, 1, 0xffff)
		case "TUPLTYPE":
			h.TupleType, _, err = t.next()
		default:
			return nil, nil, imgerr.New(imgerr.ErrFormat, "pam", "unknown header line %q", key).WithField(key).At(off)
		}
		if err != nil {
			return nil, nil, err
		}
	}

	for _, key := range []string{"WIDTH", "HEIGHT", "DEPTH", "MAXVAL"} {
		if !seen[key] {
			return nil, nil, imgerr.New(imgerr.ErrFormat, "pam", "missing %s", key).WithField(key)
		}
	}
	if want, ok := tupleDepths[h.TupleType]; ok && want != h.Depth {
		return nil, nil, imgerr.New(imgerr.ErrFormat, "pam", "TUPLTYPE %s with DEPTH %d", h.TupleType, h.Depth).WithField("TUPLTYPE")
	}
	return h, t, nil
}
