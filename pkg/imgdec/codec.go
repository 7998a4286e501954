// Package imgdec picks a decoder by sniffing the leading bytes of a file.
package imgdec

import (
	"bytes"
	"sort"

	"github.com/jpfielding/pixdec.go/pkg/compress/inflate"
	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/jpfielding/pixdec.go/pkg/netpbm"
	"github.com/jpfielding/pixdec.go/pkg/pixel"
	"github.com/jpfielding/pixdec.go/pkg/png"
)

// Codec defines the interface for a format decoder
type Codec interface {
	// Decode converts a complete file to a pixel buffer
	Decode(data []byte, opts *Options) (*pixel.Buffer, error)
	// Match reports whether data starts with this format's magic number
	Match(data []byte) bool
	// Name returns the codec identifier (e.g., "png")
	Name() string
	// Extensions lists the usual file name suffixes
	Extensions() []string
}

// Options is the union of the settings understood by every codec. Fields a
// codec has no use for are ignored.
type Options struct {
	Limits    pixel.Limits
	ToRGBA    bool
	Inflater  inflate.Inflater // png only
	StrictCRC bool             // png only
}

// DefaultOptions returns the options used when a caller passes none.
func DefaultOptions() *Options {
	return &Options{Limits: pixel.DefaultLimits()}
}

func (o *Options) pixelOptions() *pixel.Options {
	return &pixel.Options{Limits: o.Limits, ToRGBA: o.ToRGBA}
}

// pngCodec implements Codec for PNG
type pngCodec struct{}

func (c *pngCodec) Decode(data []byte, opts *Options) (*pixel.Buffer, error) {
	return png.Decode(data, &png.Options{
		Limits:    opts.Limits,
		ToRGBA:    opts.ToRGBA,
		Inflater:  opts.Inflater,
		StrictCRC: opts.StrictCRC,
	})
}

func (c *pngCodec) Match(data []byte) bool {
	return bytes.HasPrefix(data, []byte(png.Signature))
}

func (c *pngCodec) Name() string {
	return "png"
}

func (c *pngCodec) Extensions() []string {
	return []string{".png"}
}

// pamCodec implements Codec for PAM
type pamCodec struct{}

func (c *pamCodec) Decode(data []byte, opts *Options) (*pixel.Buffer, error) {
	return netpbm.DecodePAM(data, opts.pixelOptions())
}

func (c *pamCodec) Match(data []byte) bool {
	return bytes.HasPrefix(data, []byte(netpbm.MagicPAM))
}

func (c *pamCodec) Name() string {
	return "pam"
}

func (c *pamCodec) Extensions() []string {
	return []string{".pam"}
}

// ppmCodec implements Codec for binary and plain PPM
type ppmCodec struct{}

func (c *ppmCodec) Decode(data []byte, opts *Options) (*pixel.Buffer, error) {
	return netpbm.DecodePPM(data, opts.pixelOptions())
}

func (c *ppmCodec) Match(data []byte) bool {
	return bytes.HasPrefix(data, []byte(netpbm.MagicPPM)) || bytes.HasPrefix(data, []byte(netpbm.MagicPPMPlain))
}

func (c *ppmCodec) Name() string {
	return "ppm"
}

func (c *ppmCodec) Extensions() []string {
	return []string{".ppm", ".pnm"}
}

// codecsByName maps codec names to implementations
var codecsByName = map[string]Codec{
	"png": &pngCodec{},
	"pam": &pamCodec{},
	"ppm": &ppmCodec{},
}

// Predefined codec instances for convenience
var (
	CodecPNG Codec = codecsByName["png"]
	CodecPAM Codec = codecsByName["pam"]
	CodecPPM Codec = codecsByName["ppm"]
)

// CodecByName returns a codec by name, or nil if not found
func CodecByName(name string) Codec {
	return codecsByName[name]
}

// Codecs lists the registered codecs sorted by name.
func Codecs() []Codec {
	out := make([]Codec, 0, len(codecsByName))
	for _, c := range codecsByName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Sniff returns the codec whose magic number data starts with, or nil.
func Sniff(data []byte) Codec {
	for _, c := range Codecs() {
		if c.Match(data) {
			return c
		}
	}
	return nil
}

// Decode sniffs the format and decodes data, returning the codec name used.
func Decode(data []byte, opts ...*Options) (*pixel.Buffer, string, error) {
	o := DefaultOptions()
	if len(opts) > 0 && opts[0] != nil {
		o = opts[0]
	}
	c := Sniff(data)
	if c == nil {
		return nil, "", imgerr.New(imgerr.ErrFormat, "imgdec", "unrecognized magic % x", data[:min(len(data), 8)]).WithField("magic").At(0)
	}
	buf, err := c.Decode(data, o)
	if err != nil {
		return nil, c.Name(), err
	}
	return buf, c.Name(), nil
}
