package netpbm

import (
	"image"
	"io"

	"github.com/jpfielding/pixdec.go/pkg/pixel"
)

func decodeImage(fn func([]byte, ...*pixel.Options) (*pixel.Buffer, error)) func(io.Reader) (image.Image, error) {
	return func(r io.Reader) (image.Image, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		buf, err := fn(data)
		if err != nil {
			return nil, err
		}
		return buf.Image(), nil
	}
}

// DecodePAMConfig returns the dimensions and color model of a PAM image
// without reading the raster.
func DecodePAMConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	h, err := DecodePAMHeader(data)
	if err != nil {
		return image.Config{}, err
	}
	return config(h.Width, h.Height, h.Layout(), h.MaxVal), nil
}

// DecodePPMConfig returns the dimensions and color model of a PPM image
// without reading the raster.
func DecodePPMConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	h, err := DecodePPMHeader(data)
	if err != nil {
		return image.Config{}, err
	}
	return config(h.Width, h.Height, pixel.RGB, h.MaxVal), nil
}

func config(w, h int, layout pixel.Layout, maxval int) image.Config {
	b := pixel.Buffer{Width: w, Height: h, Layout: layout, Depth: 8}
	if maxval > 255 {
		b.Depth = 16
	}
	return b.Config()
}

func init() {
	image.RegisterFormat("pam", MagicPAM, decodeImage(DecodePAM), DecodePAMConfig)
	image.RegisterFormat("ppm", MagicPPM, decodeImage(DecodePPM), DecodePPMConfig)
	image.RegisterFormat("ppm", MagicPPMPlain, decodeImage(DecodePPM), DecodePPMConfig)
}
