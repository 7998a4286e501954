package pixel

import (
	"image"
	"image/color"
)

// Image wraps the buffer in the closest standard library image type. The
// samples are copied so the result does not alias b.
//
//	Gray/8   -> *image.Gray       Gray/16   -> *image.Gray16
//	RGB/8    -> *image.RGBA       RGB/16    -> *image.RGBA64
//	*Alpha/8 -> *image.NRGBA      *Alpha/16 -> *image.NRGBA64
func (b *Buffer) Image() image.Image {
	r := image.Rect(0, 0, b.Width, b.Height)
	switch b.ColorModel() {
	case color.GrayModel:
		img := image.NewGray(r)
		copy(img.Pix, b.Samples)
		return img
	case color.Gray16Model:
		img := image.NewGray16(r)
		copy(img.Pix, b.Samples)
		return img
	case color.RGBAModel:
		img := image.NewRGBA(r)
		copy(img.Pix, b.ToRGBA().Samples)
		return img
	case color.RGBA64Model:
		img := image.NewRGBA64(r)
		copy(img.Pix, b.ToRGBA().Samples)
		return img
	case color.NRGBAModel:
		img := image.NewNRGBA(r)
		copy(img.Pix, b.ToRGBA().Samples)
		return img
	default:
		img := image.NewNRGBA64(r)
		copy(img.Pix, b.ToRGBA().Samples)
		return img
	}
}

// ColorModel is the model of the image Image returns.
func (b *Buffer) ColorModel() color.Model {
	wide := b.Depth == 16
	switch {
	case b.Layout == Gray && wide:
		return color.Gray16Model
	case b.Layout == Gray:
		return color.GrayModel
	case b.Layout == RGB && wide:
		return color.RGBA64Model
	case b.Layout == RGB:
		return color.RGBAModel
	case wide:
		return color.NRGBA64Model
	default:
		return color.NRGBAModel
	}
}

// Config reports the image.Config matching what Image would return.
func (b *Buffer) Config() image.Config {
	return image.Config{
		ColorModel: b.ColorModel(),
		Width:      b.Width,
		Height:     b.Height,
	}
}
