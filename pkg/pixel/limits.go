package pixel

import (
	"math"

	"github.com/jpfielding/pixdec.go/pkg/imgerr"
)

// Limits bounds the size of an image a decoder is willing to allocate.
// A zero or negative field means no limit for that dimension. Decoders
// replace an all-zero Limits with DefaultLimits, so use NoLimits to turn
// every check off.
type Limits struct {
	MaxWidth  int
	MaxHeight int
	MaxPixels int64 // width * height
	MaxBytes  int64 // size of Buffer.Samples
}

// DefaultLimits returns the limits used when a caller passes none.
func DefaultLimits() Limits {
	return Limits{
		MaxWidth:  1 << 14,
		MaxHeight: 1 << 14,
		MaxPixels: 1 << 28,
		MaxBytes:  1 << 30,
	}
}

// NoLimits disables every size check.
func NoLimits() Limits {
	return Limits{MaxWidth: -1, MaxHeight: -1, MaxPixels: -1, MaxBytes: -1}
}

// Check validates declared dimensions before anything is allocated.
// channels and depth describe the output buffer the decoder would build.
func (l Limits) Check(op string, width, height, channels, depth int) error {
	if width <= 0 || height <= 0 {
		return imgerr.New(imgerr.ErrFormat, op, "invalid dimensions %dx%d", width, height).WithField("dimensions")
	}
	if l.MaxWidth > 0 && width > l.MaxWidth {
		return imgerr.New(imgerr.ErrLimitExceeded, op, "width %d > %d", width, l.MaxWidth).WithField("width")
	}
	if l.MaxHeight > 0 && height > l.MaxHeight {
		return imgerr.New(imgerr.ErrLimitExceeded, op, "height %d > %d", height, l.MaxHeight).WithField("height")
	}
	pixels := int64(width) * int64(height)
	if l.MaxPixels > 0 && pixels > l.MaxPixels {
		return imgerr.New(imgerr.ErrLimitExceeded, op, "%d pixels > %d", pixels, l.MaxPixels)
	}
	bytesPerSample := int64(1)
	if depth > 8 {
		bytesPerSample = 2
	}
	per := int64(max(channels, 1)) * bytesPerSample
	size := int64(math.MaxInt64)
	if pixels <= math.MaxInt64/per {
		size = pixels * per
	}
	if l.MaxBytes > 0 && size > l.MaxBytes {
		return imgerr.New(imgerr.ErrLimitExceeded, op, "%d sample bytes > %d", size, l.MaxBytes)
	}
	return nil
}

// Options configures the decoders that have no format-specific settings.
type Options struct {
	// Limits is checked against the declared header before allocating.
	// The zero value means DefaultLimits; NoLimits disables the checks.
	Limits Limits
	// ToRGBA normalizes every buffer to the RGBA layout at its own depth.
	ToRGBA bool
}

// DefaultOptions returns the options used when a caller passes none.
func DefaultOptions() *Options {
	return &Options{Limits: DefaultLimits()}
}

// Resolve picks the first non-nil option set, filling in defaults.
func Resolve(opts []*Options) *Options {
	if len(opts) == 0 || opts[0] == nil {
		return DefaultOptions()
	}
	o := *opts[0]
	if o.Limits == (Limits{}) {
		o.Limits = DefaultLimits()
	}
	return &o
}
