package png

import (
	"github.com/jpfielding/pixdec.go/pkg/imgerr"
)

// FilterType is the per-scanline filter byte.
type FilterType uint8

const (
	FilterNone    FilterType = 0
	FilterSub     FilterType = 1
	FilterUp      FilterType = 2
	FilterAverage FilterType = 3
	FilterPaeth   FilterType = 4
)

// Unfilter reverses the scanline filters of an inflated stream holding
// height rows of 1+rowBytes bytes. stride is the filter's bytes-per-pixel.
// The result is height*rowBytes bytes with the filter bytes removed.
func Unfilter(data []byte, height, rowBytes, stride int) ([]byte, error) {
	need := height * (rowBytes + 1)
	if len(data) < need {
		return nil, imgerr.New(imgerr.ErrTruncated, "png", "inflated %d bytes, need %d for %d rows", len(data), need, height).
			InChunk(ChunkIDAT)
	}
	out := make([]byte, height*rowBytes)
	prev := make([]byte, rowBytes)
	for y := 0; y < height; y++ {
		line := data[y*(rowBytes+1) : (y+1)*(rowBytes+1)]
		cur := out[y*rowBytes : (y+1)*rowBytes]
		copy(cur, line[1:])
		if err := unfilterRow(FilterType(line[0]), cur, prev, stride); err != nil {
			// offset into the inflated stream
			return nil, err.At(y * (rowBytes + 1))
		}
		prev = cur
	}
	return out, nil
}

// unfilterRow reconstructs cur in place. prev is the previous reconstructed
// row, all zeros for the first.
func unfilterRow(ft FilterType, cur, prev []byte, bpp int) *imgerr.Error {
	n := len(cur)
	lead := min(bpp, n)
	switch ft {
	case FilterNone:
	case FilterSub:
		for i := bpp; i < n; i++ {
			cur[i] += cur[i-bpp]
		}
	case FilterUp:
		for i, p := range prev {
			cur[i] += p
		}
	case FilterAverage:
		for i := 0; i < lead; i++ {
			cur[i] += prev[i] / 2
		}
		for i := bpp; i < n; i++ {
			cur[i] += uint8((int(cur[i-bpp]) + int(prev[i])) / 2)
		}
	case FilterPaeth:
		// a and c are zero for the first pixel, which reduces to Up
		for i := 0; i < lead; i++ {
			cur[i] += prev[i]
		}
		for i := bpp; i < n; i++ {
			cur[i] += paeth(cur[i-bpp], prev[i], prev[i-bpp])
		}
	default:
		return imgerr.New(imgerr.ErrFormat, "png", "filter type %d", ft).InChunk(ChunkIDAT).WithField("filter type")
	}
	return nil
}

// paeth picks whichever of left, above or upper-left is closest to
// a + b - c, preferring a then b on ties.
func paeth(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
