package netpbm

import (
	"encoding/binary"
	"strconv"

	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/jpfielding/pixdec.go/pkg/pixel"
)

// raster describes the sample data that follows a header.
type raster struct {
	op     string
	width  int
	height int
	layout pixel.Layout
	maxval int
	plain  bool // decimal tokens instead of binary samples
}

func (r raster) depth() int {
	if r.maxval > 255 {
		return 16
	}
	return 8
}

// decode reads the samples starting at t's position (plain) or at start
// (binary), validating each against maxval and stretching it to the full
// range of the output depth.
func (r raster) decode(t *tokenizer, start int, o *pixel.Options) (*pixel.Buffer, error) {
	depth := r.depth()
	channels := r.layout.Channels()
	if o.ToRGBA {
		channels = 4
	}
	if err := o.Limits.Check(r.op, r.width, r.height, channels, depth); err != nil {
		return nil, err
	}

	buf := pixel.NewBuffer(r.width, r.height, r.layout, depth)
	n := r.width * r.height * r.layout.Channels()
	full := 1<<depth - 1
	bps := depth / 8

	if !r.plain {
		need := n * bps
		if avail := len(t.data) - start; avail < need {
			return nil, imgerr.New(imgerr.ErrTruncated, r.op, "raster has %d bytes, need %d", avail, need).At(start)
		}
		src := t.data[start : start+need]
		if r.maxval == full {
			copy(buf.Samples, src)
			return r.finish(buf, o), nil
		}
		for i := 0; i < n; i++ {
			v := int(src[i])
			if bps == 2 {
				v = int(binary.BigEndian.Uint16(src[2*i:]))
			}
			if v > r.maxval {
				return nil, r.tooBig(v, start+i*bps)
			}
			r.store(buf, i, v, full)
		}
		return r.finish(buf, o), nil
	}

	for i := 0; i < n; i++ {
		tok, off, err := t.next()
		if err != nil {
			return nil, imgerr.New(imgerr.ErrTruncated, r.op, "raster has %d samples, need %d", i, n).At(off)
		}
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 {
			return nil, imgerr.New(imgerr.ErrFormat, r.op, "sample %q", tok).WithField("sample").At(off)
		}
		if v > r.maxval {
			return nil, r.tooBig(v, off)
		}
		r.store(buf, i, v, full)
	}
	return r.finish(buf, o), nil
}

func (r raster) tooBig(v, off int) error {
	return imgerr.New(imgerr.ErrFormat, r.op, "sample %d > maxval %d", v, r.maxval).WithField("sample").At(off)
}

// store writes sample i rescaled from [0, maxval] to [0, full].
func (r raster) store(buf *pixel.Buffer, i, v, full int) {
	if r.maxval != full {
		v = (v*full + r.maxval/2) / r.maxval
	}
	if full == 0xff {
		buf.Samples[i] = byte(v)
		return
	}
	binary.BigEndian.PutUint16(buf.Samples[2*i:], uint16(v))
}

func (r raster) finish(buf *pixel.Buffer, o *pixel.Options) *pixel.Buffer {
	if o.ToRGBA {
		return buf.ToRGBA()
	}
	return buf
}
