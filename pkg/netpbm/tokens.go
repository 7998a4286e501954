// Package netpbm decodes the uncompressed Netpbm formats PAM (P7) and
// PPM (P6 binary, P3 plain) into a pixel.Buffer.
//
// See http://netpbm.sourceforge.net/doc/pam.html and
// http://netpbm.sourceforge.net/doc/ppm.html.
package netpbm

import (
	"strconv"

	"github.com/jpfielding/pixdec.go/pkg/imgerr"
)

// Magic numbers
const (
	MagicPAM      = "P7"
	MagicPPM      = "P6"
	MagicPPMPlain = "P3"
)

// tokenizer splits a Netpbm header into whitespace separated tokens,
// dropping '#' comments through the end of the line.
type tokenizer struct {
	op   string
	data []byte
	pos  int
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// next returns the next token and its offset.
func (t *tokenizer) next() (string, int, error) {
	for t.pos < len(t.data) {
		b := t.data[t.pos]
		switch {
		case isSpace(b):
			t.pos++
		case b == '#':
			for t.pos < len(t.data) && t.data[t.pos] != '\n' && t.data[t.pos] != '\r' {
				t.pos++
			}
		default:
			start := t.pos
			for t.pos < len(t.data) && !isSpace(t.data[t.pos]) && t.data[t.pos] != '#' {
				t.pos++
			}
			return string(t.data[start:t.pos]), start, nil
		}
	}
	return "", t.pos, imgerr.New(imgerr.ErrTruncated, t.op, "header ends early").At(t.pos)
}

// number reads a decimal token in [lo, hi].
func (t *tokenizer) number(field string, lo, hi int) (int, error) {
	tok, off, err := t.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil || v < lo || v > hi {
		return 0, imgerr.New(imgerr.ErrFormat, t.op, "%q not in [%d, %d]", tok, lo, hi).WithField(field).At(off)
	}
	return v, nil
}

// raster consumes the single whitespace byte that ends a header and
// returns the offset of the first sample.
func (t *tokenizer) raster() (int, error) {
	if t.pos >= len(t.data) {
		return 0, imgerr.New(imgerr.ErrTruncated, t.op, "no raster after header").At(t.pos)
	}
	if !isSpace(t.data[t.pos]) {
		return 0, imgerr.New(imgerr.ErrFormat, t.op, "header not followed by whitespace").At(t.pos)
	}
	return t.pos + 1, nil
}
