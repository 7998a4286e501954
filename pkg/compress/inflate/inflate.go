// Package inflate implements a zlib (RFC 1950) and DEFLATE (RFC 1951)
// decompressor over an in-memory buffer.
//
// Huffman codes are built canonically from code-length counts (no pointer
// trees); all state lives in a per-call decoder so concurrent calls share
// nothing.
package inflate

import (
	"encoding/binary"
	"hash/adler32"

	"github.com/jpfielding/pixdec.go/pkg/imgerr"
)

const (
	// windowSize is the largest back-reference distance DEFLATE allows.
	windowSize = 32768

	maxLitLen  = 286
	maxDist    = 30
	numCLCodes = 19

	// caps the up-front allocation when a caller passes a huge size hint
	maxPrealloc = 64 << 20
)

// Block types
const (
	blockStored  = 0
	blockFixed   = 1
	blockDynamic = 2
)

var (
	lengthBase = [29]uint16{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
		35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258}
	lengthExtra = [29]uint8{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0}
	distBase = [30]uint16{
		1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
		257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
		8193, 12289, 16385, 24577}
	distExtra = [30]uint8{
		0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
		7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13}
	// order in which code-length code lengths are transmitted
	clOrder = [numCLCodes]uint8{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}
)

// Options configures a single Inflate call.
type Options struct {
	// MaxOutput fails the call with ErrLimitExceeded once more bytes would be
	// produced. Zero means unlimited.
	MaxOutput int
	// SizeHint preallocates the output when the caller knows the size.
	SizeHint int
}

type decoder struct {
	br   *bitReader
	out  []byte
	max  int
	lit  *huffman // fixed tables, built on first use
	dist *huffman
}

// Inflate decompresses a zlib stream: 2-byte header, DEFLATE blocks and an
// Adler-32 trailer. Bytes after the trailer are ignored.
func Inflate(data []byte, opts ...*Options) ([]byte, error) {
	if len(data) < 2 {
		return nil, imgerr.New(imgerr.ErrTruncated, "inflate", "missing zlib header").At(0)
	}
	if err := checkHeader(data[0], data[1]); err != nil {
		return nil, err
	}

	d := newDecoder(data[2:], opts)
	if err := d.blocks(); err != nil {
		return nil, offsetBy(err, 2)
	}

	d.br.align()
	trailer, err := d.br.readBytes(4)
	if err != nil {
		return nil, imgerr.New(imgerr.ErrTruncated, "inflate", "missing Adler-32 trailer").At(d.br.offset() + 2)
	}
	want := binary.BigEndian.Uint32(trailer)
	if got := adler32.Checksum(d.out); got != want {
		return nil, imgerr.New(imgerr.ErrIntegrity, "inflate", "adler32 0x%08x != 0x%08x", got, want).
			At(d.br.offset() + 2 - 4)
	}
	return d.out, nil
}

// InflateRaw decompresses bare DEFLATE blocks with no zlib framing.
func InflateRaw(data []byte, opts ...*Options) ([]byte, error) {
	d := newDecoder(data, opts)
	if err := d.blocks(); err != nil {
		return nil, err
	}
	return d.out, nil
}

func newDecoder(data []byte, opts []*Options) *decoder {
	d := &decoder{br: newBitReader(data)}
	if len(opts) > 0 && opts[0] != nil {
		d.max = opts[0].MaxOutput
		if hint := opts[0].SizeHint; hint > 0 {
			d.out = make([]byte, 0, min(hint, maxPrealloc))
		}
	}
	return d
}

func checkHeader(cmf, flg byte) error {
	if cmf&0x0f != 8 {
		return imgerr.New(imgerr.ErrUnsupportedCompression, "inflate", "compression method %d", cmf&0x0f).
			WithField("CM").At(0)
	}
	if cmf>>4 > 7 {
		return imgerr.New(imgerr.ErrUnsupportedCompression, "inflate", "window size 2^%d", cmf>>4+8).
			WithField("CINFO").At(0)
	}
	if (uint16(cmf)<<8|uint16(flg))%31 != 0 {
		return imgerr.New(imgerr.ErrCorruptStream, "inflate", "header check bits").WithField("FCHECK").At(1)
	}
	if flg&0x20 != 0 {
		return imgerr.New(imgerr.ErrUnsupportedCompression, "inflate", "preset dictionary").WithField("FDICT").At(1)
	}
	return nil
}

// offsetBy shifts the offset of err to account for framing bytes.
func offsetBy(err error, n int) error {
	if e, ok := err.(*imgerr.Error); ok && e.Offset >= 0 {
		e.Offset += int64(n)
	}
	return err
}

// atOffset fills in the offset of err when it has none.
func atOffset(err error, off int) error {
	if e, ok := err.(*imgerr.Error); ok && e.Offset < 0 {
		e.Offset = int64(off)
	}
	return err
}

// blocks decodes DEFLATE blocks until the one flagged final.
func (d *decoder) blocks() error {
	for {
		final, err := d.br.readBits(1)
		if err != nil {
			return err
		}
		typ, err := d.br.readBits(2)
		if err != nil {
			return err
		}
		switch typ {
		case blockStored:
			err = d.stored()
		case blockFixed:
			err = d.fixed()
		case blockDynamic:
			err = d.dynamic()
		default:
			err = imgerr.New(imgerr.ErrCorruptStream, "inflate", "reserved block type 3").At(d.br.offset())
		}
		if err != nil {
			return err
		}
		if final == 1 {
			return nil
		}
	}
}

func (d *decoder) stored() error {
	d.br.align()
	hdr, err := d.br.readBytes(4)
	if err != nil {
		return err
	}
	n := binary.LittleEndian.Uint16(hdr[0:])
	nn := binary.LittleEndian.Uint16(hdr[2:])
	if n != ^nn {
		return imgerr.New(imgerr.ErrCorruptStream, "inflate", "stored block length %d does not match complement %d", n, nn).
			At(d.br.offset() - 4)
	}
	p, err := d.br.readBytes(int(n))
	if err != nil {
		return err
	}
	if err := d.grow(len(p)); err != nil {
		return err
	}
	d.out = append(d.out, p...)
	return nil
}

func (d *decoder) fixed() error {
	if d.lit == nil {
		var lengths [288 + maxDist]uint8
		for sym := 0; sym < 288; sym++ {
			switch {
			case sym < 144:
				lengths[sym] = 8
			case sym < 256:
				lengths[sym] = 9
			case sym < 280:
				lengths[sym] = 7
			default:
				lengths[sym] = 8
			}
		}
		for sym := 288; sym < len(lengths); sym++ {
			lengths[sym] = 5
		}
		// the fixed distance code is incomplete: 30 of 32 codes
		d.lit, _, _ = newHuffman(lengths[:288])
		d.dist, _, _ = newHuffman(lengths[288:])
	}
	return d.codes(d.lit, d.dist)
}

func (d *decoder) dynamic() error {
	start := d.br.offset()
	nlen, err := d.br.readBits(5)
	if err != nil {
		return err
	}
	ndist, err := d.br.readBits(5)
	if err != nil {
		return err
	}
	ncode, err := d.br.readBits(4)
	if err != nil {
		return err
	}
	hlit, hdist, hclen := int(nlen)+257, int(ndist)+1, int(ncode)+4
	if hlit > maxLitLen || hdist > maxDist {
		return imgerr.New(imgerr.ErrCorruptStream, "inflate", "%d literal/length and %d distance codes", hlit, hdist).At(start)
	}

	var clLengths [numCLCodes]uint8
	for i := 0; i < hclen; i++ {
		v, err := d.br.readBits(3)
		if err != nil {
			return err
		}
		clLengths[clOrder[i]] = uint8(v)
	}
	clCode, left, err := newHuffman(clLengths[:])
	if err != nil {
		return atOffset(err, start)
	}
	if left != 0 {
		return imgerr.New(imgerr.ErrCorruptStream, "inflate", "incomplete code-length code").At(start)
	}

	lengths := make([]uint8, hlit+hdist)
	for i := 0; i < len(lengths); {
		sym, err := clCode.decode(d.br)
		if err != nil {
			return err
		}
		if sym < 16 {
			lengths[i] = uint8(sym)
			i++
			continue
		}

		var val uint8
		var rep uint32
		switch sym {
		case 16:
			if i == 0 {
				return imgerr.New(imgerr.ErrCorruptStream, "inflate", "repeat with no previous length").At(d.br.offset())
			}
			val = lengths[i-1]
			rep, err = d.br.readBits(2)
			rep += 3
		case 17:
			rep, err = d.br.readBits(3)
			rep += 3
		default:
			rep, err = d.br.readBits(7)
			rep += 11
		}
		if err != nil {
			return err
		}
		if i+int(rep) > len(lengths) {
			return imgerr.New(imgerr.ErrCorruptStream, "inflate", "code lengths overrun %d symbols", len(lengths)).At(d.br.offset())
		}
		for ; rep > 0; rep-- {
			lengths[i] = val
			i++
		}
	}

	if lengths[256] == 0 {
		return imgerr.New(imgerr.ErrCorruptStream, "inflate", "no end-of-block code").At(start)
	}
	lit, err := buildTable(lengths[:hlit], start)
	if err != nil {
		return err
	}
	dist, err := buildTable(lengths[hlit:], start)
	if err != nil {
		return err
	}
	return d.codes(lit, dist)
}

// buildTable rejects over-subscribed and incomplete sets, except for the
// single one-bit code zlib itself emits.
func buildTable(lengths []uint8, offset int) (*huffman, error) {
	h, left, err := newHuffman(lengths)
	if err != nil {
		return nil, atOffset(err, offset)
	}
	if left > 0 && h.used() != int(h.count[1]) {
		return nil, imgerr.New(imgerr.ErrCorruptStream, "inflate", "incomplete code lengths").At(offset)
	}
	return h, nil
}

// codes decodes literal/length and distance symbols up to end-of-block.
func (d *decoder) codes(lit, dist *huffman) error {
	for {
		sym, err := lit.decode(d.br)
		if err != nil {
			return err
		}
		switch {
		case sym < 256:
			if err := d.grow(1); err != nil {
				return err
			}
			d.out = append(d.out, byte(sym))
			continue
		case sym == 256:
			return nil
		}

		sym -= 257
		if sym >= len(lengthBase) {
			return imgerr.New(imgerr.ErrCorruptStream, "inflate", "invalid length symbol %d", sym+257).At(d.br.offset())
		}
		extra, err := d.br.readBits(int(lengthExtra[sym]))
		if err != nil {
			return err
		}
		length := int(lengthBase[sym]) + int(extra)

		dsym, err := dist.decode(d.br)
		if err != nil {
			return err
		}
		if dsym >= len(distBase) {
			return imgerr.New(imgerr.ErrCorruptStream, "inflate", "invalid distance symbol %d", dsym).At(d.br.offset())
		}
		extra, err = d.br.readBits(int(distExtra[dsym]))
		if err != nil {
			return err
		}
		distance := int(distBase[dsym]) + int(extra)
		if distance > windowSize || distance > len(d.out) {
			return imgerr.New(imgerr.ErrCorruptStream, "inflate", "distance %d too far back (%d bytes produced)", distance, len(d.out)).
				At(d.br.offset())
		}

		if err := d.grow(length); err != nil {
			return err
		}
		// byte at a time: source and destination may overlap
		from := len(d.out) - distance
		for i := 0; i < length; i++ {
			d.out = append(d.out, d.out[from+i])
		}
	}
}

// grow checks that n more bytes fit under MaxOutput.
func (d *decoder) grow(n int) error {
	if d.max > 0 && len(d.out)+n > d.max {
		return imgerr.New(imgerr.ErrLimitExceeded, "inflate", "output exceeds %d bytes", d.max).At(d.br.offset())
	}
	return nil
}
