package inflate

import (
	"github.com/jpfielding/pixdec.go/pkg/imgerr"
)

// bitReader reads DEFLATE's LSB-first bit packing from a fixed buffer.
// After every read fewer than 8 bits remain buffered, so align only ever
// drops the unread tail of the current byte.
type bitReader struct {
	data []byte
	pos  int    // next byte to load into buf
	buf  uint32 // bit buffer, next bit in the LSB
	bits int    // number of valid bits in buf
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

// need loads whole bytes until at least n bits are buffered.
func (b *bitReader) need(n int) error {
	for b.bits < n {
		if b.pos >= len(b.data) {
			return imgerr.New(imgerr.ErrTruncated, "inflate", "stream ends inside a block").At(b.pos)
		}
		b.buf |= uint32(b.data[b.pos]) << b.bits
		b.pos++
		b.bits += 8
	}
	return nil
}

// readBits reads n bits (n <= 16), first bit in the LSB of the result.
func (b *bitReader) readBits(n int) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if err := b.need(n); err != nil {
		return 0, err
	}
	v := b.buf & (1<<n - 1)
	b.buf >>= n
	b.bits -= n
	return v, nil
}

// readBit reads a single bit.
func (b *bitReader) readBit() (uint32, error) {
	if b.bits == 0 {
		if err := b.need(1); err != nil {
			return 0, err
		}
	}
	v := b.buf & 1
	b.buf >>= 1
	b.bits--
	return v, nil
}

// align discards bits up to the next byte boundary.
func (b *bitReader) align() {
	b.buf = 0
	b.bits = 0
}

// readBytes returns the next n whole bytes. The reader must be aligned.
func (b *bitReader) readBytes(n int) ([]byte, error) {
	if n > len(b.data)-b.pos {
		return nil, imgerr.New(imgerr.ErrTruncated, "inflate", "need %d bytes, have %d", n, len(b.data)-b.pos).At(b.pos)
	}
	p := b.data[b.pos : b.pos+n]
	b.pos += n
	return p, nil
}

// offset is the index of the byte holding the next unread bit.
func (b *bitReader) offset() int {
	return b.pos - (b.bits+7)/8
}
