package inflate

import (
	"github.com/jpfielding/pixdec.go/pkg/imgerr"
)

const maxCodeBits = 15

// huffman is a canonical Huffman code: count[n] is the number of codes of
// length n and symbol lists the symbols ordered by (length, value).
type huffman struct {
	count  [maxCodeBits + 1]uint16
	symbol []uint16
}

// newHuffman builds a decoding table from per-symbol code lengths and
// returns how many codes are missing from a complete set (0 when complete).
// An over-subscribed set is an error.
func newHuffman(lengths []uint8) (*huffman, int, error) {
	h := &huffman{symbol: make([]uint16, len(lengths))}
	for _, l := range lengths {
		if l > maxCodeBits {
			return nil, 0, imgerr.New(imgerr.ErrCorruptStream, "inflate", "code length %d > %d", l, maxCodeBits)
		}
		h.count[l]++
	}
	if int(h.count[0]) == len(lengths) {
		// no codes; only an error if a symbol is ever decoded
		return h, 0, nil
	}

	left := 1
	for n := 1; n <= maxCodeBits; n++ {
		left <<= 1
		left -= int(h.count[n])
		if left < 0 {
			return nil, 0, imgerr.New(imgerr.ErrCorruptStream, "inflate", "over-subscribed code lengths")
		}
	}

	// first slot of each length in symbol
	var offs [maxCodeBits + 1]uint16
	for n := 1; n < maxCodeBits; n++ {
		offs[n+1] = offs[n] + h.count[n]
	}
	for sym, l := range lengths {
		if l != 0 {
			h.symbol[offs[l]] = uint16(sym)
			offs[l]++
		}
	}
	return h, left, nil
}

// used is the number of symbols with a non-zero code length.
func (h *huffman) used() int {
	n := 0
	for l := 1; l <= maxCodeBits; l++ {
		n += int(h.count[l])
	}
	return n
}

// decode reads one symbol. Codes are packed MSB-first within DEFLATE's
// LSB-first bit order, so the code is assembled one bit at a time.
func (h *huffman) decode(br *bitReader) (int, error) {
	code, first, index := 0, 0, 0
	for n := 1; n <= maxCodeBits; n++ {
		bit, err := br.readBit()
		if err != nil {
			return 0, err
		}
		code |= int(bit)
		count := int(h.count[n])
		if code-first < count {
			return int(h.symbol[index+code-first]), nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}
	return 0, imgerr.New(imgerr.ErrCorruptStream, "inflate", "invalid Huffman code").At(br.offset())
}
