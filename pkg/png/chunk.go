package png

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"log/slog"

	"github.com/jpfielding/pixdec.go/pkg/imgerr"
)

// Signature is the 8-byte PNG file signature.
const Signature = "\x89PNG\r\n\x1a\n"

// Critical chunk types
const (
	ChunkIHDR = "IHDR"
	ChunkPLTE = "PLTE"
	ChunkIDAT = "IDAT"
	ChunkIEND = "IEND"
	ChunkTRNS = "tRNS"
)

// chunks longer than this are malformed per the PNG length field rules
const maxChunkLength = 1<<31 - 1

// Chunk is a validated view into the input buffer.
type Chunk struct {
	Type   string
	Offset int // offset of the length field
	Data   []byte
	CRC    uint32
}

// Critical reports whether the chunk type's first letter is uppercase.
func (c Chunk) Critical() bool {
	return isCritical(c.Type)
}

func isCritical(typ string) bool {
	return typ[0]&0x20 == 0
}

// Demuxing stages. IHDR, PLTE and tRNS (if present), IDAT and IEND must
// appear in that order, and IDAT chunks must be contiguous.
const (
	dsStart = iota
	dsSeenIHDR
	dsSeenPLTE
	dsSeenIDAT
	dsAfterIDAT
	dsSeenIEND
)

// ChunkReader is a single forward cursor over a fully buffered PNG.
type ChunkReader struct {
	data      []byte
	off       int
	stage     int
	seenTRNS  bool
	strictCRC bool
}

// NewChunkReader checks the signature and positions the cursor on the
// first chunk. With strictCRC, ancillary chunks with a bad CRC fail the read
// instead of being skipped.
func NewChunkReader(data []byte, strictCRC bool) (*ChunkReader, error) {
	if len(data) < len(Signature) || string(data[:len(Signature)]) != Signature {
		return nil, imgerr.New(imgerr.ErrFormat, "png", "not a PNG file").WithField("signature").At(0)
	}
	return &ChunkReader{
		data:      data,
		off:       len(Signature),
		strictCRC: strictCRC,
	}, nil
}

// Next returns the next chunk, or io.EOF once IEND has been read.
func (r *ChunkReader) Next() (Chunk, error) {
	for {
		if r.stage == dsSeenIEND {
			return Chunk{}, io.EOF
		}
		if r.off == len(r.data) {
			return Chunk{}, imgerr.New(imgerr.ErrTruncated, "png", "missing IEND chunk").At(r.off)
		}
		c, crcOK, err := readChunk(r.data, r.off)
		if err != nil {
			return Chunk{}, err
		}
		r.off += 12 + len(c.Data)

		if !crcOK {
			if c.Critical() || r.strictCRC {
				return Chunk{}, imgerr.New(imgerr.ErrIntegrity, "png", "crc 0x%08x != 0x%08x", crcOf(c), c.CRC).
					InChunk(c.Type).At(c.Offset)
			}
			if c.Type == ChunkTRNS {
				slog.Warn("skipping tRNS with bad CRC, image decodes without transparency", slog.Int("offset", c.Offset))
				continue
			}
			slog.Warn("skipping ancillary chunk with bad CRC", slog.String("chunk", c.Type), slog.Int("offset", c.Offset))
			continue
		}
		if err := r.order(c); err != nil {
			return Chunk{}, err
		}
		return c, nil
	}
}

// order advances the demuxing stage, rejecting out-of-order chunks.
func (r *ChunkReader) order(c Chunk) error {
	structural := func(format string, args ...any) error {
		return imgerr.New(imgerr.ErrStructural, "png", format, args...).InChunk(c.Type).At(c.Offset)
	}
	if r.stage == dsStart && c.Type != ChunkIHDR {
		return structural("first chunk is %s, want IHDR", c.Type)
	}

	switch c.Type {
	case ChunkIHDR:
		if r.stage != dsStart {
			return structural("duplicate IHDR")
		}
		r.stage = dsSeenIHDR
	case ChunkPLTE:
		switch {
		case r.stage == dsSeenPLTE:
			return structural("duplicate PLTE")
		case r.stage >= dsSeenIDAT:
			return structural("PLTE after IDAT")
		case r.seenTRNS:
			return structural("PLTE after tRNS")
		}
		r.stage = dsSeenPLTE
	case ChunkTRNS:
		switch {
		case r.seenTRNS:
			return structural("duplicate tRNS")
		case r.stage >= dsSeenIDAT:
			return structural("tRNS after IDAT")
		}
		r.seenTRNS = true
	case ChunkIDAT:
		if r.stage == dsAfterIDAT {
			return structural("IDAT chunks are not contiguous")
		}
		r.stage = dsSeenIDAT
	case ChunkIEND:
		if len(c.Data) != 0 {
			return imgerr.New(imgerr.ErrFormat, "png", "IEND length %d, want 0", len(c.Data)).
				InChunk(c.Type).WithField("length").At(c.Offset)
		}
		if r.stage < dsSeenIDAT {
			return structural("IEND before any IDAT")
		}
		r.stage = dsSeenIEND
	default:
		if isCritical(c.Type) {
			return imgerr.New(imgerr.ErrUnsupportedCompression, "png", "unknown critical chunk").InChunk(c.Type).At(c.Offset)
		}
		if r.stage == dsSeenIDAT {
			r.stage = dsAfterIDAT
		}
	}
	return nil
}

// readChunk parses the chunk at off and reports whether its CRC matches.
func readChunk(data []byte, off int) (Chunk, bool, error) {
	if len(data)-off < 8 {
		return Chunk{}, false, imgerr.New(imgerr.ErrTruncated, "png", "need 8 bytes for chunk header, have %d", len(data)-off).At(off)
	}
	length := binary.BigEndian.Uint32(data[off:])
	typ := data[off+4 : off+8]
	for _, b := range typ {
		if !('a' <= b && b <= 'z' || 'A' <= b && b <= 'Z') {
			return Chunk{}, false, imgerr.New(imgerr.ErrFormat, "png", "chunk type %q", typ).WithField("chunk type").At(off + 4)
		}
	}
	if length > maxChunkLength {
		return Chunk{}, false, imgerr.New(imgerr.ErrFormat, "png", "chunk length %d", length).
			InChunk(string(typ)).WithField("length").At(off)
	}
	if int64(len(data)-off-12) < int64(length) {
		return Chunk{}, false, imgerr.New(imgerr.ErrTruncated, "png", "chunk declares %d bytes, have %d", length, max(len(data)-off-12, 0)).
			InChunk(string(typ)).At(off)
	}
	end := off + 8 + int(length)
	c := Chunk{
		Type:   string(typ),
		Offset: off,
		Data:   data[off+8 : end],
		CRC:    binary.BigEndian.Uint32(data[end:]),
	}
	return c, crcOf(c) == c.CRC, nil
}

// crcOf computes the CRC-32 of type ++ data.
func crcOf(c Chunk) uint32 {
	crc := crc32.ChecksumIEEE([]byte(c.Type))
	return crc32.Update(crc, crc32.IEEETable, c.Data)
}

// ChunkInfo describes one chunk for listing purposes.
type ChunkInfo struct {
	Type     string `json:"type"`
	Offset   int    `json:"offset"`
	Length   int    `json:"length"`
	CRC      uint32 `json:"crc"`
	CRCValid bool   `json:"crc_valid"`
	Critical bool   `json:"critical"`
}

// Chunks lists every chunk up to IEND without enforcing ordering or CRCs.
// It stops at the first chunk that cannot be framed and returns what was
// read along with the error.
func Chunks(data []byte) ([]ChunkInfo, error) {
	cr, err := NewChunkReader(data, false)
	if err != nil {
		return nil, err
	}
	var infos []ChunkInfo
	off := cr.off
	for off < len(data) {
		c, ok, err := readChunk(data, off)
		if err != nil {
			return infos, err
		}
		infos = append(infos, ChunkInfo{
			Type:     c.Type,
			Offset:   c.Offset,
			Length:   len(c.Data),
			CRC:      c.CRC,
			CRCValid: ok,
			Critical: c.Critical(),
		})
		off += 12 + len(c.Data)
		if c.Type == ChunkIEND {
			break
		}
	}
	return infos, nil
}
