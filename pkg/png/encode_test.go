package png

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
)

// Test-only PNG writer used to produce fixtures the stdlib encoder cannot:
// fixed filter choices, odd chunk orders, broken CRCs.

type testChunk struct {
	typ  string
	data []byte
}

func buildPNG(chunks ...testChunk) []byte {
	var buf bytes.Buffer
	buf.WriteString(Signature)
	for _, c := range chunks {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(c.data)))
		buf.Write(n[:])
		buf.WriteString(c.typ)
		buf.Write(c.data)
		crc := crc32.Update(crc32.ChecksumIEEE([]byte(c.typ)), crc32.IEEETable, c.data)
		binary.BigEndian.PutUint32(n[:], crc)
		buf.Write(n[:])
	}
	return buf.Bytes()
}

func ihdr(w, h int, depth uint8, ct ColorType) testChunk {
	d := make([]byte, 13)
	binary.BigEndian.PutUint32(d[0:], uint32(w))
	binary.BigEndian.PutUint32(d[4:], uint32(h))
	d[8] = depth
	d[9] = uint8(ct)
	return testChunk{ChunkIHDR, d}
}

func iend() testChunk {
	return testChunk{ChunkIEND, nil}
}

func zlibBytes(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	require.NoError(t, err)
	_, err = zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// idat compresses already filtered scanlines into one IDAT chunk.
func idat(t *testing.T, scanlines []byte) testChunk {
	t.Helper()
	return testChunk{ChunkIDAT, zlibBytes(t, scanlines)}
}

// filterRows applies ft to every row and prefixes the filter byte.
func filterRows(rows [][]byte, bpp int, ft FilterType) []byte {
	var out []byte
	var prev []byte
	for _, cur := range rows {
		if prev == nil {
			prev = make([]byte, len(cur))
		}
		line := make([]byte, len(cur))
		for i := range cur {
			var a, c uint8
			if i >= bpp {
				a = cur[i-bpp]
				c = prev[i-bpp]
			}
			b := prev[i]
			switch ft {
			case FilterNone:
				line[i] = cur[i]
			case FilterSub:
				line[i] = cur[i] - a
			case FilterUp:
				line[i] = cur[i] - b
			case FilterAverage:
				line[i] = cur[i] - uint8((int(a)+int(b))/2)
			case FilterPaeth:
				line[i] = cur[i] - paeth(a, b, c)
			}
		}
		out = append(out, byte(ft))
		out = append(out, line...)
		prev = cur
	}
	return out
}

// corruptCRC flips a bit in the CRC of the n-th chunk.
func corruptCRC(t *testing.T, data []byte, n int) []byte {
	t.Helper()
	infos, err := Chunks(data)
	require.NoError(t, err)
	out := append([]byte(nil), data...)
	out[infos[n].Offset+8+infos[n].Length] ^= 0x01
	return out
}
