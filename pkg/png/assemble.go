package png

import (
	"encoding/binary"

	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/jpfielding/pixdec.go/pkg/pixel"
)

// assemble converts unfiltered rows into a pixel buffer. trns may be nil.
func assemble(h *Header, rows, palette []byte, trns *transparency) (*pixel.Buffer, error) {
	layout, depth := h.Layout(trns != nil)
	rowBytes := h.RowBytes()

	// stored layout matches the output, hand the rows over as is
	if trns == nil && h.BitDepth >= 8 && h.ColorType != ColorPalette {
		return &pixel.Buffer{
			Width:   h.Width,
			Height:  h.Height,
			Layout:  layout,
			Depth:   depth,
			Samples: rows[:h.Height*rowBytes],
		}, nil
	}

	out := pixel.NewBuffer(h.Width, h.Height, layout, depth)
	dst := out.Samples
	di := 0
	for y := 0; y < h.Height; y++ {
		row := rows[y*rowBytes : (y+1)*rowBytes]
		switch h.format {
		case fmtG1, fmtG2, fmtG4:
			bits := int(h.BitDepth)
			mask := uint8(1<<bits - 1)
			scale := 255 / mask
			for x := 0; x < h.Width; x++ {
				v := unpack(row, x, bits, mask)
				dst[di] = v * scale
				di++
				if trns != nil {
					dst[di] = opaqueUnless(uint16(v) == trns.key[0])
					di++
				}
			}
		case fmtG8:
			for _, v := range row {
				dst[di] = v
				dst[di+1] = opaqueUnless(uint16(v) == trns.key[0])
				di += 2
			}
		case fmtG16:
			for x := 0; x < h.Width; x++ {
				s := row[2*x : 2*x+2]
				copy(dst[di:], s)
				a := opaqueUnless(binary.BigEndian.Uint16(s) == trns.key[0])
				dst[di+2], dst[di+3] = a, a
				di += 4
			}
		case fmtRGB8:
			for x := 0; x < h.Width; x++ {
				s := row[3*x : 3*x+3]
				copy(dst[di:], s)
				dst[di+3] = opaqueUnless(uint16(s[0]) == trns.key[0] && uint16(s[1]) == trns.key[1] && uint16(s[2]) == trns.key[2])
				di += 4
			}
		case fmtRGB16:
			for x := 0; x < h.Width; x++ {
				s := row[6*x : 6*x+6]
				copy(dst[di:], s)
				a := opaqueUnless(binary.BigEndian.Uint16(s[0:]) == trns.key[0] &&
					binary.BigEndian.Uint16(s[2:]) == trns.key[1] &&
					binary.BigEndian.Uint16(s[4:]) == trns.key[2])
				dst[di+6], dst[di+7] = a, a
				di += 8
			}
		case fmtP1, fmtP2, fmtP4, fmtP8:
			bits := int(h.BitDepth)
			mask := uint8(1<<bits - 1)
			entries := len(palette) / 3
			for x := 0; x < h.Width; x++ {
				idx := int(unpack(row, x, bits, mask))
				if idx >= entries {
					return nil, imgerr.New(imgerr.ErrFormat, "png", "palette index %d, palette has %d entries", idx, entries).
						InChunk(ChunkIDAT).WithField("palette index")
				}
				copy(dst[di:], palette[3*idx:3*idx+3])
				di += 3
				if trns != nil {
					a := uint8(0xff)
					if idx < len(trns.alpha) {
						a = trns.alpha[idx]
					}
					dst[di] = a
					di++
				}
			}
		default:
			// alpha color types never carry tRNS
			return nil, imgerr.New(imgerr.ErrStructural, "png", "tRNS not allowed for %s", h.ColorType).InChunk(ChunkTRNS)
		}
	}
	return out, nil
}

// unpack extracts the x-th sample of a row packed MSB first.
func unpack(row []byte, x, bits int, mask uint8) uint8 {
	bit := x * bits
	shift := 8 - bits - bit%8
	return row[bit/8] >> shift & mask
}

func opaqueUnless(transparent bool) uint8 {
	if transparent {
		return 0
	}
	return 0xff
}
