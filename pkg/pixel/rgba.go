package pixel

// ToRGBA returns b converted to the RGBA layout at the same depth. Gray is
// replicated into R, G and B; missing alpha is fully opaque. A buffer that is
// already RGBA is returned as is.
func (b *Buffer) ToRGBA() *Buffer {
	if b.Layout == RGBA {
		return b
	}
	out := NewBuffer(b.Width, b.Height, RGBA, b.Depth)
	bps := b.BytesPerSample()
	src, dst := b.Samples, out.Samples
	opaque := []byte{0xff, 0xff}
	n := b.Width * b.Height
	ch := b.Channels()

	for p := 0; p < n; p++ {
		s := src[p*ch*bps : (p+1)*ch*bps]
		d := dst[p*4*bps : (p+1)*4*bps]
		switch b.Layout {
		case Gray:
			copy(d[0:], s[:bps])
			copy(d[bps:], s[:bps])
			copy(d[2*bps:], s[:bps])
			copy(d[3*bps:], opaque[:bps])
		case GrayAlpha:
			copy(d[0:], s[:bps])
			copy(d[bps:], s[:bps])
			copy(d[2*bps:], s[:bps])
			copy(d[3*bps:], s[bps:2*bps])
		case RGB:
			copy(d, s[:3*bps])
			copy(d[3*bps:], opaque[:bps])
		}
	}
	return out
}
