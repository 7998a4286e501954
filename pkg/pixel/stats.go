package pixel

// ChannelStats summarizes one channel of a buffer.
type ChannelStats struct {
	Min  uint16  `json:"min"`
	Max  uint16  `json:"max"`
	Mean float64 `json:"mean"`
}

// Stats computes per-channel min, max and mean.
func (b *Buffer) Stats() []ChannelStats {
	ch := b.Channels()
	stats := make([]ChannelStats, ch)
	sums := make([]float64, ch)
	for c := range stats {
		stats[c].Min = 0xffff
	}
	n := b.Width * b.Height
	if n == 0 {
		return stats
	}
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			for c := 0; c < ch; c++ {
				v := b.At(x, y, c)
				if v < stats[c].Min {
					stats[c].Min = v
				}
				if v > stats[c].Max {
					stats[c].Max = v
				}
				sums[c] += float64(v)
			}
		}
	}
	for c := range stats {
		stats[c].Mean = sums[c] / float64(n)
	}
	return stats
}
