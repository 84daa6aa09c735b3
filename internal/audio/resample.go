package audio

// Resample converts a block of samples from inRate to outRate using linear
// interpolation. For equal rates it returns an exact copy. The function is
// stateless: no window is carried between calls, so consecutive blocks may
// show up to one sample period of interpolation discontinuity at the seam.
func Resample(samples []float32, inRate, outRate int) []float32 {
	if len(samples) == 0 || inRate <= 0 || outRate <= 0 {
		return []float32{}
	}

	if inRate == outRate {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	// ceil(N * outRate / inRate)
	outLen := (len(samples)*outRate + inRate - 1) / inRate
	out := make([]float32, outLen)

	ratio := float64(inRate) / float64(outRate)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		if srcIdx >= len(samples)-1 {
			// Past the input end: hold the last available sample.
			out[i] = samples[len(samples)-1]
			continue
		}

		s1 := float64(samples[srcIdx])
		s2 := float64(samples[srcIdx+1])
		out[i] = float32(s1*(1-frac) + s2*frac)
	}

	return out
}
