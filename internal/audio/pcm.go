package audio

// DecodePCM16 converts little-endian signed 16-bit PCM bytes to float samples
// in [-1, 1]. A trailing odd byte is ignored.
func DecodePCM16(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		if s < 0 {
			out[i] = float32(s) / 32768.0
		} else {
			out[i] = float32(s) / 32767.0
		}
	}
	return out
}

// EncodePCM16 converts float samples in [-1, 1] to little-endian signed
// 16-bit PCM bytes. Samples are clamped before scaling; negative values
// scale by 32768 and non-negative by 32767 so both extremes are reachable.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		s := pcm16Sample(f)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

func pcm16Sample(f float32) int16 {
	if f < -1 {
		f = -1
	} else if f > 1 {
		f = 1
	}
	if f < 0 {
		return int16(f * 32768)
	}
	return int16(f * 32767)
}
