package audio

import (
	"math"
	"testing"
)

func TestResampleEqualRatesIsExactCopy(t *testing.T) {
	input := []float32{0.1, -0.2, 0.3, -0.4, 0.5}

	output := Resample(input, 16000, 16000)

	if len(output) != len(input) {
		t.Fatalf("expected length %d, got %d", len(input), len(output))
	}
	for i := range input {
		if output[i] != input[i] {
			t.Errorf("sample %d: expected %v, got %v", i, input[i], output[i])
		}
	}

	// Must be a copy, not an alias.
	output[0] = 9
	if input[0] == 9 {
		t.Error("output aliases input slice")
	}
}

func TestResampleDownsampleByTwo(t *testing.T) {
	input := []float32{0, 0.2, 0.4, 0.6, 0.8, 1.0, 0.8}

	output := Resample(input, 32000, 16000)

	wantLen := (len(input) + 1) / 2
	if len(output) != wantLen {
		t.Fatalf("expected length %d, got %d", wantLen, len(output))
	}

	// Each output sample must lie between its two nearest input samples.
	for i, out := range output {
		srcIdx := i * 2
		lo, hi := input[srcIdx], input[srcIdx]
		if srcIdx+1 < len(input) {
			if input[srcIdx+1] < lo {
				lo = input[srcIdx+1]
			}
			if input[srcIdx+1] > hi {
				hi = input[srcIdx+1]
			}
		}
		if out < lo || out > hi {
			t.Errorf("output sample %d = %v outside [%v, %v]", i, out, lo, hi)
		}
	}
}

func TestResampleUpsampleLength(t *testing.T) {
	tests := []struct {
		name    string
		inLen   int
		inRate  int
		outRate int
		wantLen int
	}{
		{"16k to 24k", 160, 16000, 24000, 240},
		{"44.1k to 16k", 441, 44100, 16000, 160},
		{"48k to 16k", 480, 48000, 16000, 160},
		{"single sample up", 1, 16000, 48000, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := make([]float32, tt.inLen)
			for i := range input {
				input[i] = float32(math.Sin(float64(i) / 10))
			}
			output := Resample(input, tt.inRate, tt.outRate)
			if len(output) != tt.wantLen {
				t.Errorf("expected length %d, got %d", tt.wantLen, len(output))
			}
		})
	}
}

func TestResampleTailHoldsLastSample(t *testing.T) {
	input := []float32{0, 0.5}

	// Upsampling 2 samples 1:3 yields 6; the trailing ones read past the
	// input end and must hold the final sample.
	output := Resample(input, 16000, 48000)

	if len(output) != 6 {
		t.Fatalf("expected length 6, got %d", len(output))
	}
	for i := 4; i < 6; i++ {
		if output[i] != 0.5 {
			t.Errorf("tail sample %d: expected 0.5, got %v", i, output[i])
		}
	}
}

func TestResampleEmptyInput(t *testing.T) {
	if out := Resample(nil, 16000, 48000); len(out) != 0 {
		t.Errorf("expected empty output, got %d samples", len(out))
	}
}
