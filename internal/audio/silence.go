package audio

import "sync"

// Gate decides whether a block of samples is near-silent and can be dropped
// before encoding. Gating is an optimization: passing faint speech through
// is fine, dropping real speech is not, so thresholds stay conservative.
type Gate interface {
	Silent(block []float32) bool
}

// Calibrator is implemented by gates that learn their threshold from
// observed audio. The capture path feeds it per frame so calibration
// finishes well before the first flush chunk is gated.
type Calibrator interface {
	Observe(block []float32)
}

// fullScaleEnergy is the mean absolute amplitude of a full-scale block.
const fullScaleEnergy = 1.0

// Energy returns the mean absolute amplitude of a block.
func Energy(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		if s < 0 {
			sum -= float64(s)
		} else {
			sum += float64(s)
		}
	}
	return sum / float64(len(block))
}

// FixedGate classifies a block as silent when its energy falls below a
// fixed, empirically tuned threshold.
type FixedGate struct {
	Threshold float64
}

func (g FixedGate) Silent(block []float32) bool {
	if len(block) == 0 {
		return true
	}
	e := Energy(block)
	if e >= fullScaleEnergy {
		// Full-scale audio is speech no matter how the threshold is tuned.
		return false
	}
	return e < g.Threshold
}

// DefaultCalibrationSamples covers roughly the first second of audio at
// the pipeline's 16 kHz rate.
const DefaultCalibrationSamples = 16000

// AdaptiveGate learns the noise floor from the first calibration samples
// after activation and sets its threshold to the observed average energy
// scaled by a margin. Until calibration completes, nothing is gated.
// Observe and Silent may run on different goroutines.
type AdaptiveGate struct {
	Margin         float64 // scale applied to the learned floor, e.g. 1.3
	CalibrationLen int     // samples to observe before arming

	mu        sync.Mutex
	observed  int
	energySum float64
	threshold float64
	armed     bool
}

func NewAdaptiveGate(margin float64, calibrationSamples int) *AdaptiveGate {
	if margin <= 0 {
		margin = 1.3
	}
	if calibrationSamples <= 0 {
		calibrationSamples = DefaultCalibrationSamples
	}
	return &AdaptiveGate{Margin: margin, CalibrationLen: calibrationSamples}
}

// Observe feeds calibration audio, sample-weighted so block size does not
// skew the floor. Full-scale blocks are speech, not noise floor, and do
// not count. Once armed it is a no-op.
func (g *AdaptiveGate) Observe(block []float32) {
	if len(block) == 0 {
		return
	}
	e := Energy(block)
	if e >= fullScaleEnergy {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.armed {
		return
	}
	g.energySum += e * float64(len(block))
	g.observed += len(block)
	if g.observed >= g.CalibrationLen {
		g.threshold = (g.energySum / float64(g.observed)) * g.Margin
		g.armed = true
	}
}

func (g *AdaptiveGate) Silent(block []float32) bool {
	if len(block) == 0 {
		return true
	}

	e := Energy(block)
	if e >= fullScaleEnergy {
		return false
	}

	g.mu.Lock()
	armed := g.armed
	threshold := g.threshold
	g.mu.Unlock()

	if !armed {
		g.Observe(block)
		return false
	}

	// A floor learned from pure digital silence yields threshold zero;
	// <= keeps all-zero blocks silent in that case.
	return e <= threshold
}

// Armed reports whether the adaptive gate has finished calibrating.
func (g *AdaptiveGate) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armed
}

// Threshold returns the learned threshold; zero until armed.
func (g *AdaptiveGate) Threshold() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.threshold
}
