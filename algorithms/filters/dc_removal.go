package filters

import (
	"math"
)

// DCRemoval is a one-pole DC blocking filter for live capture input.
// Cheap consumer microphones often carry a small DC offset, which inflates
// frame RMS and defeats silence gating downstream.
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//     https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
type DCRemoval struct {
	pole float64 // R parameter (0 < R < 1)

	x1 float64 // previous input x[n-1]
	y1 float64 // previous output y[n-1]
}

// NewDCRemoval creates a DC blocker with pole 0.995, a cutoff of roughly
// 35 Hz at 44.1 kHz, comfortably below the lowest trackable pitch.
func NewDCRemoval() *DCRemoval {
	return &DCRemoval{pole: 0.995}
}

// NewDCRemovalWithCutoff creates a DC blocker with the given -3dB cutoff.
// The pole is placed with the small-angle approximation R = 1 - 2*pi*fc/fs.
func NewDCRemovalWithCutoff(sampleRate int, cutoffFreq float64) *DCRemoval {
	pole := 1.0 - (2.0 * math.Pi * cutoffFreq / float64(sampleRate))
	if pole >= 1.0 {
		pole = 0.999
	} else if pole <= 0.0 {
		pole = 0.001
	}
	return &DCRemoval{pole: pole}
}

// Process filters a single sample with y[n] = x[n] - x[n-1] + R*y[n-1]
func (dc *DCRemoval) Process(input float64) float64 {
	output := input - dc.x1 + dc.pole*dc.y1
	dc.x1 = input
	dc.y1 = output
	return output
}

// ProcessBuffer filters a buffer in place and returns it
func (dc *DCRemoval) ProcessBuffer(samples []float64) []float64 {
	for i, s := range samples {
		samples[i] = dc.Process(s)
	}
	return samples
}

// Reset clears filter state. Call between discontinuous audio segments.
func (dc *DCRemoval) Reset() {
	dc.x1 = 0.0
	dc.y1 = 0.0
}

// CutoffFrequency returns the approximate -3dB cutoff at the given rate
func (dc *DCRemoval) CutoffFrequency(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0.0
	}
	return (1.0 - dc.pole) * float64(sampleRate) / (2.0 * math.Pi)
}
