package filters

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDCRemovalKillsOffset(t *testing.T) {
	dc := NewDCRemoval()

	// Constant offset should decay toward zero.
	var out float64
	for i := 0; i < 10000; i++ {
		out = dc.Process(0.3)
	}
	assert.Less(t, math.Abs(out), 1e-3)
}

func TestDCRemovalPassesAudioBand(t *testing.T) {
	sr := 44100.0
	dc := NewDCRemoval()

	// 440 Hz is far above the cutoff and should pass nearly unattenuated.
	n := 44100
	peak := 0.0
	for i := 0; i < n; i++ {
		out := dc.Process(0.5 * math.Sin(2*math.Pi*440*float64(i)/sr))
		if i > n/2 && math.Abs(out) > peak {
			peak = math.Abs(out)
		}
	}
	assert.InDelta(t, 0.5, peak, 0.02)
}

func TestDCRemovalOffsetPlusTone(t *testing.T) {
	sr := 44100.0
	dc := NewDCRemoval()

	// A tone riding on a DC offset keeps the tone and loses the offset.
	n := 44100
	var sum float64
	count := 0
	for i := 0; i < n; i++ {
		out := dc.Process(0.3 + 0.2*math.Sin(2*math.Pi*220*float64(i)/sr))
		if i > n/2 {
			sum += out
			count++
		}
	}
	assert.Less(t, math.Abs(sum/float64(count)), 1e-3)
}

func TestDCRemovalCutoff(t *testing.T) {
	dc := NewDCRemovalWithCutoff(44100, 20)
	assert.InDelta(t, 20, dc.CutoffFrequency(44100), 0.5)

	dc.Reset()
	assert.Equal(t, 0.0, dc.Process(0))
}
