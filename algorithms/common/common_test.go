package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreqToMidiRoundTrip(t *testing.T) {
	assert.InDelta(t, 69.0, FreqToMidi(440, DefaultTuning), 1e-9)
	assert.InDelta(t, 60.0, FreqToMidi(261.6256, DefaultTuning), 1e-3)
	assert.InDelta(t, 440.0, MidiToFreq(69, DefaultTuning), 1e-9)

	for midi := 40.0; midi <= 100; midi += 7.3 {
		got := FreqToMidi(MidiToFreq(midi, DefaultTuning), DefaultTuning)
		assert.InDelta(t, midi, got, 1e-9)
	}
}

func TestFreqToMidiAlternateTuning(t *testing.T) {
	// A4 tuned to 442 Hz still maps 442 to MIDI 69.
	assert.InDelta(t, 69.0, FreqToMidi(442, 442), 1e-9)
	assert.Greater(t, FreqToMidi(442, 440), 69.0)
}

func TestWeightedMean(t *testing.T) {
	vals := []float64{60, 62, 64}
	assert.InDelta(t, 62.0, WeightedMean(vals, []float64{1, 1, 1}), 1e-9)
	assert.InDelta(t, 64.0, WeightedMean(vals, []float64{0, 0, 5}), 1e-9)

	// All-zero weights fall back to the unweighted mean.
	assert.InDelta(t, 62.0, WeightedMean(vals, []float64{0, 0, 0}), 1e-9)
}

func TestMedian(t *testing.T) {
	assert.InDelta(t, 62.0, Median([]float64{64, 60, 62}), 1e-9)
	assert.InDelta(t, 61.0, Median([]float64{60, 62}), 1e-9)
	assert.Equal(t, 0.0, Median(nil))
}

func TestRMS(t *testing.T) {
	assert.InDelta(t, 0.5, RMS([]float64{0.5, -0.5, 0.5, -0.5}), 1e-9)
	assert.Equal(t, 0.0, RMS(nil))
}

func TestFrameBufferEmitsOverlappingFrames(t *testing.T) {
	fb, err := NewFrameBuffer(4, 2)
	require.NoError(t, err)

	samples := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	var frames [][]float64
	var starts []int64
	push := func(chunk []float64) {
		fb.Push(chunk, func(frame []float64, startIndex int64) {
			cp := make([]float64, len(frame))
			copy(cp, frame)
			frames = append(frames, cp)
			starts = append(starts, startIndex)
		})
	}

	// Deliver in awkward chunk sizes.
	push(samples[:3])
	push(samples[3:5])
	push(samples[5:])

	require.Len(t, frames, 3)
	assert.Equal(t, []float64{0, 1, 2, 3}, frames[0])
	assert.Equal(t, []float64{2, 3, 4, 5}, frames[1])
	assert.Equal(t, []float64{4, 5, 6, 7}, frames[2])
	assert.Equal(t, []int64{0, 2, 4}, starts)
	assert.Equal(t, 2, fb.Pending())

	fb.Reset()
	assert.Equal(t, 0, fb.Pending())
}

func TestFrameBufferRejectsBadSizes(t *testing.T) {
	_, err := NewFrameBuffer(0, 1)
	assert.Error(t, err)
	_, err = NewFrameBuffer(4, 8)
	assert.Error(t, err)
	_, err = NewFrameBuffer(4, 0)
	assert.Error(t, err)
}
