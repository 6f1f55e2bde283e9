package common

import "math"

// DefaultTuning is the reference frequency of A4 in Hz
const DefaultTuning = 440.0

// FreqToMidi converts a frequency to a real-valued MIDI note number.
// The fractional part carries sub-semitone detail (cents).
func FreqToMidi(freq, tuning float64) float64 {
	if freq <= 0 || tuning <= 0 {
		return 0.0
	}
	return 69.0 + 12.0*math.Log2(freq/tuning)
}

// MidiToFreq converts a MIDI note number to frequency in Hz
func MidiToFreq(midi, tuning float64) float64 {
	return tuning * math.Pow(2, (midi-69.0)/12.0)
}

// SemitonesToCents converts a semitone interval to cents
func SemitonesToCents(semitones float64) float64 {
	return semitones * 100.0
}
