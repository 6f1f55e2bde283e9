package model

// Note is a single monophonic note, either performed (detected from audio)
// or taken from the reference score. Pitch is a real-valued MIDI note number:
// integer for reference notes, fractional for performed notes so that cents
// deviation survives segmentation.
type Note struct {
	Pitch    float64 `json:"pitch"`    // MIDI note number
	Onset    float64 `json:"onset"`    // seconds from recording start
	Duration float64 `json:"duration"` // seconds, always > 0

	// Performed-note extras; zero for reference notes
	MeanConfidence float64 `json:"mean_confidence,omitempty"`
	MeanAmplitude  float64 `json:"mean_amplitude,omitempty"`
}

// Offset returns the end time of the note in seconds
func (n Note) Offset() float64 {
	return n.Onset + n.Duration
}
