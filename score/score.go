package score

import (
	"fmt"

	"github.com/RyanBlaney/melodia/model"
)

// ValidationError identifies exactly which constraint a reference score
// failed, so the caller can surface a structured session-start rejection.
type ValidationError struct {
	Index  int    // offending note, -1 for score-level problems
	Field  string // "onset", "duration", "order"
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid reference score: %s", e.Reason)
	}
	return fmt.Sprintf("invalid reference score at note %d (%s): %s", e.Index, e.Field, e.Reason)
}

// ReferenceScore is a normalized, time-ordered sequence of expected notes,
// produced once per session and immutable for the session's lifetime.
type ReferenceScore struct {
	notes []model.Note
}

// New validates and wraps a note sequence. Onsets must be non-negative and
// non-decreasing and durations strictly positive; anything else is an
// input-malformed rejection and the session cannot start.
func New(notes []model.Note) (*ReferenceScore, error) {
	if len(notes) == 0 {
		return nil, &ValidationError{Index: -1, Field: "", Reason: "score has no notes"}
	}

	prevOnset := -1.0
	for i, n := range notes {
		if n.Onset < 0 {
			return nil, &ValidationError{
				Index: i, Field: "onset",
				Reason: fmt.Sprintf("onset %.4f is negative", n.Onset),
			}
		}
		if n.Duration <= 0 {
			return nil, &ValidationError{
				Index: i, Field: "duration",
				Reason: fmt.Sprintf("duration %.4f is not positive", n.Duration),
			}
		}
		if n.Onset < prevOnset {
			return nil, &ValidationError{
				Index: i, Field: "order",
				Reason: fmt.Sprintf("onset %.4f precedes previous onset %.4f", n.Onset, prevOnset),
			}
		}
		prevOnset = n.Onset
	}

	owned := make([]model.Note, len(notes))
	copy(owned, notes)
	return &ReferenceScore{notes: owned}, nil
}

// Len returns the number of reference notes
func (s *ReferenceScore) Len() int {
	return len(s.notes)
}

// Notes returns a copy of the reference notes in score order
func (s *ReferenceScore) Notes() []model.Note {
	out := make([]model.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Note returns the reference note at index i
func (s *ReferenceScore) Note(i int) model.Note {
	return s.notes[i]
}

// Scaled returns a copy of the score with all times divided by the given
// tempo factor. factor > 1 plays the piece faster, factor < 1 slower; use it
// to match a practice tempo instead of the tempo written in the file.
func (s *ReferenceScore) Scaled(factor float64) (*ReferenceScore, error) {
	if factor <= 0 {
		return nil, &ValidationError{Index: -1, Field: "", Reason: fmt.Sprintf("tempo factor %.3f is not positive", factor)}
	}
	scaled := make([]model.Note, len(s.notes))
	for i, n := range s.notes {
		n.Onset /= factor
		n.Duration /= factor
		scaled[i] = n
	}
	return New(scaled)
}

// Duration returns the end time of the last-sounding note in seconds
func (s *ReferenceScore) Duration() float64 {
	end := 0.0
	for _, n := range s.notes {
		if off := n.Offset(); off > end {
			end = off
		}
	}
	return end
}
