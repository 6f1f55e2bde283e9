package scoring

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/melodia/algorithms/align"
	"github.com/RyanBlaney/melodia/algorithms/common"
	"github.com/RyanBlaney/melodia/model"
)

// Scorer classifies every reference note from an alignment. It is a pure
// function of its inputs: identical edges and note sequences always produce
// identical reports, so recomputing on each alignment update is safe.
type Scorer struct {
	// PitchToleranceSemitones bounds the pitch error of a matched note
	PitchToleranceSemitones float64 `json:"pitch_tolerance_semitones"`

	// OnsetToleranceSeconds bounds the onset error of a matched note
	OnsetToleranceSeconds float64 `json:"onset_tolerance_seconds"`
}

// DefaultScorer returns the calibrated verdict tolerances
func DefaultScorer() Scorer {
	return Scorer{
		PitchToleranceSemitones: 1.0,
		OnsetToleranceSeconds:   0.25,
	}
}

// Validate rejects tolerances a session cannot start with
func (s Scorer) Validate() error {
	if s.PitchToleranceSemitones <= 0 {
		return fmt.Errorf("pitch tolerance must be positive, got %.3f", s.PitchToleranceSemitones)
	}
	if s.OnsetToleranceSeconds <= 0 {
		return fmt.Errorf("onset tolerance must be positive, got %.3f", s.OnsetToleranceSeconds)
	}
	return nil
}

// Score walks the alignment edges and produces the mistake report.
//
// Per reference note: matched when paired with both errors in tolerance;
// wrongPitch when paired with pitch out of tolerance (pitch errors outrank
// timing, so both-exceeded is also wrongPitch); mistimed when paired with
// only onset out of tolerance; missed when deleted. Performed notes with no
// pairing are extras. Reference notes not covered by any edge (live mode,
// beyond the stable frontier) stay pending.
//
// The edges may be a stable prefix of a live alignment or a full final
// alignment; finalized should be true only for the latter.
func (s Scorer) Score(edges []align.Edge, perf, ref []model.Note, finalized bool) model.MistakeReport {
	report := model.MistakeReport{
		Outcomes:  make([]model.NoteOutcome, len(ref)),
		Extras:    make([]model.ExtraNote, 0),
		Finalized: finalized,
	}

	for i := range report.Outcomes {
		report.Outcomes[i] = model.NoteOutcome{
			RefIndex:  i,
			Status:    model.StatusPending,
			PerfIndex: -1,
		}
	}

	for _, e := range edges {
		switch {
		case e.RefIndex >= 0 && e.PerfIndex >= 0:
			if e.RefIndex < len(ref) && e.PerfIndex < len(perf) {
				report.Outcomes[e.RefIndex] = s.judge(e.RefIndex, e.PerfIndex, perf[e.PerfIndex], ref[e.RefIndex])
			}
		case e.RefIndex >= 0:
			report.Outcomes[e.RefIndex] = model.NoteOutcome{
				RefIndex:  e.RefIndex,
				Status:    model.StatusMissed,
				PerfIndex: -1,
			}
		case e.PerfIndex >= 0 && e.PerfIndex < len(perf):
			report.Extras = append(report.Extras, model.ExtraNote{
				PerfIndex: e.PerfIndex,
				Note:      perf[e.PerfIndex],
			})
		}
	}

	return report
}

// judge classifies one paired reference/performed note
func (s Scorer) judge(refIdx, perfIdx int, perf, ref model.Note) model.NoteOutcome {
	pitchErr := perf.Pitch - ref.Pitch
	onsetErr := perf.Onset - ref.Onset

	pitchOK := math.Abs(pitchErr) <= s.PitchToleranceSemitones
	onsetOK := math.Abs(onsetErr) <= s.OnsetToleranceSeconds

	status := model.StatusMatched
	switch {
	case pitchOK && onsetOK:
		status = model.StatusMatched
	case !pitchOK:
		status = model.StatusWrongPitch
	default:
		status = model.StatusMistimed
	}

	return model.NoteOutcome{
		RefIndex:        refIdx,
		Status:          status,
		PerfIndex:       perfIdx,
		PitchErrorCents: common.SemitonesToCents(pitchErr),
		OnsetErrorMs:    onsetErr * 1000.0,
	}
}
