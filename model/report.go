package model

// NoteStatus is the per-reference-note outcome of a performance
type NoteStatus string

const (
	StatusMatched    NoteStatus = "matched"
	StatusWrongPitch NoteStatus = "wrong_pitch"
	StatusMistimed   NoteStatus = "mistimed"
	StatusMissed     NoteStatus = "missed"

	// StatusPending marks reference notes the live alignment frontier has not
	// yet resolved. It never appears in a finalized report.
	StatusPending NoteStatus = "pending"
)

// NoteOutcome is the verdict for one reference note
type NoteOutcome struct {
	RefIndex        int        `json:"ref_index"`
	Status          NoteStatus `json:"status"`
	PerfIndex       int        `json:"perf_index"` // -1 when missed or pending
	PitchErrorCents float64    `json:"pitch_error_cents"`
	OnsetErrorMs    float64    `json:"onset_error_ms"`
}

// ExtraNote is a performed note with no reference pairing
type ExtraNote struct {
	PerfIndex int  `json:"perf_index"`
	Note      Note `json:"note"`
}

// MistakeReport is the structured result of comparing a performance against
// a reference score. During a live session it is rebuilt on every alignment
// update; after the session ends it is finalized and immutable.
type MistakeReport struct {
	Outcomes  []NoteOutcome `json:"outcomes"` // one per reference note, in score order
	Extras    []ExtraNote   `json:"extras"`   // unmatched performed notes, in time order
	Finalized bool          `json:"finalized"`
}

// Clone returns a deep copy, used for copy-on-read snapshots so a report in
// flight to the UI is never mutated by the alignment task.
func (r *MistakeReport) Clone() MistakeReport {
	out := MistakeReport{
		Outcomes:  make([]NoteOutcome, len(r.Outcomes)),
		Extras:    make([]ExtraNote, len(r.Extras)),
		Finalized: r.Finalized,
	}
	copy(out.Outcomes, r.Outcomes)
	copy(out.Extras, r.Extras)
	return out
}

// Counts tallies outcomes by status
func (r *MistakeReport) Counts() map[NoteStatus]int {
	counts := make(map[NoteStatus]int)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}
