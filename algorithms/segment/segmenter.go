package segment

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/melodia/algorithms/common"
	"github.com/RyanBlaney/melodia/algorithms/pitch"
	"github.com/RyanBlaney/melodia/model"
)

// Config contains the segmentation parameters
type Config struct {
	// MinRunFrames (K) is the number of consecutive in-tolerance voiced
	// frames needed before a run counts as a note
	MinRunFrames int `json:"min_run_frames"`

	// ToleranceSemitones bounds how far a frame may drift from the run's
	// center pitch before it breaks the note
	ToleranceSemitones float64 `json:"tolerance_semitones"`

	// GapToleranceFrames is the longest unvoiced run absorbed inside a note
	GapToleranceFrames int `json:"gap_tolerance_frames"`

	// OnsetBiasSeconds shifts emitted onsets earlier to approximate the true
	// attack, which precedes the first frame the detector calls voiced
	OnsetBiasSeconds float64 `json:"onset_bias_seconds"`

	// RecenterRate is the exponential rate at which the run's center pitch
	// follows the incoming frames, letting vibrato and slow glides stay
	// inside one note. 0 freezes the center, 1 chases every frame.
	RecenterRate float64 `json:"recenter_rate"`
}

// DefaultConfig returns segmentation parameters tuned for typical
// monophonic performances at a ~12ms hop
func DefaultConfig() Config {
	return Config{
		MinRunFrames:       3,
		ToleranceSemitones: 0.6,
		GapToleranceFrames: 3,
		OnsetBiasSeconds:   0.006,
		RecenterRate:       0.1,
	}
}

// Validate rejects parameters a session cannot start with
func (c Config) Validate() error {
	if c.MinRunFrames < 2 {
		return fmt.Errorf("min run frames must be at least 2, got %d", c.MinRunFrames)
	}
	if c.ToleranceSemitones <= 0 {
		return fmt.Errorf("pitch tolerance must be positive, got %.3f", c.ToleranceSemitones)
	}
	if c.GapToleranceFrames < 0 {
		return fmt.Errorf("gap tolerance must be non-negative, got %d", c.GapToleranceFrames)
	}
	if c.OnsetBiasSeconds < 0 {
		return fmt.Errorf("onset bias must be non-negative, got %.4f", c.OnsetBiasSeconds)
	}
	if c.RecenterRate < 0 || c.RecenterRate > 1 {
		return fmt.Errorf("recenter rate must be in [0, 1], got %.3f", c.RecenterRate)
	}
	return nil
}

// Phase is the segmenter's mode
type Phase int

const (
	// PhaseSilence: no note in progress; a candidate run may be building
	PhaseSilence Phase = iota
	// PhaseVoicing: a note is in progress
	PhaseVoicing
)

// run accumulates the frames of a candidate or active note
type run struct {
	times []float64
	midis []float64
	confs []float64
	amps  []float64
}

func (r run) length() int { return len(r.times) }

func (r run) append(e pitch.Estimate) run {
	return run{
		times: append(r.times, e.Time),
		midis: append(r.midis, e.MidiNum),
		confs: append(r.confs, e.Confidence),
		amps:  append(r.amps, e.Amplitude),
	}
}

// State is the explicit segmenter state. It is transitioned by Config.Step,
// a pure function of (state, estimate), which makes every transition
// testable frame by frame.
type State struct {
	Phase Phase

	run         run
	center      float64 // running center pitch of the active run
	unvoicedRun int     // consecutive unvoiced frames inside a note
	lastOffset  float64 // end of the previously emitted note, bounds legato overlap
}

// InitialState returns the state a fresh stream starts from
func InitialState() State {
	return State{Phase: PhaseSilence}
}

// Step consumes one pitch estimate and returns the successor state plus the
// completed note, if this estimate closed one. Estimates must arrive in
// time order from the start of the session.
func (c Config) Step(st State, e pitch.Estimate) (State, *model.Note) {
	switch st.Phase {
	case PhaseSilence:
		return c.stepSilence(st, e), nil
	case PhaseVoicing:
		return c.stepVoicing(st, e)
	default:
		return st, nil
	}
}

// stepSilence builds a candidate run of in-tolerance voiced frames and
// promotes it to a note once it reaches MinRunFrames
func (c Config) stepSilence(st State, e pitch.Estimate) State {
	if !e.Voiced {
		// A single-frame dropout does not reset a candidate already forming
		if st.run.length() > 0 && st.unvoicedRun == 0 {
			st.unvoicedRun = 1
			return st
		}
		st.run = run{}
		st.unvoicedRun = 0
		return st
	}

	st.unvoicedRun = 0

	if st.run.length() > 0 {
		median := common.Median(st.run.midis)
		if math.Abs(e.MidiNum-median) > c.ToleranceSemitones {
			// New pitch; restart the candidate from this frame
			st.run = run{}.append(e)
			return st
		}
	}

	st.run = st.run.append(e)

	if st.run.length() >= c.MinRunFrames {
		st.Phase = PhaseVoicing
		st.center = common.Median(st.run.midis)
	}
	return st
}

// stepVoicing extends the active note, absorbs short gaps, and closes the
// note on a long gap or a pitch jump
func (c Config) stepVoicing(st State, e pitch.Estimate) (State, *model.Note) {
	if !e.Voiced {
		st.unvoicedRun++
		if st.unvoicedRun > c.GapToleranceFrames {
			note := c.emit(&st)
			st = State{Phase: PhaseSilence, lastOffset: st.lastOffset}
			return st, note
		}
		return st, nil
	}

	st.unvoicedRun = 0

	if math.Abs(e.MidiNum-st.center) > c.ToleranceSemitones {
		// Pitch jump: close the current note and immediately seed a new
		// candidate at the new pitch
		note := c.emit(&st)
		next := State{Phase: PhaseSilence, lastOffset: st.lastOffset}
		next.run = run{}.append(e)
		return next, note
	}

	st.run = st.run.append(e)
	// Slow re-centering tolerates vibrato and glide without splitting the note
	st.center += c.RecenterRate * (e.MidiNum - st.center)
	return st, nil
}

// emit builds the Note for the accumulated run and records its offset on the
// state for legato overlap bounding
func (c Config) emit(st *State) *model.Note {
	r := st.run
	if r.length() == 0 {
		return nil
	}

	onset := r.times[0] - c.OnsetBiasSeconds
	if onset < 0 {
		onset = 0
	}
	if onset < st.lastOffset {
		// The forward bias may lean into the previous note; the overlap is
		// strictly bounded by the bias itself
		if st.lastOffset-onset > c.OnsetBiasSeconds {
			onset = st.lastOffset - c.OnsetBiasSeconds
		}
	}

	offset := r.times[r.length()-1]
	if offset <= onset {
		offset = onset + 1e-4
	}

	note := &model.Note{
		Pitch:          common.WeightedMean(r.midis, r.confs),
		Onset:          onset,
		Duration:       offset - onset,
		MeanConfidence: common.Mean(r.confs),
		MeanAmplitude:  common.Mean(r.amps),
	}

	st.lastOffset = offset
	return note
}

// Segmenter is a thin stateful wrapper over the pure step function for
// streaming use
type Segmenter struct {
	cfg Config
	st  State
}

// NewSegmenter creates a segmenter, validating the configuration
func NewSegmenter(cfg Config) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("segmenter config: %w", err)
	}
	return &Segmenter{cfg: cfg, st: InitialState()}, nil
}

// Push consumes the next estimate and returns a completed note or nil
func (s *Segmenter) Push(e pitch.Estimate) *model.Note {
	next, note := s.cfg.Step(s.st, e)
	s.st = next
	return note
}

// Flush closes the stream, emitting the trailing partial note if one is in
// progress. The segmenter is reset afterwards.
func (s *Segmenter) Flush() *model.Note {
	var note *model.Note
	if s.st.Phase == PhaseVoicing {
		note = s.cfg.emit(&s.st)
	}
	s.st = InitialState()
	return note
}

// State exposes the current state for inspection in tests
func (s *Segmenter) State() State {
	return s.st
}
