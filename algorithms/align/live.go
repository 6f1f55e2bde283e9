package align

import (
	"fmt"

	"github.com/RyanBlaney/melodia/model"
)

// Incremental re-aligns a growing performed-note prefix against a fixed
// reference on every new note, which is affordable because note-rate is
// orders of magnitude below frame-rate.
//
// Edges near the end of the performed prefix sit in ambiguous range of the
// alignment frontier and may be reclassified by the next note; to keep live
// feedback from flickering, Add reports a stable watermark alongside the
// full edge list. The watermark is an index into the edge slice, only edges
// before it should be surfaced to the user, and it never regresses.
type Incremental struct {
	costs       Costs
	frontierLag int

	ref  []model.Note
	perf []model.Note

	watermark int
}

// NewIncremental creates a live aligner over an immutable reference.
// frontierLag is how many of the newest performed notes are considered
// unresolved.
func NewIncremental(ref []model.Note, costs Costs, frontierLag int) (*Incremental, error) {
	if err := costs.Validate(); err != nil {
		return nil, fmt.Errorf("alignment costs: %w", err)
	}
	if frontierLag < 0 {
		return nil, fmt.Errorf("frontier lag must be non-negative, got %d", frontierLag)
	}

	refCopy := make([]model.Note, len(ref))
	copy(refCopy, ref)

	return &Incremental{
		costs:       costs,
		frontierLag: frontierLag,
		ref:         refCopy,
	}, nil
}

// PerformedCount returns how many notes have been added so far
func (inc *Incremental) PerformedCount() int {
	return len(inc.perf)
}

// Add appends a completed performed note, re-runs the alignment over the
// full prefix, and returns the edges plus the stable watermark.
func (inc *Incremental) Add(note model.Note) ([]Edge, int, error) {
	inc.perf = append(inc.perf, note)

	result, err := Align(inc.perf, inc.ref, inc.costs)
	if err != nil {
		return nil, 0, err
	}

	// An edge is settled once its performed note lies strictly before the
	// unresolved region at the frontier. Deletion edges are settled only
	// when bracketed by a later settled pairing: trailing deletions are
	// reference notes the performer simply has not reached yet.
	resolvedBelow := len(inc.perf) - inc.frontierLag
	settled := 0
	for idx, e := range result.Edges {
		if e.PerfIndex >= resolvedBelow {
			break
		}
		if e.PerfIndex >= 0 {
			settled = idx + 1
		}
	}

	if settled > inc.watermark {
		inc.watermark = settled
	}
	if inc.watermark > len(result.Edges) {
		inc.watermark = len(result.Edges)
	}

	return result.Edges, inc.watermark, nil
}

// Final runs one last full alignment with the frontier restriction dropped,
// for the synchronous pass after recording stops.
func (inc *Incremental) Final() ([]Edge, error) {
	result, err := Align(inc.perf, inc.ref, inc.costs)
	if err != nil {
		return nil, err
	}
	inc.watermark = len(result.Edges)
	return result.Edges, nil
}

// Performed returns a copy of the accumulated performed notes
func (inc *Incremental) Performed() []model.Note {
	out := make([]model.Note, len(inc.perf))
	copy(out, inc.perf)
	return out
}

// Reference returns a copy of the reference notes
func (inc *Incremental) Reference() []model.Note {
	out := make([]model.Note, len(inc.ref))
	copy(out, inc.ref)
	return out
}
