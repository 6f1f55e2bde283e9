package align

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/melodia/model"
)

// Costs is the musical cost model for string-edit alignment of a performed
// note sequence against a reference score.
//
// Substitution cost is a weighted sum of capped pitch and onset differences,
// zero when both are within the near-match tolerances. Deletion (reference
// note missed) and insertion (extra performed note) are fixed penalties,
// each strictly larger than the maximum achievable substitution cost so a
// near-correct match always beats skipping.
type Costs struct {
	PitchWeight float64 `json:"pitch_weight"`
	OnsetWeight float64 `json:"onset_weight"`

	PitchCapSemitones float64 `json:"pitch_cap_semitones"`
	OnsetCapSeconds   float64 `json:"onset_cap_seconds"`

	PitchToleranceSemitones float64 `json:"pitch_tolerance_semitones"`
	OnsetToleranceSeconds   float64 `json:"onset_tolerance_seconds"`

	InsertionPenalty float64 `json:"insertion_penalty"`
	DeletionPenalty  float64 `json:"deletion_penalty"`
}

// DefaultCosts returns the calibrated cost model
func DefaultCosts() Costs {
	return Costs{
		PitchWeight:             0.7,
		OnsetWeight:             0.3,
		PitchCapSemitones:       12.0,
		OnsetCapSeconds:         2.0,
		PitchToleranceSemitones: 1.0,
		OnsetToleranceSeconds:   0.25,
		InsertionPenalty:        1.5,
		DeletionPenalty:         2.0,
	}
}

// MaxSubstitutionCost is the ceiling of the substitution cost under this
// model
func (c Costs) MaxSubstitutionCost() float64 {
	return c.PitchWeight + c.OnsetWeight
}

// Validate rejects cost models a session cannot start with. The dominance
// constraint (penalties strictly above the substitution ceiling) is what
// guarantees alignment always prefers explaining a note as a mistake over
// dropping it.
func (c Costs) Validate() error {
	if c.PitchWeight < 0 || c.OnsetWeight < 0 || c.PitchWeight+c.OnsetWeight <= 0 {
		return fmt.Errorf("substitution weights must be non-negative and sum positive, got %.3f/%.3f",
			c.PitchWeight, c.OnsetWeight)
	}
	if c.PitchCapSemitones <= 0 || c.OnsetCapSeconds <= 0 {
		return fmt.Errorf("substitution caps must be positive, got %.3f semitones / %.3f s",
			c.PitchCapSemitones, c.OnsetCapSeconds)
	}
	if c.PitchToleranceSemitones < 0 || c.OnsetToleranceSeconds < 0 {
		return fmt.Errorf("tolerances must be non-negative, got %.3f semitones / %.3f s",
			c.PitchToleranceSemitones, c.OnsetToleranceSeconds)
	}
	maxSub := c.MaxSubstitutionCost()
	if c.InsertionPenalty <= maxSub {
		return fmt.Errorf("insertion penalty %.3f must exceed max substitution cost %.3f",
			c.InsertionPenalty, maxSub)
	}
	if c.DeletionPenalty <= maxSub {
		return fmt.Errorf("deletion penalty %.3f must exceed max substitution cost %.3f",
			c.DeletionPenalty, maxSub)
	}
	return nil
}

// Substitution returns the cost of pairing a performed note with a
// reference note
func (c Costs) Substitution(perf, ref model.Note) float64 {
	pitchDiff := math.Abs(perf.Pitch - ref.Pitch)
	onsetDiff := math.Abs(perf.Onset - ref.Onset)

	if pitchDiff <= c.PitchToleranceSemitones && onsetDiff <= c.OnsetToleranceSeconds {
		return 0
	}

	if pitchDiff > c.PitchCapSemitones {
		pitchDiff = c.PitchCapSemitones
	}
	if onsetDiff > c.OnsetCapSeconds {
		onsetDiff = c.OnsetCapSeconds
	}

	return c.PitchWeight*(pitchDiff/c.PitchCapSemitones) + c.OnsetWeight*(onsetDiff/c.OnsetCapSeconds)
}

// Edge is one pairing in an alignment. RefIndex of -1 marks an insertion
// (extra performed note); PerfIndex of -1 marks a deletion (missed
// reference note). A full alignment is an ordered edge sequence monotonic
// in both indices.
type Edge struct {
	RefIndex  int     `json:"ref_index"`
	PerfIndex int     `json:"perf_index"`
	Cost      float64 `json:"cost"`
}

// Result contains the optimal alignment
type Result struct {
	Edges      []Edge  `json:"edges"`
	TotalCost  float64 `json:"total_cost"`
	RefLength  int     `json:"ref_length"`
	PerfLength int     `json:"perf_length"`
}

// backtracking operations
const (
	opSubstitute = iota
	opDelete
	opInsert
)

// Align computes the minimum-cost edit alignment between the performed and
// reference note sequences with dynamic programming. O(R*P) time and space.
// Empty sequences are valid: the result is all-deletions or all-insertions.
// Ties break toward substitution over deletion/insertion.
func Align(perf, ref []model.Note, costs Costs) (*Result, error) {
	if err := costs.Validate(); err != nil {
		return nil, fmt.Errorf("alignment costs: %w", err)
	}

	n := len(ref)
	m := len(perf)

	// mat[i][j]: cost of aligning ref[:i] with perf[:j]
	mat := make([][]float64, n+1)
	back := make([][]uint8, n+1)
	for i := range mat {
		mat[i] = make([]float64, m+1)
		back[i] = make([]uint8, m+1)
	}
	for j := 1; j <= m; j++ {
		mat[0][j] = float64(j) * costs.InsertionPenalty
		back[0][j] = opInsert
	}
	for i := 1; i <= n; i++ {
		mat[i][0] = float64(i) * costs.DeletionPenalty
		back[i][0] = opDelete
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			sub := mat[i-1][j-1] + costs.Substitution(perf[j-1], ref[i-1])
			del := mat[i-1][j] + costs.DeletionPenalty
			ins := mat[i][j-1] + costs.InsertionPenalty

			// Substitution wins ties: a note is better explained as a
			// mistake than as missing plus extra
			best := sub
			op := uint8(opSubstitute)
			if del < best {
				best = del
				op = opDelete
			}
			if ins < best {
				best = ins
				op = opInsert
			}

			mat[i][j] = best
			back[i][j] = op
		}
	}

	edges := backtrack(mat, back, n, m, costs)

	return &Result{
		Edges:      edges,
		TotalCost:  mat[n][m],
		RefLength:  n,
		PerfLength: m,
	}, nil
}

func backtrack(mat [][]float64, back [][]uint8, n, m int, costs Costs) []Edge {
	edges := make([]Edge, 0, n+m)

	i, j := n, m
	for i > 0 || j > 0 {
		switch back[i][j] {
		case opSubstitute:
			edges = append(edges, Edge{
				RefIndex:  i - 1,
				PerfIndex: j - 1,
				Cost:      mat[i][j] - mat[i-1][j-1],
			})
			i--
			j--
		case opDelete:
			edges = append(edges, Edge{
				RefIndex:  i - 1,
				PerfIndex: -1,
				Cost:      costs.DeletionPenalty,
			})
			i--
		case opInsert:
			edges = append(edges, Edge{
				RefIndex:  -1,
				PerfIndex: j - 1,
				Cost:      costs.InsertionPenalty,
			})
			j--
		}
	}

	// Reverse into score order
	for a, b := 0, len(edges)-1; a < b; a, b = a+1, b-1 {
		edges[a], edges[b] = edges[b], edges[a]
	}
	return edges
}
