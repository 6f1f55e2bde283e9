package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/melodia/algorithms/align"
	"github.com/RyanBlaney/melodia/model"
)

func note(midi, onset float64) model.Note {
	return model.Note{Pitch: midi, Onset: onset, Duration: 0.4}
}

func alignAll(t *testing.T, perf, ref []model.Note) []align.Edge {
	t.Helper()
	result, err := align.Align(perf, ref, align.DefaultCosts())
	require.NoError(t, err)
	return result.Edges
}

func TestPerfectPerformanceAllMatched(t *testing.T) {
	ref := []model.Note{note(60, 0), note(62, 0.5), note(64, 1.0)}
	perf := []model.Note{note(60.1, 0.03), note(61.9, 0.52), note(64, 1.01)}

	report := DefaultScorer().Score(alignAll(t, perf, ref), perf, ref, true)

	require.Len(t, report.Outcomes, 3)
	for _, o := range report.Outcomes {
		assert.Equal(t, model.StatusMatched, o.Status)
	}
	assert.Empty(t, report.Extras)
	assert.True(t, report.Finalized)
}

func TestOmittedNoteReportedMissed(t *testing.T) {
	ref := []model.Note{note(60, 0), note(62, 0.5), note(64, 1.0)}
	perf := []model.Note{note(60, 0), note(64, 1.0)}

	report := DefaultScorer().Score(alignAll(t, perf, ref), perf, ref, true)

	assert.Equal(t, model.StatusMatched, report.Outcomes[0].Status)
	assert.Equal(t, model.StatusMissed, report.Outcomes[1].Status)
	assert.Equal(t, -1, report.Outcomes[1].PerfIndex)
	assert.Equal(t, model.StatusMatched, report.Outcomes[2].Status)
}

func TestExtraNoteReported(t *testing.T) {
	ref := []model.Note{note(60, 0), note(62, 0.5)}
	perf := []model.Note{note(60, 0), note(67, 0.25), note(62, 0.5)}

	report := DefaultScorer().Score(alignAll(t, perf, ref), perf, ref, true)

	assert.Equal(t, model.StatusMatched, report.Outcomes[0].Status)
	assert.Equal(t, model.StatusMatched, report.Outcomes[1].Status)
	require.Len(t, report.Extras, 1)
	assert.Equal(t, 1, report.Extras[0].PerfIndex)
	assert.InDelta(t, 67.0, report.Extras[0].Note.Pitch, 1e-9)
}

func TestWrongPitchWithCents(t *testing.T) {
	// Temporally aligned, two semitones sharp
	ref := []model.Note{note(60, 0)}
	perf := []model.Note{note(62, 0.02)}

	report := DefaultScorer().Score(alignAll(t, perf, ref), perf, ref, true)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, model.StatusWrongPitch, report.Outcomes[0].Status)
	assert.InDelta(t, 200.0, report.Outcomes[0].PitchErrorCents, 1e-6)
	assert.InDelta(t, 20.0, report.Outcomes[0].OnsetErrorMs, 1e-6)
}

func TestMistimed(t *testing.T) {
	ref := []model.Note{note(60, 0)}
	perf := []model.Note{note(60, 0.4)} // pitch fine, 400ms late

	report := DefaultScorer().Score(alignAll(t, perf, ref), perf, ref, true)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, model.StatusMistimed, report.Outcomes[0].Status)
	assert.InDelta(t, 400.0, report.Outcomes[0].OnsetErrorMs, 1e-6)
}

func TestBothExceededDefaultsToWrongPitch(t *testing.T) {
	ref := []model.Note{note(60, 0)}
	perf := []model.Note{note(63, 0.5)}

	report := DefaultScorer().Score(alignAll(t, perf, ref), perf, ref, true)

	assert.Equal(t, model.StatusWrongPitch, report.Outcomes[0].Status)
}

func TestScoringIsIdempotent(t *testing.T) {
	ref := []model.Note{note(60, 0), note(62, 0.5), note(64, 1.0)}
	perf := []model.Note{note(60, 0), note(65, 0.55), note(64, 1.0)}
	edges := alignAll(t, perf, ref)

	first := DefaultScorer().Score(edges, perf, ref, true)
	second := DefaultScorer().Score(edges, perf, ref, true)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b, "identical inputs must yield byte-identical reports")
}

func TestUncoveredRefNotesStayPending(t *testing.T) {
	ref := []model.Note{note(60, 0), note(62, 0.5), note(64, 1.0)}
	perf := []model.Note{note(60, 0)}

	// Only the first edge is in the stable prefix
	edges := []align.Edge{{RefIndex: 0, PerfIndex: 0}}
	report := DefaultScorer().Score(edges, perf, ref, false)

	assert.Equal(t, model.StatusMatched, report.Outcomes[0].Status)
	assert.Equal(t, model.StatusPending, report.Outcomes[1].Status)
	assert.Equal(t, model.StatusPending, report.Outcomes[2].Status)
	assert.False(t, report.Finalized)
}

func TestAllSilenceAllMissed(t *testing.T) {
	ref := []model.Note{note(60, 0), note(62, 0.5)}

	report := DefaultScorer().Score(alignAll(t, nil, ref), nil, ref, true)

	for _, o := range report.Outcomes {
		assert.Equal(t, model.StatusMissed, o.Status)
	}
	counts := report.Counts()
	assert.Equal(t, 2, counts[model.StatusMissed])
}

func TestScorerValidate(t *testing.T) {
	s := DefaultScorer()
	s.PitchToleranceSemitones = 0
	assert.Error(t, s.Validate())

	s = DefaultScorer()
	s.OnsetToleranceSeconds = -0.1
	assert.Error(t, s.Validate())
}
