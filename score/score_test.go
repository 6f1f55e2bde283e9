package score

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/RyanBlaney/melodia/model"
)

func TestNewValidScore(t *testing.T) {
	s, err := New([]model.Note{
		{Pitch: 60, Onset: 0.0, Duration: 0.5},
		{Pitch: 62, Onset: 0.5, Duration: 0.5},
		{Pitch: 64, Onset: 1.0, Duration: 1.0},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.InDelta(t, 2.0, s.Duration(), 1e-9)
	assert.Equal(t, 62.0, s.Note(1).Pitch)
}

func TestNewCopiesInput(t *testing.T) {
	in := []model.Note{{Pitch: 60, Onset: 0.0, Duration: 0.5}}
	s, err := New(in)
	require.NoError(t, err)

	in[0].Pitch = 72
	assert.Equal(t, 60.0, s.Note(0).Pitch)

	out := s.Notes()
	out[0].Pitch = 48
	assert.Equal(t, 60.0, s.Note(0).Pitch)
}

func TestNewRejectsMalformedScores(t *testing.T) {
	tests := []struct {
		name  string
		notes []model.Note
		field string
		index int
	}{
		{
			name:  "empty score",
			notes: nil,
			field: "",
			index: -1,
		},
		{
			name: "negative onset",
			notes: []model.Note{
				{Pitch: 60, Onset: -0.1, Duration: 0.5},
			},
			field: "onset",
			index: 0,
		},
		{
			name: "zero duration",
			notes: []model.Note{
				{Pitch: 60, Onset: 0.0, Duration: 0.0},
			},
			field: "duration",
			index: 0,
		},
		{
			name: "onsets out of order",
			notes: []model.Note{
				{Pitch: 60, Onset: 1.0, Duration: 0.5},
				{Pitch: 62, Onset: 0.5, Duration: 0.5},
			},
			field: "order",
			index: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.notes)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.index, verr.Index)
		})
	}
}

func TestReadSMF(t *testing.T) {
	// One quarter note each of C4 and D4 at the default 120 BPM, so
	// 960 ticks is half a second.
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(960, midi.NoteOff(0, 60))
	tr.Add(0, midi.NoteOn(0, 62, 80))
	tr.Add(960, midi.NoteOff(0, 62))
	tr.Close(0)

	f := smf.New()
	require.NoError(t, f.Add(tr))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	s, err := ReadSMF(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	first := s.Note(0)
	assert.Equal(t, 60.0, first.Pitch)
	assert.InDelta(t, 0.0, first.Onset, 1e-3)
	assert.InDelta(t, 0.5, first.Duration, 1e-3)
	assert.InDelta(t, 100.0/127.0, first.MeanAmplitude, 1e-9)

	second := s.Note(1)
	assert.Equal(t, 62.0, second.Pitch)
	assert.InDelta(t, 0.5, second.Onset, 1e-3)
	assert.InDelta(t, 0.5, second.Duration, 1e-3)
}

func TestReadSMFOverlappingChannels(t *testing.T) {
	// Same key on two channels must pair independently.
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(0, midi.NoteOn(1, 60, 100))
	tr.Add(480, midi.NoteOff(0, 60))
	tr.Add(480, midi.NoteOff(1, 60))
	tr.Close(0)

	f := smf.New()
	require.NoError(t, f.Add(tr))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	s, err := ReadSMF(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.InDelta(t, 0.25, s.Note(0).Duration, 1e-3)
	assert.InDelta(t, 0.5, s.Note(1).Duration, 1e-3)
}

func TestScaled(t *testing.T) {
	s, err := New([]model.Note{
		{Pitch: 60, Onset: 0.0, Duration: 0.5},
		{Pitch: 62, Onset: 1.0, Duration: 0.5},
	})
	require.NoError(t, err)

	fast, err := s.Scaled(2.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, fast.Note(1).Onset, 1e-9)
	assert.InDelta(t, 0.25, fast.Note(1).Duration, 1e-9)

	// Source untouched
	assert.InDelta(t, 1.0, s.Note(1).Onset, 1e-9)

	_, err = s.Scaled(0)
	assert.Error(t, err)
}

func TestReadSMFVelocityZeroEndsNote(t *testing.T) {
	// A note-on with velocity 0 is a note end.
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(960, midi.NoteOn(0, 60, 0))
	tr.Close(0)

	f := smf.New()
	require.NoError(t, f.Add(tr))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	s, err := ReadSMF(&buf)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	assert.InDelta(t, 0.5, s.Note(0).Duration, 1e-3)
}

func TestReadSMFGarbage(t *testing.T) {
	_, err := ReadSMF(bytes.NewReader([]byte("not a midi file")))
	assert.Error(t, err)
}
