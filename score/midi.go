package score

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/RyanBlaney/melodia/model"
)

type noteEvent struct {
	micros   int64
	isEnd    bool
	channel  uint8
	key      uint8
	velocity uint8
}

// ReadSMF parses a Standard MIDI File into a validated ReferenceScore.
// Note-on/note-off pairs are matched per (channel, key) across all tracks,
// and event times come from the file's tempo map, so tempo changes
// mid-piece are honored.
func ReadSMF(r io.Reader) (*ReferenceScore, error) {
	f, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SMF: %w", err)
	}
	return FromSMF(f)
}

// LoadSMF reads a Standard MIDI File from disk
func LoadSMF(path string) (*ReferenceScore, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MIDI file: %w", err)
	}
	defer fd.Close()

	s, err := ReadSMF(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return s, nil
}

// FromSMF converts an already-parsed SMF into a ReferenceScore
func FromSMF(f *smf.SMF) (*ReferenceScore, error) {
	var events []noteEvent
	for _, track := range f.Tracks {
		var absTicks int64
		for _, evt := range track {
			absTicks += int64(evt.Delta)
			var channel, key, velocity uint8
			switch {
			case evt.Message.GetNoteStart(&channel, &key, &velocity):
				events = append(events, noteEvent{
					micros:   f.TimeAt(absTicks),
					channel:  channel,
					key:      key,
					velocity: velocity,
				})
			case evt.Message.GetNoteEnd(&channel, &key):
				events = append(events, noteEvent{
					micros:  f.TimeAt(absTicks),
					isEnd:   true,
					channel: channel,
					key:     key,
				})
			}
		}
	}

	// Note-ends sort before note-starts at the same instant so a
	// re-struck key closes cleanly before it reopens.
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].micros != events[j].micros {
			return events[i].micros < events[j].micros
		}
		return events[i].isEnd && !events[j].isEnd
	})

	type noteKey struct {
		channel uint8
		key     uint8
	}
	open := make(map[noteKey]noteEvent)
	var notes []model.Note
	for _, evt := range events {
		k := noteKey{channel: evt.channel, key: evt.key}
		if !evt.isEnd {
			open[k] = evt
			continue
		}
		start, ok := open[k]
		if !ok {
			continue
		}
		delete(open, k)
		dur := float64(evt.micros-start.micros) / 1e6
		if dur <= 0 {
			continue
		}
		notes = append(notes, model.Note{
			Pitch:          float64(start.key),
			Onset:          float64(start.micros) / 1e6,
			Duration:       dur,
			MeanConfidence: 1.0,
			MeanAmplitude:  float64(start.velocity) / 127.0,
		})
	}
	// Note-ons never terminated carry no usable duration and are dropped.

	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Onset != notes[j].Onset {
			return notes[i].Onset < notes[j].Onset
		}
		return notes[i].Pitch < notes[j].Pitch
	})

	return New(notes)
}
