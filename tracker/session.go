package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/RyanBlaney/melodia/algorithms/align"
	"github.com/RyanBlaney/melodia/algorithms/common"
	"github.com/RyanBlaney/melodia/algorithms/filters"
	"github.com/RyanBlaney/melodia/algorithms/pitch"
	"github.com/RyanBlaney/melodia/algorithms/scoring"
	"github.com/RyanBlaney/melodia/algorithms/segment"
	"github.com/RyanBlaney/melodia/logging"
	"github.com/RyanBlaney/melodia/model"
	"github.com/RyanBlaney/melodia/score"
)

// ErrSessionStopped is returned when samples arrive after Stop
var ErrSessionStopped = errors.New("session already stopped")

// Session runs the full analysis pipeline for one performance against one
// reference score. Framing, pitch detection, and segmentation happen on the
// caller's goroutine inside ProcessSamples; alignment and scoring run on a
// dedicated worker fed through an unbounded queue, so the audio path never
// waits on the aligner.
//
// ProcessSamples must be called from a single goroutine so frames keep
// their time order. Report and Stop are safe to call from any goroutine,
// including while ProcessSamples is running: Stop waits for the in-flight
// chunk before flushing.
type Session struct {
	id     string
	cfg    Config
	logger logging.Logger

	// audioMu serializes the audio path: ProcessSamples holds it for the
	// whole frame pipeline, Stop holds it while flushing the segmenter, so
	// a stop racing an in-flight chunk waits for that chunk to finish.
	audioMu   sync.Mutex
	dcBlock   *filters.DCRemoval
	scratch   []float64
	frames    *common.FrameBuffer
	detector  *pitch.Detector
	segmenter *segment.Segmenter

	queue  *noteQueue
	inc    *align.Incremental
	scorer scoring.Scorer
	ref    []model.Note
	done   chan struct{}

	mu      sync.RWMutex
	report  model.MistakeReport
	stopped bool
}

// NewSession validates the config and starts the alignment worker
func NewSession(sc *score.ReferenceScore, cfg Config) (*Session, error) {
	if sc == nil || sc.Len() == 0 {
		return nil, &ConfigError{Field: "score", Reason: "reference score is empty"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	detector, err := pitch.NewDetector(cfg.Pitch)
	if err != nil {
		return nil, fmt.Errorf("failed to create pitch detector: %w", err)
	}
	segmenter, err := segment.NewSegmenter(cfg.Segment)
	if err != nil {
		return nil, fmt.Errorf("failed to create segmenter: %w", err)
	}
	frames, err := common.NewFrameBuffer(cfg.Pitch.FrameSize, cfg.Pitch.HopSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame buffer: %w", err)
	}

	ref := sc.Notes()
	inc, err := align.NewIncremental(ref, cfg.Costs, cfg.FrontierLag)
	if err != nil {
		return nil, fmt.Errorf("failed to create aligner: %w", err)
	}

	scorer := cfg.scorer()
	s := &Session{
		id:        uuid.New().String(),
		cfg:       cfg,
		dcBlock:   filters.NewDCRemoval(),
		frames:    frames,
		detector:  detector,
		segmenter: segmenter,
		queue:     newNoteQueue(),
		inc:       inc,
		scorer:    scorer,
		ref:       ref,
		done:      make(chan struct{}),
		// Before any note arrives every reference note is unresolved.
		report: scorer.Score(nil, nil, ref, false),
	}
	s.logger = logging.WithFields(logging.Fields{
		"component":  "tracker",
		"session_id": s.id,
	})

	go s.alignLoop()

	s.logger.Info("session started", logging.Fields{
		"ref_notes":   len(ref),
		"sample_rate": cfg.Pitch.SampleRate,
		"frame_size":  cfg.Pitch.FrameSize,
		"hop_size":    cfg.Pitch.HopSize,
	})
	return s, nil
}

// ID returns the session's unique identifier
func (s *Session) ID() string {
	return s.id
}

// ProcessSamples feeds mono audio into the pipeline. Samples may arrive in
// chunks of any size; internal buffering reassembles analysis frames.
func (s *Session) ProcessSamples(samples []float64) error {
	s.audioMu.Lock()
	defer s.audioMu.Unlock()

	// Checked under audioMu: once Stop has flushed, no chunk gets through.
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		return ErrSessionStopped
	}

	// DC offset from a capture device inflates frame RMS and defeats the
	// silence gate, so block it before framing. Filtering goes through a
	// scratch buffer so the caller's chunk is never mutated.
	if cap(s.scratch) < len(samples) {
		s.scratch = make([]float64, len(samples))
	}
	filtered := s.scratch[:len(samples)]
	for i, x := range samples {
		filtered[i] = s.dcBlock.Process(x)
	}

	sampleRate := float64(s.cfg.Pitch.SampleRate)
	s.frames.Push(filtered, func(frame []float64, startIndex int64) {
		est := s.detector.ProcessFrame(frame, float64(startIndex)/sampleRate)
		if s.cfg.OnEstimate != nil {
			s.cfg.OnEstimate(est)
		}

		note := s.segmenter.Push(est)
		if note == nil {
			return
		}
		s.emit(*note)
	})
	return nil
}

func (s *Session) emit(note model.Note) {
	if s.cfg.OnNote != nil {
		s.cfg.OnNote(note)
	}
	s.logger.Debug("note segmented", logging.Fields{
		"pitch":    note.Pitch,
		"onset":    note.Onset,
		"duration": note.Duration,
	})
	s.queue.push(note)
}

// alignLoop consumes segmented notes, re-aligns, and republishes the report
func (s *Session) alignLoop() {
	defer close(s.done)

	for {
		note, ok := s.queue.pop()
		if !ok {
			return
		}

		edges, watermark, err := s.inc.Add(note)
		if err != nil {
			s.logger.Error(err, "alignment failed, dropping note")
			continue
		}

		// Only the settled prefix is judged; frontier pairings may still
		// change as more notes arrive.
		report := s.scorer.Score(edges[:watermark], s.inc.Performed(), s.ref, false)
		s.mu.Lock()
		s.report = report
		s.mu.Unlock()
	}
}

// Report returns a snapshot of the current mistake report. Until Stop
// completes, trailing reference notes may be StatusPending.
func (s *Session) Report() model.MistakeReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report.Clone()
}

// Stop flushes the pipeline, waits for the alignment worker to drain, runs
// one final unrestricted alignment, and returns the finalized report.
// Stopping twice returns ErrSessionStopped.
func (s *Session) Stop(ctx context.Context) (model.MistakeReport, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return model.MistakeReport{}, ErrSessionStopped
	}
	s.stopped = true
	s.mu.Unlock()

	// A note still sounding when input ends becomes a final note. Buffered
	// samples shorter than one frame cannot produce an estimate and are
	// dropped. Taking audioMu waits out any chunk still inside
	// ProcessSamples, so its notes land in the queue before it closes.
	s.audioMu.Lock()
	note := s.segmenter.Flush()
	s.audioMu.Unlock()
	if note != nil {
		s.emit(*note)
	}
	s.queue.close()

	select {
	case <-s.done:
	case <-ctx.Done():
		return model.MistakeReport{}, fmt.Errorf("session stop interrupted: %w", ctx.Err())
	}

	edges, err := s.inc.Final()
	if err != nil {
		return model.MistakeReport{}, fmt.Errorf("final alignment failed: %w", err)
	}
	final := s.scorer.Score(edges, s.inc.Performed(), s.ref, true)

	s.mu.Lock()
	s.report = final
	s.mu.Unlock()

	counts := final.Counts()
	s.logger.Info("session finalized", logging.Fields{
		"performed":   s.inc.PerformedCount(),
		"matched":     counts[model.StatusMatched],
		"wrong_pitch": counts[model.StatusWrongPitch],
		"mistimed":    counts[model.StatusMistimed],
		"missed":      counts[model.StatusMissed],
		"extras":      len(final.Extras),
	})
	return final.Clone(), nil
}
