package common

import "fmt"

// FrameBuffer assembles a stream of raw samples into fixed-size overlapping
// analysis frames advancing by a hop. It retains only the trailing
// frameSize-hop samples between calls, keeping memory bounded regardless of
// stream length.
type FrameBuffer struct {
	frameSize int
	hopSize   int
	pending   []float64
	consumed  int64 // samples fully advanced past, for frame timestamps
}

// NewFrameBuffer creates a frame buffer for the given frame and hop sizes
func NewFrameBuffer(frameSize, hopSize int) (*FrameBuffer, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameSize)
	}
	if hopSize <= 0 || hopSize > frameSize {
		return nil, fmt.Errorf("hop size must be in (0, %d], got %d", frameSize, hopSize)
	}

	return &FrameBuffer{
		frameSize: frameSize,
		hopSize:   hopSize,
		pending:   make([]float64, 0, 2*frameSize),
	}, nil
}

// Push appends samples and invokes emit for every complete frame now
// available. The frame slice passed to emit is reused between calls; the
// callback must copy it if it needs to retain the data.
func (fb *FrameBuffer) Push(samples []float64, emit func(frame []float64, startIndex int64)) {
	fb.pending = append(fb.pending, samples...)

	for len(fb.pending) >= fb.frameSize {
		emit(fb.pending[:fb.frameSize], fb.consumed)

		fb.pending = fb.pending[fb.hopSize:]
		fb.consumed += int64(fb.hopSize)
	}

	// Reclaim capacity once the retained tail is small relative to the
	// backing array, otherwise append keeps growing it.
	if cap(fb.pending) > 4*fb.frameSize {
		tail := make([]float64, len(fb.pending), 2*fb.frameSize)
		copy(tail, fb.pending)
		fb.pending = tail
	}
}

// Pending returns the number of buffered samples not yet emitted as a frame
func (fb *FrameBuffer) Pending() int {
	return len(fb.pending)
}

// Reset discards buffered samples and restarts the sample clock
func (fb *FrameBuffer) Reset() {
	fb.pending = fb.pending[:0]
	fb.consumed = 0
}
