package tracker

import (
	"sync"

	"github.com/RyanBlaney/melodia/model"
)

// noteQueue is an unbounded single-producer single-consumer queue between
// the audio path and the alignment worker. Unbounded because the producer
// runs on the real-time path and must never block on a slow consumer.
type noteQueue struct {
	mu     sync.Mutex
	items  []model.Note
	signal chan struct{}
	closed bool
}

func newNoteQueue() *noteQueue {
	return &noteQueue{
		signal: make(chan struct{}, 1),
	}
}

func (q *noteQueue) push(n model.Note) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, n)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// close marks the queue finished. Items already queued still drain.
func (q *noteQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.signal)
	q.mu.Unlock()
}

// pop blocks until an item is available or the queue is closed and drained
func (q *noteQueue) pop() (model.Note, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			n := q.items[0]
			q.items = q.items[1:]
			if len(q.items) == 0 {
				// Let the backing array be reclaimed between bursts.
				q.items = nil
			}
			q.mu.Unlock()
			return n, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return model.Note{}, false
		}
		<-q.signal
	}
}
