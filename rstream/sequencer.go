package rstream

import "sync"

// sequencer serializes event delivery for a single [Subject].
//
// Every publish appends to the FIFO under the lock.
// Whichever goroutine finds the pump idle becomes the drainer,
// delivering queued events one at a time with the lock
// released around subscriber callbacks.
// A callback publishing back into the same Subject
// therefore only appends to the FIFO and returns;
// the outer drain pass picks the event up,
// preserving total order without re-entrant locking.
type sequencer[T any] struct {
	mu sync.Mutex

	queue []Event[T]

	// True while some goroutine is draining the queue.
	delivering bool
}

// enqueue appends e to the FIFO and reports whether
// the caller became the drainer.
// The lock must be held.
func (q *sequencer[T]) enqueue(e Event[T]) (drain bool) {
	q.queue = append(q.queue, e)
	if q.delivering {
		return false
	}
	q.delivering = true
	return true
}

// next pops the head of the FIFO,
// marking the pump idle when the FIFO is empty.
// The lock must be held.
func (q *sequencer[T]) next() (Event[T], bool) {
	if len(q.queue) == 0 {
		q.delivering = false
		return Event[T]{}, false
	}

	e := q.queue[0]
	q.queue[0] = Event[T]{}
	q.queue = q.queue[1:]
	return e, true
}
