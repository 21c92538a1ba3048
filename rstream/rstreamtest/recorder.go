// Package rstreamtest contains test utilities
// for code built on the rstream engine.
package rstreamtest

import (
	"sync"

	"github.com/rill-engine/rill/rstream"
)

// Recorder is a subscriber that records every delivered event,
// for tests and diagnostics.
//
// Recorder is safe under concurrent delivery.
type Recorder[T any] struct {
	mu     sync.Mutex
	events []rstream.Event[T]
}

// NewRecorder returns an empty Recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

// Config returns a subscriber config that records into r.
func (r *Recorder[T]) Config() rstream.SubscriberConfig[T] {
	return rstream.SubscriberConfig[T]{OnEvent: r.Record}
}

// Record appends e to the recorded events.
func (r *Recorder[T]) Record(e rstream.Event[T]) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a snapshot copy of recorded events.
func (r *Recorder[T]) Events() []rstream.Event[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := make([]rstream.Event[T], len(r.events))
	copy(cp, r.events)
	return cp
}

// Values returns the payloads of recorded value events, in order.
func (r *Recorder[T]) Values() []T {
	evs := r.Events()

	var out []T
	for _, e := range evs {
		if e.Kind == rstream.KindValue {
			out = append(out, e.Val)
		}
	}
	return out
}

// Errs returns the recorded error event payloads, in order.
func (r *Recorder[T]) Errs() []error {
	evs := r.Events()

	var out []error
	for _, e := range evs {
		if e.Kind == rstream.KindError {
			out = append(out, e.Err)
		}
	}
	return out
}

// Completed reports whether a completion event was recorded.
func (r *Recorder[T]) Completed() bool {
	for _, e := range r.Events() {
		if e.Kind == rstream.KindComplete {
			return true
		}
	}
	return false
}

// Reset clears the recorder.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
