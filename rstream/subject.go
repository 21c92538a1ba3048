package rstream

import (
	"log/slog"
	"slices"
)

// Subject is simultaneously a sink and a multicast source:
// values, errors, and completion published into it
// fan out to every attached subscriber in one total order.
//
// All publish entry points are safe for concurrent use.
// Delivery is serialized by the Subject's sequencer:
// every subscriber observes the same relative order of events,
// and no subscriber skips an event another subscriber received.
//
// The Subject exclusively owns its subscriber set.
// Subscriptions hold only an identifier back into the set,
// so subscribing and cancelling from inside delivery callbacks
// is safe and affects only subsequent delivery rounds.
type Subject[T any] struct {
	log *slog.Logger

	seq sequencer[T]

	// The canonical subscriber set, ordered by subscription time.
	// Guarded by seq.mu.
	subs   []*subjectSub[T]
	nextID uint64

	// Guarded by seq.mu.
	// Once closed is set, no further events are accepted.
	closed bool

	// The terminal error, when the Subject was closed by Fail.
	// Replayed to late subscribers.
	// Guarded by seq.mu.
	failure error
}

// NewSubject returns an initialized broadcast Subject.
//
// The logger is the fallback sink for error events reaching
// subscribers that registered no error handler.
// A nil log falls back to [slog.Default].
func NewSubject[T any](log *slog.Logger) *Subject[T] {
	if log == nil {
		log = slog.Default()
	}
	return &Subject[T]{log: log}
}

// Subscribe registers a subscriber and returns its subscription.
// It never blocks.
//
// If the Subject already failed terminally,
// that error is delivered immediately and an inert
// subscription is returned.
// If it already completed, completion is delivered immediately.
func (s *Subject[T]) Subscribe(cfg SubscriberConfig[T]) (Subscription, error) {
	if !cfg.hasHandler() {
		return nil, ErrNoHandlers
	}

	s.seq.mu.Lock()

	if s.closed {
		failure := s.failure
		s.seq.mu.Unlock()

		late := &subjectSub[T]{cfg: cfg, log: s.log}
		if failure != nil {
			late.dispatch(TerminalErrorEvent[T](failure))
		} else {
			late.dispatch(CompleteEvent[T]())
		}
		return inertSubscription{}, nil
	}

	sub := &subjectSub[T]{
		subject: s,
		id:      s.nextID,
		cfg:     cfg,
		log:     s.log,
	}
	s.nextID++
	sub.active.Store(true)

	if cfg.Buffer > 0 {
		sub.queue = make(chan Event[T], cfg.Buffer)
		sub.done = make(chan struct{})
		go sub.run()
	}

	s.subs = append(s.subs, sub)
	s.seq.mu.Unlock()

	return sub, nil
}

// Publish enqueues a value event for delivery
// to every attached subscriber.
//
// After Close or Fail, Publish is a no-op reported
// to the caller as a [ClosedSinkError];
// subscribers never observe the rejected value.
func (s *Subject[T]) Publish(v T) error {
	return s.enqueue("publish", ValueEvent(v))
}

// PublishError enqueues a NON-terminal error event:
// subscribers receive the error and continue receiving
// any subsequent values.
// Use [*Subject.Fail] for the terminal variant.
func (s *Subject[T]) PublishError(err error) error {
	return s.enqueue("publish error", ErrorEvent[T](err))
}

// Fail delivers err to every subscriber and closes the Subject.
// Late subscribers receive the same error immediately
// upon subscribing.
//
// Failing an already-closed Subject returns a [ClosedSinkError].
func (s *Subject[T]) Fail(err error) error {
	s.seq.mu.Lock()
	if s.closed {
		s.seq.mu.Unlock()
		return ClosedSinkError{Op: "fail"}
	}
	s.closed = true
	s.failure = err

	if !s.seq.enqueue(TerminalErrorEvent[T](err)) {
		s.seq.mu.Unlock()
		return nil
	}
	s.drainLocked()
	return nil
}

// Close enqueues the completion event and marks the Subject closed.
//
// Close is idempotent: closing twice is a no-op, not an error.
// It is always safe to call with subscribers still attached;
// each receives exactly one completion event.
func (s *Subject[T]) Close() error {
	s.seq.mu.Lock()
	if s.closed {
		s.seq.mu.Unlock()
		return nil
	}
	s.closed = true

	if !s.seq.enqueue(CompleteEvent[T]()) {
		s.seq.mu.Unlock()
		return nil
	}
	s.drainLocked()
	return nil
}

// NumSubscribers reports the current size of the subscriber set.
func (s *Subject[T]) NumSubscribers() int {
	s.seq.mu.Lock()
	defer s.seq.mu.Unlock()
	return len(s.subs)
}

func (s *Subject[T]) enqueue(op string, e Event[T]) error {
	s.seq.mu.Lock()
	if s.closed {
		s.seq.mu.Unlock()
		return ClosedSinkError{Op: op}
	}

	if !s.seq.enqueue(e) {
		// Another goroutine is draining;
		// it will deliver e in order.
		s.seq.mu.Unlock()
		return nil
	}
	s.drainLocked()
	return nil
}

// drainLocked delivers queued events in order until the FIFO
// is empty. The sequencer lock must be held on entry;
// it is released on return.
//
// The subscriber set is snapshotted per event,
// so mutation from inside callbacks is safe and affects
// only the next delivery round.
func (s *Subject[T]) drainLocked() {
	for {
		e, ok := s.seq.next()
		if !ok {
			s.seq.mu.Unlock()
			return
		}

		snapshot := slices.Clone(s.subs)
		if e.IsTerminal() {
			for _, sub := range s.subs {
				sub.active.Store(false)
			}
			s.subs = nil
		}
		s.seq.mu.Unlock()

		for _, sub := range snapshot {
			sub.deliver(e)
		}

		s.seq.mu.Lock()
	}
}

// remove detaches the subscriber with the given id,
// if it is still in the set.
func (s *Subject[T]) remove(id uint64) {
	s.seq.mu.Lock()
	defer s.seq.mu.Unlock()

	s.subs = slices.DeleteFunc(s.subs, func(sub *subjectSub[T]) bool {
		return sub.id == id
	})
}
