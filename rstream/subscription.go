package rstream

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Source is anything that can be subscribed to and that
// produces value, error, and completion events.
type Source[T any] interface {
	// Subscribe registers a subscriber. It never blocks.
	//
	// If the source has already terminated,
	// the terminal event is delivered immediately
	// and the returned subscription is inert.
	Subscribe(cfg SubscriberConfig[T]) (Subscription, error)
}

// Subscription is one subscriber's live attachment to a [Source].
type Subscription interface {
	// Cancel detaches the subscriber.
	// It is idempotent, and safe to call from within
	// the subscriber's own delivery callback
	// or after the source has already terminated.
	//
	// Cancellation during a delivery round affects
	// only subsequent rounds:
	// an event already being fanned out is still delivered
	// to the snapshot taken for that round.
	Cancel()

	// IsActive reports whether the subscription
	// can still receive events.
	IsActive() bool
}

// BufferedSubscription is implemented by subscriptions created
// with a positive [SubscriberConfig].Buffer.
type BufferedSubscription interface {
	Subscription

	// Drops reports how many events have been discarded
	// under the configured overflow policy.
	Drops() Drops
}

// Drops reports events discarded by a buffered subscription
// due to overflow.
type Drops struct {
	Events uint64
}

// OverflowPolicy controls how a buffered subscription behaves
// when its queue is full.
//
// Terminal events are exempt: they are always delivered
// (blocking if necessary) so a subscriber cannot miss
// completion or a terminal error due to overflow.
type OverflowPolicy uint8

const (
	// DropNewest discards the incoming event when the queue is full.
	// The publisher is never blocked.
	DropNewest OverflowPolicy = iota

	// DropOldest discards one queued event to make room
	// for the incoming one.
	// The publisher is never blocked.
	DropOldest

	// Block makes the publisher wait until the subscriber
	// drains the queue.
	// This trades publisher throughput for lossless delivery.
	Block
)

// SubscriberConfig describes one subscriber.
//
// Either OnEvent or at least one of the three callbacks
// must be set.
type SubscriberConfig[T any] struct {
	// OnEvent receives every event verbatim.
	// When set, the three callbacks below are ignored.
	// Operator stages subscribe in this form.
	OnEvent func(Event[T])

	// OnValue receives each published value.
	OnValue func(T)

	// OnError receives each error event.
	// A subscriber with no OnError (and no OnEvent)
	// receiving an error is a contract violation;
	// the error is escalated to the Subject's logger
	// rather than silently dropped.
	OnError func(error)

	// OnComplete is invoked once, when the stream completes.
	OnComplete func()

	// Buffer selects a buffered subscription when positive:
	// events are queued to a bounded per-subscriber queue
	// drained by a dedicated goroutine,
	// so a slow subscriber cannot stall the publisher.
	//
	// The goroutine stops on a terminal event or on Cancel.
	// A buffered subscriber that is never cancelled
	// on a stream that never terminates is a goroutine leak.
	//
	// Zero means synchronous delivery
	// on the publishing goroutine.
	Buffer int

	// Policy applies only to buffered subscriptions.
	Policy OverflowPolicy
}

func (cfg SubscriberConfig[T]) hasHandler() bool {
	return cfg.OnEvent != nil ||
		cfg.OnValue != nil ||
		cfg.OnError != nil ||
		cfg.OnComplete != nil
}

// subjectSub is a live attachment to a [Subject].
type subjectSub[T any] struct {
	subject *Subject[T]
	id      uint64

	cfg SubscriberConfig[T]
	log *slog.Logger

	active atomic.Bool

	// Buffered delivery; nil for synchronous subscriptions.
	queue chan Event[T]
	done  chan struct{}

	dropped    atomic.Uint64
	cancelOnce sync.Once
}

func (sub *subjectSub[T]) Cancel() {
	sub.cancelOnce.Do(func() {
		sub.active.Store(false)
		sub.subject.remove(sub.id)
		if sub.done != nil {
			close(sub.done)
		}
	})
}

func (sub *subjectSub[T]) IsActive() bool {
	return sub.active.Load()
}

func (sub *subjectSub[T]) Drops() Drops {
	return Drops{Events: sub.dropped.Load()}
}

// deliver hands e to the subscriber:
// directly for synchronous subscriptions,
// via the bounded queue for buffered ones.
func (sub *subjectSub[T]) deliver(e Event[T]) {
	if sub.queue == nil {
		sub.dispatch(e)
		return
	}

	if e.IsTerminal() {
		// Terminal events are never dropped.
		select {
		case sub.queue <- e:
		case <-sub.done:
		}
		return
	}

	switch sub.cfg.Policy {
	case Block:
		select {
		case sub.queue <- e:
		case <-sub.done:
		}

	case DropNewest:
		select {
		case sub.queue <- e:
		default:
			sub.dropped.Add(1)
		}

	case DropOldest:
		select {
		case sub.queue <- e:
			return
		case <-sub.done:
			return
		default:
		}
		select {
		case <-sub.queue:
		default:
		}
		select {
		case sub.queue <- e:
		default:
			sub.dropped.Add(1)
		}

	default:
		panic(fmt.Errorf("unknown overflow policy: %v", sub.cfg.Policy))
	}
}

// run drains the buffered queue until a terminal event
// or cancellation.
func (sub *subjectSub[T]) run() {
	for {
		select {
		case <-sub.done:
			return

		case e := <-sub.queue:
			sub.dispatch(e)
			if e.IsTerminal() {
				return
			}
		}
	}
}

// dispatch invokes the subscriber's handler for e.
func (sub *subjectSub[T]) dispatch(e Event[T]) {
	if sub.cfg.OnEvent != nil {
		sub.cfg.OnEvent(e)
		return
	}

	switch e.Kind {
	case KindValue:
		if sub.cfg.OnValue != nil {
			sub.cfg.OnValue(e.Val)
		}

	case KindError:
		if sub.cfg.OnError != nil {
			sub.cfg.OnError(e.Err)
			return
		}
		sub.log.Error(
			"Unhandled stream error reached a subscriber with no error handler",
			"err", e.Err,
		)

	case KindComplete:
		if sub.cfg.OnComplete != nil {
			sub.cfg.OnComplete()
		}
	}
}

// inertSubscription is returned from Subscribe on a source
// that has already terminated.
type inertSubscription struct{}

func (inertSubscription) Cancel()        {}
func (inertSubscription) IsActive() bool { return false }
