package rcombine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/rill-engine/rill/rstream"
)

// Config adjusts combinator behavior.
type Config struct {
	// TerminateOnPartialCompletion completes the derived source
	// as soon as any single input completes.
	//
	// The default is the conventional combine-latest rule:
	// completion of a strict subset of inputs does not
	// terminate the combinator — the remaining inputs keep
	// driving emissions — and completion is only forwarded
	// once every input has completed.
	TerminateOnPartialCompletion bool
}

// Latest derives a source that emits combine over the most
// recent value from every input, re-emitting on each input
// update once all inputs have produced at least one value.
//
// The slice passed to combine is a snapshot indexed by input
// position; combine owns it and may retain it.
// A panic inside combine becomes a non-terminal
// [rstream.TransformError] event downstream.
//
// An error event from ANY input terminates the combinator:
// the error propagates downstream as terminal and every
// upstream subscription is cancelled.
// Inputs that substitute errors upstream
// (for example via rop.OnErrorReturn) never present an error
// here and do not terminate the combinator.
//
// Latest panics if no inputs are given.
func Latest[In, Out any](
	cfg Config,
	combine func([]In) Out,
	inputs ...rstream.Source[In],
) rstream.Source[Out] {
	if len(inputs) == 0 {
		panic("rcombine.Latest: at least one input required")
	}

	return &engine[In, Out]{
		cfg:     cfg,
		combine: combine,
		inputs:  inputs,
	}
}

// engine is the reference-counted shell around one combinator.
// Mirrors the activation discipline of a rop stage:
// the per-activation state lives in an activation value
// so a late event racing a teardown writes to the subject
// of its own activation.
type engine[In, Out any] struct {
	cfg     Config
	combine func([]In) Out
	inputs  []rstream.Source[In]

	mu   sync.Mutex
	act  *activation[In, Out]
	refs int
}

func (en *engine[In, Out]) Subscribe(
	cfg rstream.SubscriberConfig[Out],
) (rstream.Subscription, error) {
	en.mu.Lock()
	defer en.mu.Unlock()

	activated := false
	if en.refs == 0 {
		a, err := en.activate()
		if err != nil {
			return nil, err
		}
		en.act = a
		activated = true
	}

	down, err := en.act.out.Subscribe(cfg)
	if err != nil {
		if activated {
			en.act.cancelUpstream()
			en.act = nil
		}
		return nil, err
	}

	en.refs++
	return &engineSub[In, Out]{engine: en, down: down}, nil
}

// activate builds fresh combinator state and subscribes
// to every input.
//
// The emission pump is held closed until all inputs are
// attached, so an input that delivers terminal state
// synchronously during Subscribe cannot trigger teardown
// while the upstream subscription list is still incomplete.
func (en *engine[In, Out]) activate() (*activation[In, Out], error) {
	n := len(en.inputs)

	a := &activation[In, Out]{
		cfg:     en.cfg,
		combine: en.combine,
		n:       n,
		out:     rstream.NewSubject[Out](nil),
		latest:  make([]In, n),
		armed:   bitset.New(uint(n)),
		done:    bitset.New(uint(n)),

		emitting: true,
	}

	for i := range en.inputs {
		i := i // per-iteration copy: go directive is below 1.22
		sub, err := en.inputs[i].Subscribe(rstream.SubscriberConfig[In]{
			OnEvent: func(e rstream.Event[In]) {
				a.onInput(i, e)
			},
		})
		if err != nil {
			a.cancelUpstream()
			return nil, err
		}
		a.upSubs = append(a.upSubs, sub)
	}

	// Release the pump and deliver anything queued
	// during attachment.
	a.mu.Lock()
	a.pumpLocked()

	return a, nil
}

// engineSub wraps a downstream subscription so that cancelling
// the last one releases the upstream subscriptions.
type engineSub[In, Out any] struct {
	engine *engine[In, Out]
	down   rstream.Subscription
	once   sync.Once
}

func (s *engineSub[In, Out]) Cancel() {
	s.once.Do(func() {
		s.down.Cancel()

		en := s.engine
		en.mu.Lock()
		en.refs--
		if en.refs == 0 {
			en.act.cancelUpstream()
			en.act = nil
		}
		en.mu.Unlock()
	})
}

func (s *engineSub[In, Out]) IsActive() bool {
	return s.down.IsActive()
}

// activation is the state of one live combinator:
// the latest-value cache, the armed and completed input masks,
// and the pump serializing downstream emissions.
type activation[In, Out any] struct {
	cfg     Config
	combine func([]In) Out
	n       int

	out *rstream.Subject[Out]

	mu sync.Mutex

	// latest[i] is input i's most recent value,
	// meaningful only once armed.Test(i).
	latest []In
	armed  *bitset.BitSet
	done   *bitset.BitSet

	// No further emissions once set:
	// an input errored, or completion was reached.
	terminated bool

	// Pending downstream events in observation order,
	// drained by a single pump pass at a time.
	pending  []rstream.Event[Out]
	emitting bool

	// Set by the pump pass that observes termination,
	// so upstream cancellation happens exactly once
	// and outside the state lock.
	cancelOnce sync.Once
	upSubs     []rstream.Subscription
}

// onInput handles one event from input i.
func (a *activation[In, Out]) onInput(i int, e rstream.Event[In]) {
	a.mu.Lock()

	if a.terminated {
		a.mu.Unlock()
		return
	}

	switch e.Kind {
	case rstream.KindValue:
		a.latest[i] = e.Val
		a.armed.Set(uint(i))
		if a.armed.Count() == uint(a.n) {
			snap := slices.Clone(a.latest)
			v, err := a.tryCombine(snap)
			if err != nil {
				a.pending = append(a.pending, rstream.ErrorEvent[Out](err))
			} else {
				a.pending = append(a.pending, rstream.ValueEvent(v))
			}
		}

	case rstream.KindError:
		a.terminated = true
		a.pending = append(a.pending, rstream.TerminalErrorEvent[Out](e.Err))

	case rstream.KindComplete:
		a.done.Set(uint(i))
		if a.cfg.TerminateOnPartialCompletion || a.done.Count() == uint(a.n) {
			a.terminated = true
			a.pending = append(a.pending, rstream.CompleteEvent[Out]())
		}
	}

	if a.emitting {
		a.mu.Unlock()
		return
	}
	a.emitting = true
	a.pumpLocked()
}

// pumpLocked publishes pending events downstream in order.
// The state lock must be held on entry; it is released on return.
func (a *activation[In, Out]) pumpLocked() {
	for {
		if len(a.pending) == 0 {
			a.emitting = false
			terminated := a.terminated
			a.mu.Unlock()

			if terminated {
				a.cancelUpstream()
			}
			return
		}

		e := a.pending[0]
		a.pending[0] = rstream.Event[Out]{}
		a.pending = a.pending[1:]
		a.mu.Unlock()

		switch e.Kind {
		case rstream.KindValue:
			_ = a.out.Publish(e.Val)
		case rstream.KindError:
			if e.Terminal {
				_ = a.out.Fail(e.Err)
			} else {
				_ = a.out.PublishError(e.Err)
			}
		case rstream.KindComplete:
			_ = a.out.Close()
		}

		a.mu.Lock()
	}
}

func (a *activation[In, Out]) cancelUpstream() {
	a.cancelOnce.Do(func() {
		for _, sub := range a.upSubs {
			sub.Cancel()
		}
	})
}

func (a *activation[In, Out]) tryCombine(snap []In) (v Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rstream.TransformError{
				Stage: "combine-latest",
				Err:   fmt.Errorf("panic: %v", r),
			}
		}
	}()

	return a.combine(snap), nil
}
