package rop

import (
	"fmt"
	"sync"

	"github.com/rill-engine/rill/rstream"
)

// stage is one node in an operator pipeline:
// one upstream source, a per-activation transform,
// and an inner subject fanning out to downstream subscribers.
//
// Stages are reference counted.
// The first downstream subscriber activates the stage;
// cancelling the last one releases the upstream subscription
// and discards transform state.
// A later subscriber reactivates the stage from empty state.
type stage[In, Out any] struct {
	upstream rstream.Source[In]

	// newApply returns a fresh per-activation transform.
	// Stateful operators keep their state inside
	// the returned closure.
	newApply func() func(rstream.Event[In], *rstream.Subject[Out])

	mu    sync.Mutex
	out   *rstream.Subject[Out]
	upSub rstream.Subscription
	refs  int
}

func newStage[In, Out any](
	src rstream.Source[In],
	newApply func() func(rstream.Event[In], *rstream.Subject[Out]),
) *stage[In, Out] {
	return &stage[In, Out]{
		upstream: src,
		newApply: newApply,
	}
}

func (st *stage[In, Out]) Subscribe(
	cfg rstream.SubscriberConfig[Out],
) (rstream.Subscription, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	activated := false
	if st.refs == 0 {
		// The local variables are deliberately captured here:
		// an apply call racing a teardown must keep writing
		// to the subject of its own activation,
		// not whatever st.out points at afterwards.
		out := rstream.NewSubject[Out](nil)
		apply := st.newApply()

		upSub, err := st.upstream.Subscribe(rstream.SubscriberConfig[In]{
			OnEvent: func(e rstream.Event[In]) {
				apply(e, out)
			},
		})
		if err != nil {
			return nil, err
		}

		st.out = out
		st.upSub = upSub
		activated = true
	}

	down, err := st.out.Subscribe(cfg)
	if err != nil {
		if activated {
			st.upSub.Cancel()
			st.out, st.upSub = nil, nil
		}
		return nil, err
	}

	st.refs++
	return &stageSub[In, Out]{stage: st, down: down}, nil
}

// stageSub wraps a downstream subscription so that cancelling
// the last one tears the stage down.
type stageSub[In, Out any] struct {
	stage *stage[In, Out]
	down  rstream.Subscription
	once  sync.Once
}

func (s *stageSub[In, Out]) Cancel() {
	s.once.Do(func() {
		s.down.Cancel()

		st := s.stage
		st.mu.Lock()
		st.refs--
		if st.refs == 0 {
			st.upSub.Cancel()
			st.out, st.upSub = nil, nil
		}
		st.mu.Unlock()
	})
}

func (s *stageSub[In, Out]) IsActive() bool {
	return s.down.IsActive()
}

// forward propagates a non-value event downstream,
// preserving terminality.
func forward[In, Out any](out *rstream.Subject[Out], e rstream.Event[In]) {
	switch e.Kind {
	case rstream.KindError:
		if e.Terminal {
			_ = out.Fail(e.Err)
			return
		}
		_ = out.PublishError(e.Err)

	case rstream.KindComplete:
		_ = out.Close()
	}
}

// tryApply runs fn, converting both a returned error and
// a recovered panic into a [rstream.TransformError].
func tryApply[T any](op string, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rstream.TransformError{
				Stage: op,
				Err:   fmt.Errorf("panic: %v", r),
			}
		}
	}()

	v, ferr := fn()
	if ferr != nil {
		return v, rstream.TransformError{Stage: op, Err: ferr}
	}
	return v, nil
}
