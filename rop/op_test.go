package rop_test

import (
	"errors"
	"testing"

	"github.com/rill-engine/rill/internal/rtest"
	"github.com/rill-engine/rill/rop"
	"github.com/rill-engine/rill/rstream"
	"github.com/rill-engine/rill/rstream/rstreamtest"
	"github.com/stretchr/testify/require"
)

func TestMapFilter_composition(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))

	doubled := rop.Map(s, func(v int) int { return v * 2 })
	big := rop.Filter(doubled, func(v int) bool { return v > 3 })

	rec := rstreamtest.NewRecorder[int]()
	_, err := big.Subscribe(rec.Config())
	require.NoError(t, err)

	for _, v := range []int{1, 2, 3} {
		require.NoError(t, s.Publish(v))
	}
	require.NoError(t, s.Close())

	require.Equal(t, []int{4, 6}, rec.Values())
	require.True(t, rec.Completed())
}

func TestMap_errorAndCompletionPassThrough(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))
	mapped := rop.Map(s, func(v int) int { return v + 1 })

	rec := rstreamtest.NewRecorder[int]()
	_, err := mapped.Subscribe(rec.Config())
	require.NoError(t, err)

	boom := errors.New("boom")
	require.NoError(t, s.Publish(1))
	require.NoError(t, s.PublishError(boom))
	require.NoError(t, s.Publish(2))
	require.NoError(t, s.Close())

	evs := rec.Events()
	require.Len(t, evs, 4)
	require.Equal(t, 2, evs[0].Val)
	require.ErrorIs(t, evs[1].Err, boom)
	require.False(t, evs[1].Terminal)
	require.Equal(t, 3, evs[2].Val)
	require.Equal(t, rstream.KindComplete, evs[3].Kind)
}

func TestMap_panicBecomesTransformError(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))
	mapped := rop.Map(s, func(v int) int {
		if v == 2 {
			panic("no twos")
		}
		return v
	})

	rec := rstreamtest.NewRecorder[int]()
	_, err := mapped.Subscribe(rec.Config())
	require.NoError(t, err)

	require.NoError(t, s.Publish(1))
	require.NoError(t, s.Publish(2))
	require.NoError(t, s.Publish(3))

	evs := rec.Events()
	require.Len(t, evs, 3)
	require.Equal(t, 1, evs[0].Val)

	var transformErr rstream.TransformError
	require.Equal(t, rstream.KindError, evs[1].Kind)
	require.ErrorAs(t, evs[1].Err, &transformErr)
	require.Equal(t, "map", transformErr.Stage)
	require.False(t, evs[1].Terminal)

	// The fault did not terminate the stream.
	require.Equal(t, 3, evs[2].Val)
}

func TestTryMap_failureBecomesTransformError(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))

	cause := errors.New("odd values rejected")
	mapped := rop.TryMap(s, func(v int) (int, error) {
		if v%2 != 0 {
			return 0, cause
		}
		return v * 10, nil
	})

	rec := rstreamtest.NewRecorder[int]()
	_, err := mapped.Subscribe(rec.Config())
	require.NoError(t, err)

	require.NoError(t, s.Publish(3))
	require.NoError(t, s.Publish(4))

	evs := rec.Events()
	require.Len(t, evs, 2)

	var transformErr rstream.TransformError
	require.ErrorAs(t, evs[0].Err, &transformErr)
	require.ErrorIs(t, transformErr.Err, cause)

	require.Equal(t, 40, evs[1].Val)
}

func TestFilter_dropsFailingValues(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))
	even := rop.Filter(s, func(v int) bool { return v%2 == 0 })

	rec := rstreamtest.NewRecorder[int]()
	_, err := even.Subscribe(rec.Config())
	require.NoError(t, err)

	for v := 1; v <= 4; v++ {
		require.NoError(t, s.Publish(v))
	}

	require.Equal(t, []int{2, 4}, rec.Values())
}

func TestBufferCount_batchesAndFlushesPartialOnCompletion(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))
	batched := rop.BufferCount(s, 3)

	rec := rstreamtest.NewRecorder[[]int]()
	_, err := batched.Subscribe(rec.Config())
	require.NoError(t, err)

	for v := 1; v <= 7; v++ {
		require.NoError(t, s.Publish(v))
	}

	// The partial batch is held until upstream completion.
	require.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}}, rec.Values())
	require.False(t, rec.Completed())

	require.NoError(t, s.Close())

	require.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, rec.Values())
	require.True(t, rec.Completed())
}

func TestBufferCount_panicsOnNonPositiveCount(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))

	require.Panics(t, func() {
		rop.BufferCount(s, 0)
	})
}

func TestOnErrorReturn_substitutesAndContinues(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))
	safe := rop.OnErrorReturn(s, -1)

	rec := rstreamtest.NewRecorder[int]()
	sub, err := safe.Subscribe(rec.Config())
	require.NoError(t, err)

	require.NoError(t, s.PublishError(errors.New("boom")))
	require.NoError(t, s.Publish(5))

	require.Equal(t, []int{-1, 5}, rec.Values())
	require.Empty(t, rec.Errs())
	require.True(t, sub.IsActive())
}

func TestOnErrorReturn_terminalErrorEmitsFallbackThenCompletes(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))
	safe := rop.OnErrorReturn(s, -1)

	rec := rstreamtest.NewRecorder[int]()
	_, err := safe.Subscribe(rec.Config())
	require.NoError(t, err)

	require.NoError(t, s.Fail(errors.New("boom")))

	require.Equal(t, []int{-1}, rec.Values())
	require.Empty(t, rec.Errs())
	require.True(t, rec.Completed())
}

func TestStage_activationIsLazyAndShared(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))
	mapped := rop.Map(s, func(v int) int { return v })

	// Composition alone subscribes to nothing.
	require.Zero(t, s.NumSubscribers())

	rec1 := rstreamtest.NewRecorder[int]()
	rec2 := rstreamtest.NewRecorder[int]()

	sub1, err := mapped.Subscribe(rec1.Config())
	require.NoError(t, err)
	require.Equal(t, 1, s.NumSubscribers())

	// The second downstream subscriber shares
	// the single upstream subscription.
	sub2, err := mapped.Subscribe(rec2.Config())
	require.NoError(t, err)
	require.Equal(t, 1, s.NumSubscribers())

	require.NoError(t, s.Publish(9))
	require.Equal(t, []int{9}, rec1.Values())
	require.Equal(t, []int{9}, rec2.Values())

	sub1.Cancel()
	require.Equal(t, 1, s.NumSubscribers())

	sub2.Cancel()
	require.Zero(t, s.NumSubscribers())
}

func TestStage_reactivatesAfterTeardown(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))
	batched := rop.BufferCount(s, 2)

	rec1 := rstreamtest.NewRecorder[[]int]()
	sub1, err := batched.Subscribe(rec1.Config())
	require.NoError(t, err)

	require.NoError(t, s.Publish(1))
	sub1.Cancel()
	require.Zero(t, s.NumSubscribers())

	// Reactivation starts from empty transform state:
	// the 1 accumulated before teardown is gone.
	rec2 := rstreamtest.NewRecorder[[]int]()
	_, err = batched.Subscribe(rec2.Config())
	require.NoError(t, err)
	require.Equal(t, 1, s.NumSubscribers())

	require.NoError(t, s.Publish(2))
	require.NoError(t, s.Publish(3))

	require.Equal(t, [][]int{{2, 3}}, rec2.Values())
}

func TestStage_terminalErrorPassesThroughTerminally(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))
	mapped := rop.Map(s, func(v int) int { return v })

	rec := rstreamtest.NewRecorder[int]()
	sub, err := mapped.Subscribe(rec.Config())
	require.NoError(t, err)

	boom := errors.New("boom")
	require.NoError(t, s.Fail(boom))

	evs := rec.Events()
	require.Len(t, evs, 1)
	require.Equal(t, rstream.KindError, evs[0].Kind)
	require.True(t, evs[0].Terminal)
	require.ErrorIs(t, evs[0].Err, boom)
	require.False(t, sub.IsActive())
}

func TestStage_subscribeAfterUpstreamTerminated(t *testing.T) {
	t.Parallel()

	s := rstream.NewSubject[int](rtest.NewLogger(t))
	require.NoError(t, s.Close())

	mapped := rop.Map(s, func(v int) int { return v })

	rec := rstreamtest.NewRecorder[int]()
	sub, err := mapped.Subscribe(rec.Config())
	require.NoError(t, err)

	require.True(t, rec.Completed())
	require.False(t, sub.IsActive())
}
