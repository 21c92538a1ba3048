package rop

import "github.com/rill-engine/rill/rstream"

// Filter derives a source that forwards only the value events
// for which pred returns true; values failing pred are dropped,
// not forwarded.
// Error and completion events pass through unchanged.
//
// A panic inside pred is recovered and converted into a
// non-terminal [rstream.TransformError] event downstream;
// the value under test is dropped.
func Filter[T any](
	src rstream.Source[T], pred func(T) bool,
) rstream.Source[T] {
	return newStage(src, func() func(rstream.Event[T], *rstream.Subject[T]) {
		return func(e rstream.Event[T], out *rstream.Subject[T]) {
			if e.Kind != rstream.KindValue {
				forward(out, e)
				return
			}

			keep, err := tryApply("filter", func() (bool, error) {
				return pred(e.Val), nil
			})
			if err != nil {
				_ = out.PublishError(err)
				return
			}
			if keep {
				_ = out.Publish(e.Val)
			}
		}
	})
}
