package rop

import "github.com/rill-engine/rill/rstream"

// Map derives a source that transforms each value event via fn.
// Error and completion events pass through unchanged.
//
// fn must be pure. A panic inside fn is recovered and converted
// into a [rstream.TransformError] event downstream;
// transforms that can fail should use [TryMap] instead.
func Map[In, Out any](
	src rstream.Source[In], fn func(In) Out,
) rstream.Source[Out] {
	return TryMap(src, func(in In) (Out, error) {
		return fn(in), nil
	})
}

// TryMap derives a source that transforms each value event
// via fn. A non-nil error from fn becomes a non-terminal
// [rstream.TransformError] event downstream;
// the stream itself is not terminated by the failure.
// Error and completion events pass through unchanged.
func TryMap[In, Out any](
	src rstream.Source[In], fn func(In) (Out, error),
) rstream.Source[Out] {
	return newStage(src, func() func(rstream.Event[In], *rstream.Subject[Out]) {
		return func(e rstream.Event[In], out *rstream.Subject[Out]) {
			if e.Kind != rstream.KindValue {
				forward(out, e)
				return
			}

			v, err := tryApply("map", func() (Out, error) {
				return fn(e.Val)
			})
			if err != nil {
				_ = out.PublishError(err)
				return
			}
			_ = out.Publish(v)
		}
	})
}
