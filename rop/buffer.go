package rop

import "github.com/rill-engine/rill/rstream"

// BufferCount derives a source that accumulates value events
// into batches of length count, emitting each full batch as
// one value event downstream and resetting to empty.
//
// On upstream completion, a non-empty partial batch is flushed
// as a final value event before completion is forwarded;
// residual data is never silently dropped.
// A terminal upstream error discards the partial batch,
// as the error supersedes the data.
// Non-terminal error events pass through without disturbing
// the batch in progress.
//
// BufferCount panics if count is not positive.
func BufferCount[T any](
	src rstream.Source[T], count int,
) rstream.Source[[]T] {
	if count <= 0 {
		panic("rop.BufferCount: count must be positive")
	}

	return newStage(src, func() func(rstream.Event[T], *rstream.Subject[[]T]) {
		buf := make([]T, 0, count)

		return func(e rstream.Event[T], out *rstream.Subject[[]T]) {
			switch e.Kind {
			case rstream.KindValue:
				buf = append(buf, e.Val)
				if len(buf) < count {
					return
				}
				full := buf
				buf = make([]T, 0, count)
				_ = out.Publish(full)

			case rstream.KindError:
				forward(out, e)

			case rstream.KindComplete:
				if len(buf) > 0 {
					partial := buf
					buf = nil
					_ = out.Publish(partial)
				}
				_ = out.Close()
			}
		}
	})
}
