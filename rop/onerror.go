package rop

import "github.com/rill-engine/rill/rstream"

// OnErrorReturn derives a source that substitutes fallback,
// as a value event, for each upstream error event.
//
// After substituting a non-terminal error the stage keeps
// forwarding subsequent upstream events;
// the stream is not terminated by the substitution.
// A terminal upstream error is substituted and then followed
// by completion, since the failed upstream can produce
// nothing further.
//
// Value and completion events pass through unchanged.
func OnErrorReturn[T any](
	src rstream.Source[T], fallback T,
) rstream.Source[T] {
	return newStage(src, func() func(rstream.Event[T], *rstream.Subject[T]) {
		return func(e rstream.Event[T], out *rstream.Subject[T]) {
			switch e.Kind {
			case rstream.KindValue:
				_ = out.Publish(e.Val)

			case rstream.KindError:
				_ = out.Publish(fallback)
				if e.Terminal {
					_ = out.Close()
				}

			case rstream.KindComplete:
				_ = out.Close()
			}
		}
	})
}
