package rstream

import (
	"context"
	"sync"
)

// RunChannelToSubject starts a background goroutine that reads
// values from ch and publishes them to subject.
//
// The returned done channel is closed when the goroutine stops,
// which will happen on context cancellation,
// if ch is closed (which also closes the subject),
// or if the subject is closed out from under the goroutine.
func RunChannelToSubject[T any](
	ctx context.Context, ch <-chan T, subject *Subject[T],
) (done <-chan struct{}) {
	doneCh := make(chan struct{})

	go runChannelToSubject(ctx, ch, subject, doneCh)

	return doneCh
}

func runChannelToSubject[T any](
	ctx context.Context,
	ch <-chan T,
	s *Subject[T],
	done chan<- struct{},
) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return

		case v, ok := <-ch:
			if !ok {
				_ = s.Close()
				return
			}
			if err := s.Publish(v); err != nil {
				// Subject closed concurrently;
				// nothing more to forward.
				return
			}
		}
	}
}

// RunSourceToChannel subscribes to src and exposes deliveries
// as a receive channel.
//
// The channel is closed after the terminal event is delivered.
// Cancelling the returned subscription stops deliveries but
// deliberately does not close the channel,
// as a delivery may be in flight on another goroutine;
// a consumer that cancels must stop receiving on its own.
//
// The subscription is buffered with the [Block] policy
// (buffer values below 1 are raised to 1),
// so a full channel applies backpressure to the subscription's
// delivery goroutine rather than to the publisher.
func RunSourceToChannel[T any](
	src Source[T], buffer int,
) (<-chan Event[T], Subscription, error) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event[T], buffer)
	var closeOnce sync.Once

	sub, err := src.Subscribe(SubscriberConfig[T]{
		OnEvent: func(e Event[T]) {
			ch <- e
			if e.IsTerminal() {
				closeOnce.Do(func() { close(ch) })
			}
		},
		Buffer: buffer,
		Policy: Block,
	})
	if err != nil {
		return nil, nil, err
	}

	return ch, sub, nil
}
