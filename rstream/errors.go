package rstream

import (
	"errors"
	"fmt"
)

// ErrNoHandlers is returned from Subscribe when the given
// [SubscriberConfig] has no event hook and no callbacks,
// as such a subscriber could never observe anything.
var ErrNoHandlers = errors.New("rstream: subscriber config has no handlers")

// ClosedSinkError is returned from [*Subject.Publish],
// [*Subject.PublishError], and [*Subject.Fail]
// when the Subject has already been closed.
//
// Closing an already-closed Subject is not an error;
// [*Subject.Close] is idempotent.
type ClosedSinkError struct {
	// The operation that was attempted.
	Op string
}

func (e ClosedSinkError) Error() string {
	return "stream already closed: cannot " + e.Op
}

// TransformError wraps a fault raised by a user-supplied
// transform, predicate, or combining function.
// The fault is converted into a stream-level error event
// delivered downstream,
// never left to escape as a host-level fault.
type TransformError struct {
	// The operator stage that raised the fault.
	Stage string

	// The underlying failure.
	Err error
}

func (e TransformError) Error() string {
	return fmt.Sprintf("transform fault in %s: %v", e.Stage, e.Err)
}

func (e TransformError) Unwrap() error {
	return e.Err
}
