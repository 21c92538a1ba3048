package rstream

// EventKind distinguishes the variants of [Event].
type EventKind uint8

const (
	// Invalid zero value.
	_ EventKind = iota

	// KindValue carries a data value.
	KindValue

	// KindError carries an error.
	// Error events are not necessarily terminal;
	// see [Event.Terminal].
	KindError

	// KindComplete marks the end of the stream.
	KindComplete
)

// Event is one delivery on a stream:
// a value, an error, or completion.
//
// An event is immutable once created.
// After delivery it is logically shared, read-only,
// between every subscriber that received it.
type Event[T any] struct {
	Kind EventKind

	// Val is set when Kind is [KindValue].
	Val T

	// Err is set when Kind is [KindError].
	Err error

	// Terminal marks an error event that closed the stream.
	// Completion is inherently terminal,
	// so the flag is only meaningful on error events.
	Terminal bool
}

// ValueEvent returns a value event carrying v.
func ValueEvent[T any](v T) Event[T] {
	return Event[T]{Kind: KindValue, Val: v}
}

// ErrorEvent returns a non-terminal error event carrying err.
func ErrorEvent[T any](err error) Event[T] {
	return Event[T]{Kind: KindError, Err: err}
}

// TerminalErrorEvent returns an error event that closes the stream.
func TerminalErrorEvent[T any](err error) Event[T] {
	return Event[T]{Kind: KindError, Err: err, Terminal: true}
}

// CompleteEvent returns the completion event.
func CompleteEvent[T any]() Event[T] {
	return Event[T]{Kind: KindComplete}
}

// IsTerminal reports whether e ends the stream:
// completion, or an error published through [*Subject.Fail].
func (e Event[T]) IsTerminal() bool {
	return e.Kind == KindComplete || (e.Kind == KindError && e.Terminal)
}
