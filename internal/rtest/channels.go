package rtest

import (
	"testing"
	"time"
)

// How long the Soon helpers wait before failing the test.
const soonTimeout = time.Second

// ReceiveSoon returns a value received from ch,
// or fails the test if nothing arrives within a second.
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(soonTimeout):
		t.Fatalf("nothing received on channel within %s", soonTimeout)
		panic("unreachable")
	}
}

// SendSoon sends v on ch,
// or fails the test if the send does not complete within a second.
func SendSoon[T any](t testing.TB, ch chan<- T, v T) {
	t.Helper()

	select {
	case ch <- v:
	case <-time.After(soonTimeout):
		t.Fatalf("channel did not accept send within %s", soonTimeout)
	}
}

// IsSending asserts that ch has a value ready to receive right now.
func IsSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
	default:
		t.Fatalf("expected channel to have a value ready")
	}
}

// NotSending asserts that ch has no value ready.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		t.Fatalf("expected channel to have no value ready")
	default:
	}
}
