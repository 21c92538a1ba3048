package rstream_test

import (
	"testing"

	"go.uber.org/goleak"
)

// Every buffered subscription owns a delivery goroutine;
// the suite must leave none of them behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
