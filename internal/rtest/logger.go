package rtest

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a logger that routes records through t.Log,
// so engine output is associated with the owning test.
func NewLogger(t testing.TB) *slog.Logger {
	return slogt.New(t)
}
