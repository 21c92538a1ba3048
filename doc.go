// Package rill is the root of the RILL reactive stream engine.
//
// RILL provides a broadcast publish/subscribe primitive,
// the Subject, that is simultaneously an event sink and a
// multi-subscriber source, together with lazily composed
// operator stages and multi-input combinators.
//
// The root package intentionally contains no code.
// See [github.com/rill-engine/rill/rstream] for the Subject and
// subscription machinery,
// [github.com/rill-engine/rill/rop] for single-input operators,
// and [github.com/rill-engine/rill/rcombine] for combine-latest
// derivations over multiple sources.
package rill
