// Package rcombine provides the multi-input combinator engine:
// combine-latest derivations over N rstream sources.
//
// The engine tracks the most recent value from each input and,
// once every input has produced at least one value,
// re-emits the combined result on each input update.
// Input events are serialized by the engine,
// so "simultaneous" emissions from different inputs resolve to
// the order the engine observed them;
// there is no true simultaneity, only observation order.
//
// Like the stages in package rop, combinators are lazy and
// reference counted: upstream subscriptions are taken when the
// first downstream subscriber attaches,
// and released with the last.
package rcombine
