// Package rop provides composable operator stages
// deriving one rstream source from another.
//
// All operators are package-level functions returning a new
// [rstream.Source]. Composition is lazy:
// building a pipeline performs no work and subscribes
// to nothing upstream.
// A stage activates when it receives its first downstream
// subscriber, taking exactly one shared upstream subscription
// no matter how many subscribers attach downstream,
// and releases it (along with any transform state)
// when its last downstream subscription is cancelled.
//
// Faults in user-supplied functions are converted into
// [rstream.TransformError] error events flowing downstream;
// they never escape as host-level panics.
package rop
