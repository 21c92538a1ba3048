package rcombine

import (
	"github.com/rill-engine/rill/rop"
	"github.com/rill-engine/rill/rstream"
)

// Latest2 is the typed two-input form of [Latest]:
// it emits combine over the most recent value from a and b
// on every update, once both have produced at least one value.
//
// Semantics (ordering, errors, completion, laziness)
// are exactly those of [Latest].
func Latest2[A, B, Out any](
	cfg Config,
	combine func(A, B) Out,
	a rstream.Source[A],
	b rstream.Source[B],
) rstream.Source[Out] {
	ea := rop.Map(a, func(v A) any { return v })
	eb := rop.Map(b, func(v B) any { return v })

	return Latest(cfg, func(vs []any) Out {
		return combine(vs[0].(A), vs[1].(B))
	}, ea, eb)
}
