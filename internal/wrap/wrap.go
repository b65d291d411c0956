// Package wrap compares values drawn from wrapping sequence counters, where
// ordering is defined by the sign of the modular difference rather than by
// magnitude.
package wrap

import (
	"golang.org/x/exp/constraints"
)

// Before reports whether a precedes b in sequence order, i.e. whether the
// difference a-b, interpreted as a signed value of the same width, is
// negative. Correct across counter wraparound for any pair of values less
// than half the counter range apart.
func Before[T constraints.Unsigned](a, b T) bool {
	return a-b > ^T(0)>>1
}

// AtLeast reports whether a is at or past b in sequence order, i.e. the
// negation of Before(a, b).
func AtLeast[T constraints.Unsigned](a, b T) bool {
	return a-b <= ^T(0)>>1
}
