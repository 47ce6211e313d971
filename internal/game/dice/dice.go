// Package dice provides the randomness abstraction shared by the world
// simulations: weather random walks, ambient event chances and loot rolls.
package dice

// Source is the randomness provider.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Step returns -1, 0 or +1 with equal probability.
//
// Precondition: src must be non-nil.
func Step(src Source) int {
	return src.Intn(3) - 1
}

// Chance reports whether a percentage roll succeeds.
// Percentages at or below zero never succeed; at or above 100 always do.
func Chance(src Source, percent int) bool {
	if percent <= 0 {
		return false
	}
	if percent >= 100 {
		return true
	}
	return src.Intn(100) < percent
}

// Between returns a uniform int in [lo, hi].
//
// Precondition: lo <= hi.
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}
