package common

import "math/rand/v2"

// Source of randomness for the game rolls.
// *rand.Rand satisfies it, which is what tests use to get fixed rolls
type Random interface {
	Float64() float64
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
func (globalRandom) IntN(n int) int   { return rand.IntN(n) }

// GlobalRandom is safe for concurrent use
var GlobalRandom Random = globalRandom{}
