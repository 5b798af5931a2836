// Package shuffle provides the deterministic per-attempt permutation used to
// randomize question and option order. The same seed must yield the same
// order on every call, across reconnects and across processes, so the
// generator is a pure function of the seed and the step index — no PRNG
// state, no external random source.
package shuffle

import (
	"math"
	"strconv"
)

// unit returns a deterministic pseudo-random value in [0, 1) for a seed
// string and step index: a polynomial string hash folded through a
// sine-based fractional generator.
func unit(seed string, step int) float64 {
	s := seed + "-" + strconv.Itoa(step)
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	x := math.Sin(float64(h)) * 10000
	return x - math.Floor(x)
}

// Indices returns the permutation of [0, n) for the given seed: Fisher–Yates
// from the end of the sequence to the start, drawing index j in [0, i) at
// step i. n of 0 or 1 returns the identity.
func Indices(n int, seed string) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	for i := n; i > 1; i-- {
		j := int(unit(seed, i) * float64(i))
		if j >= i {
			j = i - 1 // sin fold can graze 1.0
		}
		out[i-1], out[j] = out[j], out[i-1]
	}
	return out
}

// Slice returns a new slice with the elements of items permuted
// deterministically by seed. The input is never mutated.
func Slice[T any](items []T, seed string) []T {
	idx := Indices(len(items), seed)
	out := make([]T, len(items))
	for pos, src := range idx {
		out[pos] = items[src]
	}
	return out
}

// Seed composition. Each consumer derives its own seed so question order,
// option order and the two sides of a match-pairs question permute
// independently.

// QuestionOrderSeed seeds the attempt-wide question order.
func QuestionOrderSeed(attemptID string) string {
	return attemptID
}

// OptionOrderSeed seeds one question's option order.
func OptionOrderSeed(attemptID, questionID string) string {
	return attemptID + "-" + questionID
}

// MatchLeftSeed seeds the left column of a match-pairs question.
func MatchLeftSeed(attemptID, questionID string) string {
	return attemptID + "-" + questionID + "-left"
}

// MatchRightSeed seeds the right column of a match-pairs question.
func MatchRightSeed(attemptID, questionID string) string {
	return attemptID + "-" + questionID + "-right"
}
