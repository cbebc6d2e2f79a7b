package identifier

import (
	"math"
	"math/rand"

	"robustbai/domain/core"
	"robustbai/internal/confidence"

	"gonum.org/v1/gonum/floats"
)

// pickMin returns the position of a uniformly chosen entry equal to min(values).
// Equality is exact; a lone candidate consumes no randomness.
func pickMin(rng *rand.Rand, values []float64) int {
	return pickEqual(rng, values, floats.Min(values))
}

// pickMax is pickMin for the maximum
func pickMax(rng *rand.Rand, values []float64) int {
	return pickEqual(rng, values, floats.Max(values))
}

func pickEqual(rng *rand.Rand, values []float64, extreme float64) int {
	candidates := make([]int, 0, 1)
	for i, v := range values {
		if v == extreme {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	return candidates[rng.Intn(len(candidates))]
}

// minLCBExcluding is the minimum LCB over intervals of arms other than x.
// ok is false when no other arm exists.
func minLCBExcluding(ivs []confidence.Interval, x core.ArmID) (min float64, ok bool) {
	min = math.Inf(1)
	for _, iv := range ivs {
		if iv.Arm != x {
			min = math.Min(min, iv.LCB)
			ok = true
		}
	}
	return min, ok
}

// maxUCBExcluding is the maximum UCB over intervals of arms other than x
func maxUCBExcluding(ivs []confidence.Interval, x core.ArmID) (max float64, ok bool) {
	max = math.Inf(-1)
	for _, iv := range ivs {
		if iv.Arm != x {
			max = math.Max(max, iv.UCB)
			ok = true
		}
	}
	return max, ok
}

func lcbsOf(ivs []confidence.Interval) []float64 {
	out := make([]float64, len(ivs))
	for i, iv := range ivs {
		out[i] = iv.LCB
	}
	return out
}
