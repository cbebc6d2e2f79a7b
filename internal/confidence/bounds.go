// Package confidence turns an arm's running statistics into a confidence
// interval. All three identification algorithms read their bounds through
// an Evaluator so the radius formula lives in one place.
package confidence

import (
	"fmt"
	"math"

	"robustbai/domain/core"
	"robustbai/ports"
)

// Radius maps a pull count (and the total arm count, for radii that union-bound
// over arms) to a non-negative confidence radius
type Radius func(pulls, numArms int) float64

// Practical returns the fixed-constant radius c/sqrt(pulls)
func Practical(c float64) Radius {
	return func(pulls, _ int) float64 {
		return c / math.Sqrt(float64(pulls))
	}
}

// Environment returns the radius the environment supplies, theoretical or practical
func Environment(env ports.BanditReader, theoretical bool) Radius {
	if theoretical {
		return env.ConfidenceUTheoretical
	}
	return env.ConfidenceU
}

// Interval is the confidence bracket around one arm's empirical mean
type Interval struct {
	Arm    core.ArmID
	Mean   float64
	Radius float64
	UCB    float64
	LCB    float64
}

// Evaluator computes intervals with one radius formula
type Evaluator struct {
	radius Radius
}

// NewEvaluator creates an evaluator for the given radius
func NewEvaluator(radius Radius) Evaluator {
	return Evaluator{radius: radius}
}

// Bounds reads the arm's statistics and returns its interval. Arms that have
// never been pulled are an error, never an infinite radius.
func (e Evaluator) Bounds(env ports.BanditReader, arm core.ArmID) (Interval, error) {
	pulls := env.Pulls(arm)
	if pulls <= 0 {
		return Interval{}, core.NewZeroPullsError(arm)
	}
	r := e.radius(pulls, env.NumArms())
	if math.IsNaN(r) || r < 0 {
		return Interval{}, fmt.Errorf("%w: %s has radius %v at %d pulls", core.ErrInvalidRadius, arm, r, pulls)
	}
	mean := env.EmpiricalMean(arm)
	return Interval{
		Arm:    arm,
		Mean:   mean,
		Radius: r,
		UCB:    mean + r,
		LCB:    mean - r,
	}, nil
}

// BoundsFor evaluates every arm in order, stopping at the first failure
func (e Evaluator) BoundsFor(env ports.BanditReader, arms []core.ArmID) ([]Interval, error) {
	out := make([]Interval, len(arms))
	for i, arm := range arms {
		iv, err := e.Bounds(env, arm)
		if err != nil {
			return nil, err
		}
		out[i] = iv
	}
	return out, nil
}

// Table holds one interval per arm index for a whole round
type Table map[core.ArmID]Interval

// Snapshot evaluates every arm referenced by any group once
func (e Evaluator) Snapshot(env ports.BanditReader) (Table, error) {
	table := make(Table, env.NumArms())
	for _, g := range env.Groups() {
		for _, arm := range g {
			if _, ok := table[arm]; ok {
				continue
			}
			iv, err := e.Bounds(env, arm)
			if err != nil {
				return nil, err
			}
			table[arm] = iv
		}
	}
	return table, nil
}

// UCBs projects the upper bounds of arms in order
func (t Table) UCBs(arms []core.ArmID) []float64 {
	out := make([]float64, len(arms))
	for i, a := range arms {
		out[i] = t[a].UCB
	}
	return out
}

// LCBs projects the lower bounds of arms in order
func (t Table) LCBs(arms []core.ArmID) []float64 {
	out := make([]float64, len(arms))
	for i, a := range arms {
		out[i] = t[a].LCB
	}
	return out
}

// Theoretical returns the anytime radius sqrt(ln(4·K·n²/δ) / (2n)), which
// union-bounds a Hoeffding interval over K arms and all pull counts. It is
// non-increasing in n whenever 4K/δ ≥ e².
func Theoretical(delta float64) Radius {
	return func(pulls, numArms int) float64 {
		n := float64(pulls)
		return math.Sqrt(math.Log(4*float64(numArms)*n*n/delta) / (2 * n))
	}
}
