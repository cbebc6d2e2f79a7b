package confidence_test

import (
	"math"
	"testing"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/internal/confidence"
	"robustbai/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPractical(t *testing.T) {
	r := confidence.Practical(2)
	assert.InDelta(t, 2.0, r(1, 10), 1e-12)
	assert.InDelta(t, 1.0, r(4, 10), 1e-12)
	assert.InDelta(t, 0.2, r(100, 10), 1e-12)
}

func TestTheoretical_NonIncreasing(t *testing.T) {
	r := confidence.Theoretical(0.05)
	prev := math.Inf(1)
	for n := 1; n <= 500; n++ {
		cur := r(n, 4)
		assert.LessOrEqual(t, cur, prev, "radius grew at n=%d", n)
		assert.False(t, math.IsNaN(cur))
		prev = cur
	}
}

func TestEvaluator_Bounds(t *testing.T) {
	env := testkit.NewDeterministicEnvironment(testkit.TwoGroupInstance(), 1.0, 0.1)
	env.SetPulls(1, 4)
	eval := confidence.NewEvaluator(confidence.Environment(env, false))

	iv, err := eval.Bounds(env, 1)
	require.NoError(t, err)
	assert.Equal(t, core.ArmID(1), iv.Arm)
	assert.InDelta(t, 0.5, iv.Mean, 1e-12)
	assert.InDelta(t, 0.5, iv.Radius, 1e-12)
	assert.InDelta(t, 1.0, iv.UCB, 1e-12)
	assert.InDelta(t, 0.0, iv.LCB, 1e-12)
}

func TestEvaluator_Errors(t *testing.T) {
	env := testkit.NewDeterministicEnvironment(testkit.TwoGroupInstance(), 1.0, 0.1)
	env.SetPulls(2, 0)

	_, err := confidence.NewEvaluator(confidence.Practical(1)).Bounds(env, 2)
	require.ErrorIs(t, err, core.ErrZeroPulls)
	assert.True(t, core.IsBoundError(err))

	negative := func(int, int) float64 { return -1 }
	_, err = confidence.NewEvaluator(negative).Bounds(env, 0)
	require.ErrorIs(t, err, core.ErrInvalidRadius)

	_, err = confidence.NewEvaluator(confidence.Practical(1)).Snapshot(env)
	require.ErrorIs(t, err, core.ErrZeroPulls)
}

func TestSnapshot_SharedArmsEvaluatedOnce(t *testing.T) {
	in := bandit.Instance{
		Groups: [][]core.ArmID{core.ArmIDs(0, 1), core.ArmIDs(1, 2)},
		Means:  []float64{0.2, 0.4, 0.6},
	}
	env := testkit.NewDeterministicEnvironment(in, 1.0, 0.1)
	calls := 0
	counting := func(pulls, _ int) float64 {
		calls++
		return 1 / math.Sqrt(float64(pulls))
	}

	table, err := confidence.NewEvaluator(counting).Snapshot(env)
	require.NoError(t, err)
	assert.Len(t, table, 3)
	assert.Equal(t, 3, calls)
	assert.InDeltaSlice(t, []float64{1.4, 1.6}, table.UCBs(core.ArmIDs(1, 2)), 1e-12)
	assert.InDeltaSlice(t, []float64{-0.8, -0.6}, table.LCBs(core.ArmIDs(0, 1)), 1e-12)
}

func TestEnvironmentRadiusSelection(t *testing.T) {
	env := testkit.NewDeterministicEnvironment(testkit.TwoGroupInstance(), 3.0, 0.1)

	assert.InDelta(t, 3.0, confidence.Environment(env, false)(1, 4), 1e-12)
	assert.InDelta(t, confidence.Theoretical(0.1)(5, 4), confidence.Environment(env, true)(5, 4), 1e-12)
}
