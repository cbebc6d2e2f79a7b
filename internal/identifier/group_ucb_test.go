package identifier

import (
	"context"
	"math"
	"testing"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupWiseUCB_TwoGroupScenario(t *testing.T) {
	env := testkit.NewDeterministicEnvironment(testkit.TwoGroupInstance(), 1.0, 0.1)
	spy := testkit.NewSamplingSpy(env)

	out, err := GroupWiseUCB(context.Background(), spy, 1.0, 0.05, WithSeed(1))
	require.NoError(t, err)

	assert.Equal(t, []core.GroupID{0}, out.Groups)
	assert.True(t, out.Converged)
	assert.Equal(t, bandit.AlgorithmGroupWiseUCB, out.Algorithm)
	assert.Equal(t, env.Iter(), out.Samples)
	assert.Greater(t, out.Samples, 0)
	assert.Zero(t, spy.EmptyCalls(), "sampling must never be requested for an empty arm set")
}

func TestFindGroupMin_SingletonDoesNotSample(t *testing.T) {
	in := bandit.Instance{
		Groups: [][]core.ArmID{core.ArmIDs(2), core.ArmIDs(0, 1)},
		Means:  []float64{0.4, 0.6, 0.1},
	}
	spy := testkit.NewSamplingSpy(testkit.NewDeterministicEnvironment(in, 1.0, 0.1))

	algo, err := NewGroupUCB(1.0, 0.1, WithSeed(3))
	require.NoError(t, err)

	arm, err := algo.FindGroupMin(context.Background(), spy, core.GroupID(0))
	require.NoError(t, err)
	assert.Equal(t, core.ArmID(2), arm)
	assert.Zero(t, spy.CallCount())
}

func TestFindGroupMin_FindsWorstArm(t *testing.T) {
	spy := testkit.NewSamplingSpy(testkit.NewDeterministicEnvironment(testkit.TwoGroupInstance(), 1.0, 0.1))

	algo, err := NewGroupUCB(1.0, 0.05, WithSeed(3))
	require.NoError(t, err)

	arm, err := algo.FindGroupMin(context.Background(), spy, core.GroupID(1))
	require.NoError(t, err)
	assert.Equal(t, core.ArmID(2), arm)
	assert.NotEmpty(t, spy.SampledArms())
	assert.Subset(t, core.ArmIDs(2, 3), spy.SampledArms(), "only arms of the searched group may be sampled")
}

func TestFindGroupMin_OutOfRange(t *testing.T) {
	env := testkit.NewDeterministicEnvironment(testkit.TwoGroupInstance(), 1.0, 0.1)
	algo, err := NewGroupUCB(1.0, 0.05)
	require.NoError(t, err)

	_, err = algo.FindGroupMin(context.Background(), env, core.GroupID(7))
	assert.ErrorIs(t, err, core.ErrDegenerateInput)
}

func TestGroupWiseUCB_SharedSingletonCandidate(t *testing.T) {
	// Both groups are the same single arm: the deduplicated candidate set has
	// one element and the phase-2 test holds vacuously.
	in := bandit.Instance{
		Groups: [][]core.ArmID{core.ArmIDs(0), core.ArmIDs(0)},
		Means:  []float64{0.2, 0.9},
	}
	spy := testkit.NewSamplingSpy(testkit.NewDeterministicEnvironment(in, 1.0, 0.1))

	out, err := GroupWiseUCB(context.Background(), spy, 1.0, 0.1, WithSeed(9))
	require.NoError(t, err)
	assert.Equal(t, []core.GroupID{0, 1}, out.Groups, "tied groups are all reported")
	assert.Zero(t, out.Samples)
	assert.Zero(t, spy.CallCount())
}

func TestFindGroupMin_LargerEtaNeverSamplesMore(t *testing.T) {
	samples := func(eta float64) int {
		env := testkit.NewDeterministicEnvironment(testkit.TwoGroupInstance(), 1.0, 0.1)
		algo, err := NewGroupUCB(1.0, eta, WithSeed(11))
		require.NoError(t, err)
		_, err = algo.FindGroupMin(context.Background(), env, core.GroupID(0))
		require.NoError(t, err)
		return env.Iter()
	}

	etas := []float64{0.01, 0.05, 0.1, 0.3, 1.0}
	prev := math.MaxInt
	for _, eta := range etas {
		n := samples(eta)
		assert.LessOrEqual(t, n, prev, "eta=%v drew more samples than a smaller eta", eta)
		prev = n
	}
}

func TestGroupWiseUCB_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		c    float64
		eta  float64
	}{
		{"zero c", 0, 0.1},
		{"negative eta", 1, -0.1},
		{"zero eta", 1, 0},
		{"NaN c", math.NaN(), 0.1},
		{"infinite eta", 1, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := testkit.NewSamplingSpy(testkit.NewDeterministicEnvironment(testkit.TwoGroupInstance(), 1.0, 0.1))
			_, err := GroupWiseUCB(context.Background(), spy, tt.c, tt.eta)
			assert.ErrorIs(t, err, core.ErrInvalidConfig)
			assert.Zero(t, spy.CallCount(), "no sampling before rejecting configuration")
		})
	}
}

func TestGroupWiseUCB_MaxIterations(t *testing.T) {
	env := testkit.NewDeterministicEnvironment(testkit.TwoGroupInstance(), 1.0, 0.1)

	out, err := GroupWiseUCB(context.Background(), env, 1.0, 0.01, WithSeed(1), WithMaxIterations(5))
	var nce *NonConvergenceError
	require.ErrorAs(t, err, &nce)
	assert.ErrorIs(t, err, core.ErrNonConvergence)
	assert.True(t, out.Failed())
	assert.False(t, out.Converged)
	assert.Equal(t, 5, nce.Ceiling)
	assert.Equal(t, 6, env.Iter())
}

func TestGroupWiseUCB_MaxIterationsInCandidatePhase(t *testing.T) {
	// Singleton groups skip phase 1. Arm 1 is never sampled, so its upper
	// bound stays wide and the candidate comparison cannot finish.
	in := bandit.Instance{
		Groups: [][]core.ArmID{core.ArmIDs(0), core.ArmIDs(1)},
		Means:  []float64{0.5, 0.4},
	}
	env := testkit.NewDeterministicEnvironment(in, 1.0, 0.1)

	out, err := GroupWiseUCB(context.Background(), env, 1.0, 0.05, WithSeed(1), WithMaxIterations(3))
	var nce *NonConvergenceError
	require.ErrorAs(t, err, &nce)
	assert.Equal(t, 4, nce.Iter)

	want := bandit.Diagnostics{
		Remaining: map[core.GroupID][]core.ArmID{0: core.ArmIDs(0), 1: core.ArmIDs(1)},
		Surviving: core.GroupIDs(0, 1),
		Sampled:   core.ArmIDs(0),
		Rounds:    4,
	}
	assert.Equal(t, want, nce.Diagnostics)
	require.NotNil(t, out.Diagnostics)
	assert.Equal(t, want, *out.Diagnostics)
	assert.Equal(t, []int{5, 1}, env.IndividualArmPulls())
}

func TestGroupWiseUCB_FallsBackToCandidateGroups(t *testing.T) {
	env := testkit.NewDeterministicEnvironment(testkit.TwoGroupInstance(), 1.0, 0.1)

	// Once group 0's candidate (arm 1) is settled, drop arm 0 below it. No
	// group's minimum then matches arm 1, and the answer is the group that
	// proposed it.
	moved := false
	observer := func(d bandit.Diagnostics) {
		if !moved && len(d.Surviving) == 1 && d.Surviving[0] == 1 {
			env.SetMean(0, 0.45)
			moved = true
		}
	}

	out, err := GroupWiseUCB(context.Background(), env, 1.0, 0.05, WithSeed(1), WithRoundObserver(observer))
	require.NoError(t, err)
	require.True(t, moved, "group 1 should need sampling")
	assert.Less(t, env.EmpiricalMean(0), env.EmpiricalMean(1))
	assert.True(t, out.Converged)
	assert.Equal(t, []core.GroupID{0}, out.Groups)
}

func TestGroupWiseUCB_LargerEtaNeverSamplesMore(t *testing.T) {
	samples := func(eta float64) int {
		env := testkit.NewDeterministicEnvironment(testkit.TwoGroupInstance(), 1.0, 0.1)
		out, err := GroupWiseUCB(context.Background(), env, 1.0, eta, WithSeed(11))
		require.NoError(t, err)
		assert.Equal(t, []core.GroupID{0}, out.Groups, "eta=%v", eta)
		return out.Samples
	}

	prev := math.MaxInt
	for _, eta := range []float64{0.01, 0.05, 0.1, 0.3, 1.0} {
		n := samples(eta)
		assert.LessOrEqual(t, n, prev, "eta=%v drew more samples than a smaller eta", eta)
		prev = n
	}
}

func TestGroupWiseUCB_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	env := testkit.NewDeterministicEnvironment(testkit.TwoGroupInstance(), 1.0, 0.1)
	_, err := GroupWiseUCB(ctx, env, 1.0, 0.05)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, env.Iter())
}
