package identifier

import (
	"context"
	"math/rand"
	"testing"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/internal/testkit"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		algorithm    string
		params       Params
		expectError  bool
		expectedName bandit.Algorithm
	}{
		{"group ucb", "group_ucb", Params{C: 1, Eta: 0.1}, false, bandit.AlgorithmGroupWiseUCB},
		{"group ucb alias", " Naive_UCB ", Params{C: 1, Eta: 0.1}, false, bandit.AlgorithmGroupWiseUCB},
		{"successive elimination", "se", Params{Theoretical: true}, false, bandit.AlgorithmSuccessiveElimination},
		{"stable opt", "stable_opt", Params{C: 0.5, Eta: 0.01}, false, bandit.AlgorithmStableOpt},
		{"stable opt bad eta", "stable_opt", Params{C: 0.5}, true, ""},
		{"unknown", "thompson", Params{C: 1, Eta: 0.1}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := New(tt.algorithm, tt.params)
			if tt.expectError {
				assert.ErrorIs(t, err, core.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedName, id.Name())
		})
	}
}

func TestAlgorithms_AllConstructible(t *testing.T) {
	for _, name := range Algorithms() {
		_, err := New(string(name), Params{C: 1, Eta: 0.1})
		assert.NoError(t, err, "%s", name)
	}
}

// tiedInstance forces exact ties so every algorithm exercises its random tie-break
func tiedInstance() bandit.Instance {
	return bandit.Instance{
		Groups: [][]core.ArmID{core.ArmIDs(0, 1), core.ArmIDs(2, 3), core.ArmIDs(4, 5)},
		Means:  []float64{0.5, 0.5, 0.5, 0.5, 0.2, 0.9},
	}
}

func TestIdentifiers_DeterministicUnderFixedSeed(t *testing.T) {
	instances := map[string]bandit.Instance{
		"two groups": testkit.TwoGroupInstance(),
		"ties":       tiedInstance(),
	}

	for instName, in := range instances {
		for _, algo := range Algorithms() {
			t.Run(instName+"/"+string(algo), func(t *testing.T) {
				runOnce := func() (bandit.Outcome, [][]core.ArmID, error) {
					env := testkit.NewDeterministicEnvironment(in, 1.0, 0.1)
					id, err := New(string(algo), Params{C: 1, Eta: 0.1}, WithSeed(99), WithMaxIterations(200_000))
					require.NoError(t, err)
					out, err := id.Identify(context.Background(), env)
					return out, env.Calls(), err
				}

				out1, calls1, err1 := runOnce()
				out2, calls2, err2 := runOnce()

				assert.Equal(t, err1 == nil, err2 == nil)
				if diff := cmp.Diff(out1, out2); diff != "" {
					t.Errorf("outcomes differ (-first +second):\n%s", diff)
				}
				if diff := cmp.Diff(calls1, calls2); diff != "" {
					t.Errorf("sampling sequences differ (-first +second):\n%s", diff)
				}
			})
		}
	}
}

func TestIdentifiers_NeverSampleEmpty(t *testing.T) {
	gen := testkit.NewInstanceGenerator(testkit.InstanceGeneratorConfig{
		NumGroups: 3,
		NumArms:   9,
		Gap:       0.2,
		Overlap:   true,
		Seed:      13,
	})
	in, err := gen.Generate()
	require.NoError(t, err)

	for _, algo := range Algorithms() {
		spy := testkit.NewSamplingSpy(testkit.NewDeterministicEnvironment(in, 1.0, 0.1))
		id, err := New(string(algo), Params{C: 1, Eta: 0.1}, WithSeed(1), WithMaxIterations(200_000))
		require.NoError(t, err)

		_, _ = id.Identify(context.Background(), spy)
		assert.Zero(t, spy.EmptyCalls(), "%s issued an empty sampling request", algo)
	}
}

func TestPickMin_UniformOverTies(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	values := []float64{0.3, 0.1, 0.1, 0.4, 0.1}

	counts := make([]int, len(values))
	for i := 0; i < 3000; i++ {
		counts[pickMin(rng, values)]++
	}
	assert.Zero(t, counts[0])
	assert.Zero(t, counts[3])
	for _, idx := range []int{1, 2, 4} {
		assert.Greater(t, counts[idx], 800, "index %d", idx)
	}
}

func TestPickMax_LoneCandidateConsumesNoRandomness(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	fresh := rand.New(rand.NewSource(5))

	assert.Equal(t, 2, pickMax(rng, []float64{0.1, 0.2, 0.9}))
	assert.Equal(t, fresh.Int63(), rng.Int63())
}
