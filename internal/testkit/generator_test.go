package testkit

import (
	"testing"

	"robustbai/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceGenerator_NonOverlap(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		cfg := InstanceGeneratorConfig{NumGroups: 4, NumArms: 6, Gap: 0.1, Overlap: false, Seed: seed}
		in, err := NewInstanceGenerator(cfg).Generate()
		require.NoError(t, err)

		seen := make(map[core.ArmID]int)
		for _, g := range in.Groups {
			require.NotEmpty(t, g)
			for _, a := range g {
				seen[a]++
			}
		}
		assert.Len(t, seen, 6, "seed %d: every arm belongs to a group", seed)
		for a, n := range seen {
			assert.Equal(t, 1, n, "seed %d: %s appears in %d groups", seed, a, n)
		}

		assert.Equal(t, []core.GroupID{0}, in.BestGroups(), "seed %d", seed)
		assert.InDelta(t, 0.5, in.WorstCaseMean(0), 1e-12)
		assert.InDelta(t, 0.4, in.WorstCaseMean(1), 1e-12)
	}
}

func TestInstanceGenerator_Overlap(t *testing.T) {
	in, err := NewInstanceGenerator(DefaultInstanceConfig()).Generate()
	require.NoError(t, err)

	assert.Equal(t, 5, in.NumGroups())
	assert.Equal(t, 20, in.NumArms())

	covered := make(map[core.ArmID]bool)
	for _, g := range in.Groups {
		require.NotEmpty(t, g)
		for i := 1; i < len(g); i++ {
			assert.Less(t, g[i-1], g[i], "group arms are sorted and distinct")
		}
		for _, a := range g {
			covered[a] = true
		}
	}
	assert.Len(t, covered, 20)
	for _, m := range in.Means {
		assert.GreaterOrEqual(t, m, 0.0)
		assert.LessOrEqual(t, m, 1.0)
	}
}

func TestInstanceGenerator_SameSeedSameInstance(t *testing.T) {
	a, err := NewInstanceGenerator(DefaultInstanceConfig()).Generate()
	require.NoError(t, err)
	b, err := NewInstanceGenerator(DefaultInstanceConfig()).Generate()
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestInstanceGenerator_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name  string
		cfg   InstanceGeneratorConfig
		check func(error) bool
	}{
		{"zero gap", InstanceGeneratorConfig{NumGroups: 2, NumArms: 4, Gap: 0}, core.IsConfigError},
		{"gap too large", InstanceGeneratorConfig{NumGroups: 2, NumArms: 4, Gap: 0.6}, core.IsConfigError},
		{"no groups", InstanceGeneratorConfig{NumGroups: 0, NumArms: 4, Gap: 0.1}, core.IsDegenerateInputError},
		{"too few arms for partition", InstanceGeneratorConfig{NumGroups: 5, NumArms: 3, Gap: 0.1}, core.IsDegenerateInputError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInstanceGenerator(tt.cfg).Generate()
			require.Error(t, err)
			assert.True(t, tt.check(err))
		})
	}
}
