package ports

import (
	"context"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
)

// BanditReader exposes the read side of a bandit environment. Returned slices
// are copies; callers cannot mutate environment state through them.
type BanditReader interface {
	// Groups returns every group's arms in environment order; the index is the GroupID
	Groups() [][]core.ArmID
	Group(g core.GroupID) []core.ArmID
	NumGroups() int
	NumArms() int

	EmpiricalMean(arm core.ArmID) float64
	Pulls(arm core.ArmID) int
	EmpiricalMeans() []float64
	IndividualArmPulls() []int

	// ConfidenceU is the practical radius c/sqrt(pulls), c owned by the environment
	ConfidenceU(pulls, numArms int) float64
	// ConfidenceUTheoretical is the environment's theoretical radius, non-increasing in pulls
	ConfidenceUTheoretical(pulls, numArms int) float64

	// Iter is the total number of samples taken so far
	Iter() int
}

// Environment is a bandit environment owned by exactly one algorithm invocation.
// Implementations are not safe for concurrent use.
type Environment interface {
	BanditReader

	// OneIteration samples each listed arm once (duplicates collapsed), updating
	// pull counts and empirical means in place. An empty collection is rejected
	// with core.ErrEmptySample.
	OneIteration(ctx context.Context, arms []core.ArmID) error
}

// EnvironmentFactory builds a fresh environment for one trial of an instance
type EnvironmentFactory func(in bandit.Instance, seed int64) (Environment, error)
