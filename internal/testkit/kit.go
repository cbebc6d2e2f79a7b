package testkit

import (
	"context"
	"math/rand"
	"strconv"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	rng *RNGAdapter
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{rng: &RNGAdapter{}}
}

// RNGAdapter returns an RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return t.rng
}

// TwoGroupInstance is the reference two-group problem: group 0 = {0,1} with
// means {0.9, 0.5}, group 1 = {2,3} with means {0.3, 0.8}. Worst-case means
// are 0.5 and 0.3, so group 0 is the answer.
func TwoGroupInstance() bandit.Instance {
	return bandit.Instance{
		Groups: [][]core.ArmID{core.ArmIDs(0, 1), core.ArmIDs(2, 3)},
		Means:  []float64{0.9, 0.5, 0.3, 0.8},
	}
}

// RNGAdapter implements the RNGPort interface for testing
type RNGAdapter struct{}

// SeededStream creates a deterministic random number generator for a named operation
func (r *RNGAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(seed)), nil
}

// Stream creates a deterministic RNG stream for one trial of an experiment
func (r *RNGAdapter) Stream(ctx context.Context, runID, algorithm string, trial int, baseSeed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(StreamSeed(runID, algorithm, trial, baseSeed))), nil
}

// StreamSeed derives a trial seed by hashing runID + algorithm + trial onto baseSeed
func StreamSeed(runID, algorithm string, trial int, baseSeed int64) int64 {
	seed := baseSeed
	if runID != "" {
		seed = int64(hashString(runID)) + seed
	}
	if algorithm != "" {
		seed = int64(hashString(algorithm)) + seed
	}
	return int64(hashString(strconv.Itoa(trial))) + seed
}

func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
