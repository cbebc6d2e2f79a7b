package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates a deterministic RNG stream for one trial of an experiment.
	// The same run/algorithm/trial triple always yields the same stream.
	Stream(ctx context.Context, runID, algorithm string, trial int, baseSeed int64) (*rand.Rand, error)
}
