package identifier

import (
	"math/rand"
	"time"

	"robustbai/domain/bandit"
	"robustbai/internal"
)

// DefaultEliminationCeiling is the sample counter value past which Successive
// Elimination gives up and reports non-convergence
const DefaultEliminationCeiling = 1_000_000

// RoundObserver is called once per sampling round with the candidate state
// the algorithm is about to sample from
type RoundObserver func(state bandit.Diagnostics)

// Option configures an identifier
type Option func(*options)

type options struct {
	rng      *rand.Rand
	seed     *int64
	logger   *internal.Logger
	ceiling  int
	observer RoundObserver
}

// WithRand injects the tie-break source. It is shared by every call made
// with this identifier.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithSeed gives each call a fresh tie-break source seeded with seed, so
// repeated calls on equal environments make identical choices
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = &seed }
}

// WithLogger sets the logger; algorithms log phases at DEBUG and rounds at TRACE
func WithLogger(logger *internal.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMaxIterations caps the environment's sample counter. Zero disables the
// cap for group-wise UCB and StableOpt; Successive Elimination falls back to
// DefaultEliminationCeiling.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.ceiling = n }
}

// WithRoundObserver registers a per-round callback
func WithRoundObserver(fn RoundObserver) Option {
	return func(o *options) { o.observer = fn }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = internal.DefaultLogger
	}
	return o
}

// source returns the tie-break source for one invocation
func (o options) source() *rand.Rand {
	switch {
	case o.rng != nil:
		return o.rng
	case o.seed != nil:
		return rand.New(rand.NewSource(*o.seed))
	default:
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}
