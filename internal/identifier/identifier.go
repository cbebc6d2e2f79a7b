// Package identifier implements sequential identification of the group whose
// worst-case (minimum) mean reward is highest. Each algorithm drives one
// environment exclusively: it reads confidence bounds, samples, and stops once
// its termination test holds.
package identifier

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/internal"
	"robustbai/internal/confidence"
	"robustbai/ports"
)

// Identifier is the contract every algorithm satisfies
type Identifier interface {
	Name() bandit.Algorithm
	Identify(ctx context.Context, env ports.Environment) (bandit.Outcome, error)
}

// Params carries the tuning parameters shared by the factory
type Params struct {
	// C is the confidence constant of the practical radius c/sqrt(pulls)
	C float64
	// Eta is the termination tolerance
	Eta float64
	// Theoretical selects the environment's theoretical radius (Successive Elimination only)
	Theoretical bool
}

// New returns the identifier for an algorithm name
func New(algorithm string, params Params, opts ...Option) (Identifier, error) {
	switch bandit.Algorithm(strings.ToLower(strings.TrimSpace(algorithm))) {
	case bandit.AlgorithmGroupWiseUCB, "naive_ucb", "group_wise_ucb":
		return NewGroupUCB(params.C, params.Eta, opts...)
	case bandit.AlgorithmSuccessiveElimination, "se", "succ_elim":
		return NewSuccessiveElimination(params.Theoretical, opts...), nil
	case bandit.AlgorithmStableOpt, "stableopt", "so":
		return NewStableOpt(params.C, params.Eta, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", core.ErrInvalidConfig, algorithm)
	}
}

// Algorithms lists the canonical algorithm names
func Algorithms() []bandit.Algorithm {
	return []bandit.Algorithm{
		bandit.AlgorithmGroupWiseUCB,
		bandit.AlgorithmSuccessiveElimination,
		bandit.AlgorithmStableOpt,
	}
}

// NonConvergenceError reports an algorithm that hit its iteration ceiling.
// It carries the candidate state for diagnosis.
type NonConvergenceError struct {
	Algorithm   bandit.Algorithm
	Ceiling     int
	Iter        int
	Diagnostics bandit.Diagnostics
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("%s: sample counter %d exceeded ceiling %d (surviving %v, sampling %v)",
		e.Algorithm, e.Iter, e.Ceiling, e.Diagnostics.Surviving, e.Diagnostics.Sampled)
}

func (e *NonConvergenceError) Unwrap() error {
	return core.ErrNonConvergence
}

func validateParams(c, eta float64) error {
	if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
		return core.NewConfigError("confidence constant c", c)
	}
	if math.IsNaN(eta) || math.IsInf(eta, 0) || eta <= 0 {
		return core.NewConfigError("tolerance eta", eta)
	}
	return nil
}

// validateEnvironment rejects degenerate instances and unreadable bounds
// before any sampling happens
func validateEnvironment(env ports.BanditReader) error {
	numArms := env.NumArms()
	if numArms == 0 {
		return core.ErrNoArms
	}
	groups := env.Groups()
	if len(groups) == 0 {
		return core.ErrNoGroups
	}
	for g, arms := range groups {
		if len(arms) == 0 {
			return core.NewEmptyGroupError(core.GroupID(g))
		}
		for _, a := range arms {
			if a < 0 || int(a) >= numArms {
				return core.NewArmRangeError(core.GroupID(g), a, numArms)
			}
			if env.Pulls(a) <= 0 {
				return core.NewZeroPullsError(a)
			}
		}
	}
	return nil
}

// run is the state of one invocation; it is never shared
type run struct {
	algorithm bandit.Algorithm
	env       ports.Environment
	eval      confidence.Evaluator
	rng       *rand.Rand
	log       *internal.Logger
	ceiling   int
	observer  RoundObserver
	startIter int
	rounds    int
}

func newRun(algorithm bandit.Algorithm, env ports.Environment, eval confidence.Evaluator, o options) *run {
	return &run{
		algorithm: algorithm,
		env:       env,
		eval:      eval,
		rng:       o.source(),
		log:       o.logger.Named(string(algorithm)),
		ceiling:   o.ceiling,
		observer:  o.observer,
		startIter: env.Iter(),
	}
}

// sample pulls arms once and counts the round
func (r *run) sample(ctx context.Context, arms ...core.ArmID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.rounds++
	return r.env.OneIteration(ctx, arms)
}

// exceeded reports whether the sample counter passed the ceiling
func (r *run) exceeded() bool {
	return r.ceiling > 0 && r.env.Iter() > r.ceiling
}

func (r *run) nonConvergence(diag bandit.Diagnostics) (bandit.Outcome, error) {
	diag.Rounds = r.rounds
	r.log.Warn("giving up after %d rounds: sample counter %d > %d", r.rounds, r.env.Iter(), r.ceiling)
	out := r.outcome([]core.GroupID{core.FailedGroup})
	out.Converged = false
	out.Diagnostics = &diag
	return out, &NonConvergenceError{
		Algorithm:   r.algorithm,
		Ceiling:     r.ceiling,
		Iter:        r.env.Iter(),
		Diagnostics: diag,
	}
}

func (r *run) observe(diag bandit.Diagnostics) {
	if r.observer != nil {
		diag.Rounds = r.rounds
		r.observer(diag)
	}
}

func (r *run) outcome(groups []core.GroupID) bandit.Outcome {
	return bandit.Outcome{
		Algorithm: r.algorithm,
		Groups:    groups,
		Converged: true,
		Samples:   r.env.Iter() - r.startIter,
		Rounds:    r.rounds,
	}
}
