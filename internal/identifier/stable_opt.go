package identifier

import (
	"context"
	"math"
	"math/rand"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/internal/confidence"
	"robustbai/ports"
)

// StableOpt samples one arm per round: the lowest-LCB arm of the group with
// the highest minimum UCB, stopping on a minimax test
type StableOpt struct {
	C    float64
	Eta  float64
	opts options
}

// NewStableOpt validates c and eta and returns the identifier
func NewStableOpt(c, eta float64, opts ...Option) (*StableOpt, error) {
	if err := validateParams(c, eta); err != nil {
		return nil, err
	}
	return &StableOpt{C: c, Eta: eta, opts: buildOptions(opts)}, nil
}

// Name returns the algorithm name
func (a *StableOpt) Name() bandit.Algorithm { return bandit.AlgorithmStableOpt }

// RunStableOpt runs the algorithm once on env
func RunStableOpt(ctx context.Context, env ports.Environment, c, eta float64, opts ...Option) (bandit.Outcome, error) {
	a, err := NewStableOpt(c, eta, opts...)
	if err != nil {
		return bandit.Outcome{}, err
	}
	return a.Identify(ctx, env)
}

// Identify returns the singleton winning group. The termination test runs on
// the bounds from before the round's sample, and the chosen arm is sampled
// in every round including the last.
func (a *StableOpt) Identify(ctx context.Context, env ports.Environment) (bandit.Outcome, error) {
	if err := validateEnvironment(env); err != nil {
		return bandit.Outcome{}, err
	}
	r := newRun(a.Name(), env, confidence.NewEvaluator(confidence.Practical(a.C)), a.opts)
	groups := env.Groups()

	for {
		table, err := r.eval.Snapshot(env)
		if err != nil {
			return bandit.Outcome{}, err
		}
		g := SelectGroup(r.rng, table, groups)
		arm := SelectArm(r.rng, table, groups[g])
		done := Terminate(table, groups, g, arm, a.Eta)

		diag := bandit.Diagnostics{
			Remaining: map[core.GroupID][]core.ArmID{g: append([]core.ArmID(nil), groups[g]...)},
			Surviving: []core.GroupID{g},
			Sampled:   []core.ArmID{arm},
		}
		if !done && r.exceeded() {
			return r.nonConvergence(diag)
		}
		r.observe(diag)
		r.log.Trace("round %d: %s, sampling %s", r.rounds+1, g, arm)
		if err := r.sample(ctx, arm); err != nil {
			return bandit.Outcome{}, err
		}
		if done {
			r.log.Debug("identified %s after %d rounds", g, r.rounds)
			return r.outcome([]core.GroupID{g}), nil
		}
	}
}

// SelectGroup picks the group whose minimum UCB is largest, ties uniformly at random
func SelectGroup(rng *rand.Rand, table confidence.Table, groups [][]core.ArmID) core.GroupID {
	minUCBs := make([]float64, len(groups))
	for g, arms := range groups {
		minUCBs[g] = minOf(table.UCBs(arms))
	}
	return core.GroupID(pickMax(rng, minUCBs))
}

// SelectArm picks the arm of group with minimum LCB, ties uniformly at random
func SelectArm(rng *rand.Rand, table confidence.Table, group []core.ArmID) core.ArmID {
	return group[pickMin(rng, table.LCBs(group))]
}

// Terminate reports whether LCB(arm) ≥ max over other groups of their minimum
// UCB, minus eta. With no other group there is no competitor and it holds.
func Terminate(table confidence.Table, groups [][]core.ArmID, g core.GroupID, arm core.ArmID, eta float64) bool {
	competitor := math.Inf(-1)
	for other, arms := range groups {
		if core.GroupID(other) == g {
			continue
		}
		competitor = math.Max(competitor, minOf(table.UCBs(arms)))
	}
	return table[arm].LCB >= competitor-eta
}
