package identifier

import (
	"context"
	"math"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/internal/confidence"
	"robustbai/ports"
)

// SuccessiveElimination prunes worst-case arm candidates inside every group and
// whole groups across the instance, sampling all remaining arms each round
type SuccessiveElimination struct {
	Theoretical bool
	opts        options
}

// NewSuccessiveElimination returns the identifier. The confidence constant is
// owned by the environment; theoretical selects its theoretical radius.
func NewSuccessiveElimination(theoretical bool, opts ...Option) *SuccessiveElimination {
	o := buildOptions(opts)
	if o.ceiling <= 0 {
		o.ceiling = DefaultEliminationCeiling
	}
	return &SuccessiveElimination{Theoretical: theoretical, opts: o}
}

// Name returns the algorithm name
func (a *SuccessiveElimination) Name() bandit.Algorithm {
	return bandit.AlgorithmSuccessiveElimination
}

// SuccessiveEliminate runs the algorithm once on env
func SuccessiveEliminate(ctx context.Context, env ports.Environment, theoretical bool, opts ...Option) (bandit.Outcome, error) {
	return NewSuccessiveElimination(theoretical, opts...).Identify(ctx, env)
}

// Identify returns the surviving groups. On hitting the ceiling the outcome
// holds the core.FailedGroup sentinel and the error is a *NonConvergenceError.
func (a *SuccessiveElimination) Identify(ctx context.Context, env ports.Environment) (bandit.Outcome, error) {
	if err := validateEnvironment(env); err != nil {
		return bandit.Outcome{}, err
	}
	r := newRun(a.Name(), env, confidence.NewEvaluator(confidence.Environment(env, a.Theoretical)), a.opts)

	// m is our own copy: the environment's groups are never narrowed
	m := env.Groups()
	c := make([]core.GroupID, len(m))
	for i := range c {
		c[i] = core.GroupID(i)
	}

	for len(c) > 1 {
		if err := ctx.Err(); err != nil {
			return bandit.Outcome{}, err
		}
		table, err := a.bounds(env, r.eval, m, c)
		if err != nil {
			return bandit.Outcome{}, err
		}
		m = pruneArms(table, m, c)
		c = pruneGroups(table, m, c)
		sampled := armsToSample(m, c)

		diag := bandit.Diagnostics{
			Remaining: remaining(m, c),
			Surviving: append([]core.GroupID(nil), c...),
			Sampled:   sampled,
		}
		r.observe(diag)
		r.log.Trace("round %d: %d groups survive, sampling %d arms", r.rounds+1, len(c), len(sampled))
		if err := r.sample(ctx, sampled...); err != nil {
			return bandit.Outcome{}, err
		}

		if len(sampled) == 1 || narrowedToSampled(m, c, sampled) {
			r.log.Debug("converged on %v after %d rounds", c, r.rounds)
			return r.outcome(c), nil
		}
		if r.exceeded() {
			return r.nonConvergence(diag)
		}
	}
	r.log.Debug("single candidate group %v after %d rounds", c, r.rounds)
	return r.outcome(c), nil
}

// bounds evaluates every arm still referenced by a surviving group
func (a *SuccessiveElimination) bounds(env ports.BanditReader, eval confidence.Evaluator, m [][]core.ArmID, c []core.GroupID) (confidence.Table, error) {
	table := make(confidence.Table)
	for _, g := range c {
		for _, arm := range m[g] {
			if _, ok := table[arm]; ok {
				continue
			}
			iv, err := eval.Bounds(env, arm)
			if err != nil {
				return nil, err
			}
			table[arm] = iv
		}
	}
	return table, nil
}

// pruneArms drops, within each surviving group, every arm whose LCB exceeds
// the group's minimum UCB: it cannot be the group's worst arm
func pruneArms(table confidence.Table, m [][]core.ArmID, c []core.GroupID) [][]core.ArmID {
	next := make([][]core.ArmID, len(m))
	copy(next, m)
	for _, g := range c {
		minUCB := minOf(table.UCBs(m[g]))
		kept := make([]core.ArmID, 0, len(m[g]))
		for _, arm := range m[g] {
			if table[arm].LCB <= minUCB {
				kept = append(kept, arm)
			}
		}
		next[g] = kept
	}
	return next
}

// pruneGroups keeps group i only if its minimum UCB reaches the largest
// minimum LCB among surviving groups. The group attaining that maximum always
// survives itself, so the result is never empty.
func pruneGroups(table confidence.Table, m [][]core.ArmID, c []core.GroupID) []core.GroupID {
	bestMinLCB := math.Inf(-1)
	for _, g := range c {
		bestMinLCB = math.Max(bestMinLCB, minOf(table.LCBs(m[g])))
	}
	kept := make([]core.GroupID, 0, len(c))
	for _, g := range c {
		if bestMinLCB <= minOf(table.UCBs(m[g])) {
			kept = append(kept, g)
		}
	}
	return kept
}

// armsToSample is the ascending union of arms left in surviving groups
func armsToSample(m [][]core.ArmID, c []core.GroupID) []core.ArmID {
	var all []core.ArmID
	for _, g := range c {
		all = append(all, m[g]...)
	}
	return core.SortedArms(all)
}

// narrowedToSampled reports whether every surviving group's remaining arm set
// equals the sampled set, so no further narrowing is possible
func narrowedToSampled(m [][]core.ArmID, c []core.GroupID, sampled []core.ArmID) bool {
	for _, g := range c {
		arms := core.SortedArms(m[g])
		if len(arms) != len(sampled) {
			return false
		}
		for i := range arms {
			if arms[i] != sampled[i] {
				return false
			}
		}
	}
	return true
}

func remaining(m [][]core.ArmID, c []core.GroupID) map[core.GroupID][]core.ArmID {
	out := make(map[core.GroupID][]core.ArmID, len(c))
	for _, g := range c {
		out[g] = append([]core.ArmID(nil), m[g]...)
	}
	return out
}

func minOf(values []float64) float64 {
	min := math.Inf(1)
	for _, v := range values {
		min = math.Min(min, v)
	}
	return min
}
