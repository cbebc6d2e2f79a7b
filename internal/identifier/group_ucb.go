package identifier

import (
	"context"
	"fmt"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/internal/confidence"
	"robustbai/ports"
)

// GroupUCB is the two-stage group-wise naive UCB: find each group's worst arm,
// then compare those worst arms against each other
type GroupUCB struct {
	C    float64
	Eta  float64
	opts options
}

// NewGroupUCB validates c and eta and returns the identifier
func NewGroupUCB(c, eta float64, opts ...Option) (*GroupUCB, error) {
	if err := validateParams(c, eta); err != nil {
		return nil, err
	}
	return &GroupUCB{C: c, Eta: eta, opts: buildOptions(opts)}, nil
}

// Name returns the algorithm name
func (a *GroupUCB) Name() bandit.Algorithm { return bandit.AlgorithmGroupWiseUCB }

// GroupWiseUCB runs the algorithm once on env
func GroupWiseUCB(ctx context.Context, env ports.Environment, c, eta float64, opts ...Option) (bandit.Outcome, error) {
	a, err := NewGroupUCB(c, eta, opts...)
	if err != nil {
		return bandit.Outcome{}, err
	}
	return a.Identify(ctx, env)
}

func (a *GroupUCB) newRun(env ports.Environment) *run {
	return newRun(a.Name(), env, confidence.NewEvaluator(confidence.Practical(a.C)), a.opts)
}

// FindGroupMin returns the arm of group g that is confidently its minimum.
// A singleton group returns its arm without sampling.
func (a *GroupUCB) FindGroupMin(ctx context.Context, env ports.Environment, g core.GroupID) (core.ArmID, error) {
	if err := validateEnvironment(env); err != nil {
		return 0, err
	}
	if int(g) < 0 || int(g) >= env.NumGroups() {
		return 0, fmt.Errorf("%w: %s out of range", core.ErrDegenerateInput, g)
	}
	r := a.newRun(env)
	arm, _, err := a.findGroupMin(ctx, r, g, env.Group(g))
	return arm, err
}

// Identify runs both phases and reports every group whose current minimum
// empirical mean equals the winning arm's empirical mean
func (a *GroupUCB) Identify(ctx context.Context, env ports.Environment) (bandit.Outcome, error) {
	if err := validateEnvironment(env); err != nil {
		return bandit.Outcome{}, err
	}
	r := a.newRun(env)
	groups := env.Groups()

	// Phase 1: one worst-case candidate per group
	groupMin := make([]core.ArmID, len(groups))
	for g, arms := range groups {
		x, out, err := a.findGroupMin(ctx, r, core.GroupID(g), arms)
		if err != nil {
			if out != nil {
				return *out, err
			}
			return bandit.Outcome{}, err
		}
		groupMin[g] = x
	}
	candidates := core.UniqueArms(groupMin)
	r.log.Debug("phase 1 done after %d rounds, candidates %v", r.rounds, candidates)

	// Phase 2: best worst-case arm among the candidates
	var x core.ArmID
	for {
		ivs, err := r.eval.BoundsFor(env, candidates)
		if err != nil {
			return bandit.Outcome{}, err
		}
		idx := pickMax(r.rng, lcbsOf(ivs))
		x = candidates[idx]
		maxOther, ok := maxUCBExcluding(ivs, x)
		if !ok || ivs[idx].LCB > maxOther-a.Eta {
			break
		}
		diag := candidateDiagnostics(groupMin, x)
		if r.exceeded() {
			return r.nonConvergence(diag)
		}
		r.observe(diag)
		r.log.Trace("phase 2 round %d: sampling %s (lcb %.4f, best other ucb %.4f)", r.rounds, x, ivs[idx].LCB, maxOther)
		if err := r.sample(ctx, x); err != nil {
			return bandit.Outcome{}, err
		}
	}

	winners := groupsWithWorstMean(env, groups, env.EmpiricalMean(x))
	if len(winners) == 0 {
		// Another arm of x's group may have drifted below x; fall back to the
		// groups whose phase-1 candidate was x.
		for g, arm := range groupMin {
			if arm == x {
				winners = append(winners, core.GroupID(g))
			}
		}
	}
	r.log.Debug("identified %v via %s after %d samples", winners, x, env.Iter()-r.startIter)
	return r.outcome(winners), nil
}

// findGroupMin is phase 1 for one group. The returned outcome is set only on
// non-convergence.
func (a *GroupUCB) findGroupMin(ctx context.Context, r *run, g core.GroupID, group []core.ArmID) (core.ArmID, *bandit.Outcome, error) {
	if len(group) == 1 {
		return group[0], nil, nil
	}
	for {
		ivs, err := r.eval.BoundsFor(r.env, group)
		if err != nil {
			return 0, nil, err
		}
		idx := pickMin(r.rng, lcbsOf(ivs))
		x := group[idx]
		minOther, ok := minLCBExcluding(ivs, x)
		if !ok || ivs[idx].UCB < minOther+a.Eta {
			return x, nil, nil
		}
		diag := bandit.Diagnostics{
			Remaining: map[core.GroupID][]core.ArmID{g: append([]core.ArmID(nil), group...)},
			Surviving: []core.GroupID{g},
			Sampled:   []core.ArmID{x},
		}
		if r.exceeded() {
			out, err := r.nonConvergence(diag)
			return 0, &out, err
		}
		r.observe(diag)
		r.log.Trace("%s round %d: sampling %s (ucb %.4f, min other lcb %.4f)", g, r.rounds, x, ivs[idx].UCB, minOther)
		if err := r.sample(ctx, x); err != nil {
			return 0, nil, err
		}
	}
}

// candidateDiagnostics describes a phase-2 round: every group stays in play
// with its phase-1 candidate as its only remaining arm
func candidateDiagnostics(groupMin []core.ArmID, x core.ArmID) bandit.Diagnostics {
	diag := bandit.Diagnostics{
		Remaining: make(map[core.GroupID][]core.ArmID, len(groupMin)),
		Surviving: make([]core.GroupID, len(groupMin)),
		Sampled:   []core.ArmID{x},
	}
	for g, arm := range groupMin {
		diag.Remaining[core.GroupID(g)] = []core.ArmID{arm}
		diag.Surviving[g] = core.GroupID(g)
	}
	return diag
}

func groupsWithWorstMean(env ports.BanditReader, groups [][]core.ArmID, target float64) []core.GroupID {
	var out []core.GroupID
	for g, arms := range groups {
		worst := env.EmpiricalMean(arms[0])
		for _, arm := range arms[1:] {
			if m := env.EmpiricalMean(arm); m < worst {
				worst = m
			}
		}
		if worst == target {
			out = append(out, core.GroupID(g))
		}
	}
	return out
}
