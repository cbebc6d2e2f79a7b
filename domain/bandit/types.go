package bandit

import (
	"fmt"
	"math"

	"robustbai/domain/core"
)

// Instance describes a grouped bandit problem: which arms form each group and
// the true mean reward of every arm
type Instance struct {
	Groups [][]core.ArmID `json:"groups" yaml:"groups"`
	Means  []float64      `json:"means" yaml:"means"`
}

// NumArms returns the size of the flat arm space
func (in Instance) NumArms() int { return len(in.Means) }

// NumGroups returns the number of groups
func (in Instance) NumGroups() int { return len(in.Groups) }

// Validate rejects empty instances, empty groups, out-of-range arms and means outside [0,1]
func (in Instance) Validate() error {
	if len(in.Means) == 0 {
		return core.ErrNoArms
	}
	if len(in.Groups) == 0 {
		return core.ErrNoGroups
	}
	for g, arms := range in.Groups {
		if len(arms) == 0 {
			return core.NewEmptyGroupError(core.GroupID(g))
		}
		for _, a := range arms {
			if a < 0 || int(a) >= len(in.Means) {
				return core.NewArmRangeError(core.GroupID(g), a, len(in.Means))
			}
		}
	}
	for i, m := range in.Means {
		if math.IsNaN(m) || m < 0 || m > 1 {
			return fmt.Errorf("%w: mean of %s is %v, want [0,1]", core.ErrDegenerateInput, core.ArmID(i), m)
		}
	}
	return nil
}

// WorstCaseMean is a group's value: the minimum true mean among its arms
func (in Instance) WorstCaseMean(g core.GroupID) float64 {
	worst := math.Inf(1)
	for _, a := range in.Groups[g] {
		worst = math.Min(worst, in.Means[a])
	}
	return worst
}

// BestGroups returns every group attaining the highest worst-case mean
func (in Instance) BestGroups() []core.GroupID {
	best := math.Inf(-1)
	var out []core.GroupID
	for g := range in.Groups {
		v := in.WorstCaseMean(core.GroupID(g))
		switch {
		case v > best:
			best = v
			out = []core.GroupID{core.GroupID(g)}
		case v == best:
			out = append(out, core.GroupID(g))
		}
	}
	return out
}

// Fingerprint hashes the instance for reports and result files
func (in Instance) Fingerprint() core.InstanceHash {
	return core.ComputeInstanceHash(in.Groups, in.Means)
}

// RewardModel selects how an environment draws rewards for an arm with mean μ
type RewardModel string

const (
	// RewardBernoulli draws 1 with probability μ, else 0
	RewardBernoulli RewardModel = "bernoulli"
	// RewardBeta draws from Beta(μk, (1-μ)k) with concentration k
	RewardBeta RewardModel = "beta"
)

// ParseRewardModel parses a reward model name
func ParseRewardModel(s string) (RewardModel, error) {
	switch RewardModel(s) {
	case RewardBernoulli, RewardBeta:
		return RewardModel(s), nil
	default:
		return "", fmt.Errorf("unknown reward model %q", s)
	}
}

// Algorithm names the identification strategy
type Algorithm string

const (
	AlgorithmGroupWiseUCB          Algorithm = "group_ucb"
	AlgorithmSuccessiveElimination Algorithm = "successive_elimination"
	AlgorithmStableOpt             Algorithm = "stable_opt"
)

// Diagnostics is the internal candidate state at the time an algorithm stopped
type Diagnostics struct {
	// Remaining maps each surviving group to its remaining worst-case candidate arms
	Remaining map[core.GroupID][]core.ArmID
	Surviving []core.GroupID
	Sampled   []core.ArmID
	Rounds    int
}

// Outcome is what an identification run reports back to its driver
type Outcome struct {
	Algorithm Algorithm
	Groups    []core.GroupID
	Converged bool
	// Samples counts pulls made by this call, excluding any warm-up pulls
	Samples     int
	Rounds      int
	Diagnostics *Diagnostics
}

// Failed reports whether the outcome carries the non-convergence sentinel
func (o Outcome) Failed() bool {
	return len(o.Groups) == 1 && o.Groups[0] == core.FailedGroup
}

// Contains reports whether g is among the identified groups
func (o Outcome) Contains(g core.GroupID) bool {
	for _, x := range o.Groups {
		if x == g {
			return true
		}
	}
	return false
}
