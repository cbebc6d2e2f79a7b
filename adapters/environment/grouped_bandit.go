// Package environment provides the stochastic bandit environments the
// identifiers sample from.
package environment

import (
	"context"
	"fmt"
	"math/rand/v2"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/internal/confidence"

	"gonum.org/v1/gonum/stat/distuv"
)

// Config controls reward generation and the radii the environment reports
type Config struct {
	// ConfidenceC is the constant of the practical radius c/sqrt(n)
	ConfidenceC float64
	// Delta is the failure probability of the theoretical radius
	Delta  float64
	Reward bandit.RewardModel
	// Concentration is k in Beta(μk, (1-μ)k); ignored for Bernoulli rewards
	Concentration float64
	Seed          int64
}

// DefaultConfig returns Bernoulli rewards with c = 1 and δ = 0.05
func DefaultConfig() Config {
	return Config{
		ConfidenceC:   1.0,
		Delta:         0.05,
		Reward:        bandit.RewardBernoulli,
		Concentration: 20,
		Seed:          1,
	}
}

// Validate checks the radius parameters and reward model
func (c Config) Validate() error {
	if c.ConfidenceC <= 0 {
		return core.NewConfigError("confidence_c", c.ConfidenceC)
	}
	if c.Delta <= 0 || c.Delta >= 1 {
		return fmt.Errorf("%w: delta must be in (0,1), got %v", core.ErrInvalidConfig, c.Delta)
	}
	switch c.Reward {
	case bandit.RewardBernoulli:
	case bandit.RewardBeta:
		if c.Concentration <= 0 {
			return core.NewConfigError("concentration", c.Concentration)
		}
	default:
		return fmt.Errorf("%w: unknown reward model %q", core.ErrInvalidConfig, c.Reward)
	}
	return nil
}

type sampler interface {
	Rand() float64
}

// GroupedBandit is a simulated grouped bandit. Each arm draws from its own
// seeded stream so a run is reproducible regardless of sampling order.
// Not safe for concurrent use; give every run its own instance.
type GroupedBandit struct {
	groups   [][]core.ArmID
	truth    []float64
	samplers []sampler
	sums     []float64
	pulls    []int
	iter     int

	practical   confidence.Radius
	theoretical confidence.Radius
}

// NewGroupedBandit validates the instance and pulls every arm once so all
// bounds are defined before an algorithm starts.
func NewGroupedBandit(in bandit.Instance, cfg Config) (*GroupedBandit, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	k := in.NumArms()
	env := &GroupedBandit{
		groups:      copyGroups(in.Groups),
		truth:       append([]float64(nil), in.Means...),
		samplers:    make([]sampler, k),
		sums:        make([]float64, k),
		pulls:       make([]int, k),
		practical:   confidence.Practical(cfg.ConfidenceC),
		theoretical: confidence.Theoretical(cfg.Delta),
	}
	for arm, mu := range in.Means {
		env.samplers[arm] = newSampler(cfg, arm, mu)
	}
	for arm := range env.pulls {
		env.pull(core.ArmID(arm))
	}
	return env, nil
}

func newSampler(cfg Config, arm int, mu float64) sampler {
	src := rand.NewPCG(uint64(cfg.Seed), uint64(arm))
	// Beta needs both shape parameters positive; degenerate means stay Bernoulli
	if cfg.Reward == bandit.RewardBeta && mu > 0 && mu < 1 {
		return distuv.Beta{
			Alpha: mu * cfg.Concentration,
			Beta:  (1 - mu) * cfg.Concentration,
			Src:   src,
		}
	}
	return distuv.Bernoulli{P: mu, Src: src}
}

func (e *GroupedBandit) pull(arm core.ArmID) {
	e.sums[arm] += e.samplers[arm].Rand()
	e.pulls[arm]++
	e.iter++
}

// OneIteration samples each distinct listed arm once, in ascending arm order
func (e *GroupedBandit) OneIteration(ctx context.Context, arms []core.ArmID) error {
	if len(arms) == 0 {
		return core.ErrEmptySample
	}
	unique := core.SortedArms(arms)
	for _, a := range unique {
		if a < 0 || int(a) >= len(e.pulls) {
			return fmt.Errorf("%w: %s not in [0,%d)", core.ErrArmOutOfRange, a, len(e.pulls))
		}
	}
	for _, a := range unique {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.pull(a)
	}
	return nil
}

func (e *GroupedBandit) Groups() [][]core.ArmID { return copyGroups(e.groups) }
func (e *GroupedBandit) Group(g core.GroupID) []core.ArmID {
	return append([]core.ArmID(nil), e.groups[g]...)
}
func (e *GroupedBandit) NumGroups() int            { return len(e.groups) }
func (e *GroupedBandit) NumArms() int              { return len(e.pulls) }
func (e *GroupedBandit) Pulls(arm core.ArmID) int  { return e.pulls[arm] }
func (e *GroupedBandit) IndividualArmPulls() []int { return append([]int(nil), e.pulls...) }
func (e *GroupedBandit) Iter() int                 { return e.iter }

// EmpiricalMean is the running average reward of arm, zero before any pull
func (e *GroupedBandit) EmpiricalMean(arm core.ArmID) float64 {
	if e.pulls[arm] == 0 {
		return 0
	}
	return e.sums[arm] / float64(e.pulls[arm])
}

func (e *GroupedBandit) EmpiricalMeans() []float64 {
	out := make([]float64, len(e.pulls))
	for i := range out {
		out[i] = e.EmpiricalMean(core.ArmID(i))
	}
	return out
}

// TrueMeans returns the configured means, for reporting only
func (e *GroupedBandit) TrueMeans() []float64 { return append([]float64(nil), e.truth...) }

func (e *GroupedBandit) ConfidenceU(pulls, numArms int) float64 {
	return e.practical(pulls, numArms)
}

func (e *GroupedBandit) ConfidenceUTheoretical(pulls, numArms int) float64 {
	return e.theoretical(pulls, numArms)
}

func copyGroups(groups [][]core.ArmID) [][]core.ArmID {
	out := make([][]core.ArmID, len(groups))
	for i, g := range groups {
		out[i] = append([]core.ArmID(nil), g...)
	}
	return out
}
