package testkit

import (
	"context"
	"sync"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/internal/confidence"
	"robustbai/ports"
)

// DeterministicEnvironment is a bandit whose every pull of an arm returns the
// arm's configured mean exactly. Empirical means therefore never move; only
// pull counts grow, so bounds shrink on a fixed, reproducible trajectory.
type DeterministicEnvironment struct {
	groups [][]core.ArmID
	means  []float64
	pulls  []int
	iter   int

	practical   confidence.Radius
	theoretical confidence.Radius

	calls [][]core.ArmID
}

// NewDeterministicEnvironment pulls every arm once so all bounds are readable
func NewDeterministicEnvironment(in bandit.Instance, c, delta float64) *DeterministicEnvironment {
	env := &DeterministicEnvironment{
		groups:      copyGroups(in.Groups),
		means:       append([]float64(nil), in.Means...),
		pulls:       make([]int, len(in.Means)),
		practical:   confidence.Practical(c),
		theoretical: confidence.Theoretical(delta),
	}
	for i := range env.pulls {
		env.pulls[i] = 1
	}
	return env
}

// SetPulls overrides an arm's pull count, e.g. to zero to exercise bound errors
func (e *DeterministicEnvironment) SetPulls(arm core.ArmID, pulls int) { e.pulls[arm] = pulls }

// SetMean overrides an arm's empirical mean
func (e *DeterministicEnvironment) SetMean(arm core.ArmID, mean float64) { e.means[arm] = mean }

// Calls returns every OneIteration argument in order
func (e *DeterministicEnvironment) Calls() [][]core.ArmID { return copyGroups(e.calls) }

func (e *DeterministicEnvironment) Groups() [][]core.ArmID { return copyGroups(e.groups) }
func (e *DeterministicEnvironment) Group(g core.GroupID) []core.ArmID {
	return append([]core.ArmID(nil), e.groups[g]...)
}
func (e *DeterministicEnvironment) NumGroups() int                       { return len(e.groups) }
func (e *DeterministicEnvironment) NumArms() int                         { return len(e.means) }
func (e *DeterministicEnvironment) EmpiricalMean(arm core.ArmID) float64 { return e.means[arm] }
func (e *DeterministicEnvironment) Pulls(arm core.ArmID) int             { return e.pulls[arm] }
func (e *DeterministicEnvironment) EmpiricalMeans() []float64            { return append([]float64(nil), e.means...) }
func (e *DeterministicEnvironment) IndividualArmPulls() []int            { return append([]int(nil), e.pulls...) }
func (e *DeterministicEnvironment) Iter() int                            { return e.iter }

func (e *DeterministicEnvironment) ConfidenceU(pulls, numArms int) float64 {
	return e.practical(pulls, numArms)
}

func (e *DeterministicEnvironment) ConfidenceUTheoretical(pulls, numArms int) float64 {
	return e.theoretical(pulls, numArms)
}

// OneIteration increments each distinct arm's pull count
func (e *DeterministicEnvironment) OneIteration(ctx context.Context, arms []core.ArmID) error {
	if len(arms) == 0 {
		return core.ErrEmptySample
	}
	unique := core.SortedArms(arms)
	e.calls = append(e.calls, unique)
	for _, a := range unique {
		e.pulls[a]++
		e.iter++
	}
	return nil
}

// SamplingSpy wraps an environment and records every sampling request,
// including ones the wrapped environment rejects
type SamplingSpy struct {
	ports.Environment

	mu         sync.Mutex
	calls      [][]core.ArmID
	emptyCalls int
}

// NewSamplingSpy wraps env
func NewSamplingSpy(env ports.Environment) *SamplingSpy {
	return &SamplingSpy{Environment: env}
}

func (s *SamplingSpy) OneIteration(ctx context.Context, arms []core.ArmID) error {
	s.mu.Lock()
	if len(arms) == 0 {
		s.emptyCalls++
	}
	s.calls = append(s.calls, append([]core.ArmID(nil), arms...))
	s.mu.Unlock()
	return s.Environment.OneIteration(ctx, arms)
}

// CallCount returns how many sampling requests were made
func (s *SamplingSpy) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// EmptyCalls returns how many sampling requests carried no arms
func (s *SamplingSpy) EmptyCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emptyCalls
}

// SampledArms returns the distinct arms ever requested, ascending
func (s *SamplingSpy) SampledArms() []core.ArmID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []core.ArmID
	for _, c := range s.calls {
		all = append(all, c...)
	}
	return core.SortedArms(all)
}

func copyGroups(groups [][]core.ArmID) [][]core.ArmID {
	out := make([][]core.ArmID, len(groups))
	for i, g := range groups {
		out[i] = append([]core.ArmID(nil), g...)
	}
	return out
}
