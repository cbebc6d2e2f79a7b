package testkit

import (
	"fmt"
	"math/rand"
	"sort"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
)

// InstanceGeneratorConfig configures synthetic grouped-bandit generation
type InstanceGeneratorConfig struct {
	NumGroups int     `json:"num_groups" yaml:"num_groups"`
	NumArms   int     `json:"num_arms" yaml:"num_arms"`
	Gap       float64 `json:"gap" yaml:"gap"`
	Overlap   bool    `json:"overlap" yaml:"overlap"`
	Seed      int64   `json:"seed" yaml:"seed"`
}

// DefaultInstanceConfig returns a small overlapping instance with a 0.1 gap
func DefaultInstanceConfig() InstanceGeneratorConfig {
	return InstanceGeneratorConfig{
		NumGroups: 5,
		NumArms:   20,
		Gap:       0.1,
		Overlap:   true,
		Seed:      42,
	}
}

// InstanceGenerator builds random instances whose best worst-case mean is 0.5
// and whose runner-up worst-case mean is 0.5-gap
type InstanceGenerator struct {
	config InstanceGeneratorConfig
	rng    *rand.Rand
}

// NewInstanceGenerator creates a new generator
func NewInstanceGenerator(config InstanceGeneratorConfig) *InstanceGenerator {
	return &InstanceGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate produces one instance
func (g *InstanceGenerator) Generate() (bandit.Instance, error) {
	c := g.config
	if c.NumGroups < 1 || c.NumArms < 1 {
		return bandit.Instance{}, fmt.Errorf("%w: need at least one group and one arm, got %d groups and %d arms",
			core.ErrDegenerateInput, c.NumGroups, c.NumArms)
	}
	if c.Gap <= 0 || c.Gap > 0.5 {
		return bandit.Instance{}, fmt.Errorf("%w: gap must be in (0, 0.5], got %v", core.ErrInvalidConfig, c.Gap)
	}

	var groups [][]core.ArmID
	if c.Overlap {
		groups = g.GenerateGroups(c.NumGroups, c.NumArms)
	} else {
		var err error
		groups, err = g.GenerateNonOverlap(c.NumGroups, c.NumArms)
		if err != nil {
			return bandit.Instance{}, err
		}
	}

	in := bandit.Instance{
		Groups: groups,
		Means:  g.GenerateMeans(groups, c.NumArms, c.Gap),
	}
	return in, in.Validate()
}

// GenerateGroups puts each arm in each group with probability 1/numGroups,
// redrawing a group until it is non-empty, then hands any arm that joined no
// group to a uniformly chosen one. Groups may share arms.
func (g *InstanceGenerator) GenerateGroups(numGroups, numArms int) [][]core.ArmID {
	groups := make([][]core.ArmID, numGroups)
	found := make([]bool, numArms)
	p := 1 / float64(numGroups)

	for i := range groups {
		for len(groups[i]) == 0 {
			for j := 0; j < numArms; j++ {
				if g.rng.Float64() <= p {
					groups[i] = append(groups[i], core.ArmID(j))
					found[j] = true
				}
			}
		}
	}

	for k, ok := range found {
		if !ok {
			i := g.rng.Intn(numGroups)
			groups[i] = append(groups[i], core.ArmID(k))
		}
	}

	sortGroups(groups)
	return groups
}

// GenerateNonOverlap partitions the arms uniformly at random. An empty group
// takes one arm from the currently largest group, which always has at least
// two arms when numArms >= numGroups.
func (g *InstanceGenerator) GenerateNonOverlap(numGroups, numArms int) ([][]core.ArmID, error) {
	if numArms < numGroups {
		return nil, fmt.Errorf("%w: %d arms cannot fill %d disjoint groups", core.ErrDegenerateInput, numArms, numGroups)
	}
	groups := make([][]core.ArmID, numGroups)
	for idx := 0; idx < numArms; idx++ {
		i := g.rng.Intn(numGroups)
		groups[i] = append(groups[i], core.ArmID(idx))
	}

	for i := range groups {
		if len(groups[i]) > 0 {
			continue
		}
		donor := 0
		for j := range groups {
			if len(groups[j]) > len(groups[donor]) {
				donor = j
			}
		}
		last := len(groups[donor]) - 1
		groups[i] = append(groups[i], groups[donor][last])
		groups[donor] = groups[donor][:last]
	}

	sortGroups(groups)
	return groups, nil
}

// GenerateMeans assigns true means group by group. The first not-yet-assigned
// arm of group k becomes its worst-case arm: 0.5 for group 0, 0.5-gap for
// group 1, uniform in (0, 0.5-gap) afterwards. Its other unassigned arms get
// a uniform mean above that worst case. Arms already set by an earlier group
// keep their value; a group with no unassigned arm is skipped.
func (g *InstanceGenerator) GenerateMeans(groups [][]core.ArmID, numArms int, gap float64) []float64 {
	means := make([]float64, numArms)
	assigned := make([]bool, numArms)
	worstMin := 0.5

	for k, group := range groups {
		i := 0
		for i < len(group) && assigned[group[i]] {
			i++
		}
		if i < len(group) {
			means[group[i]] = worstMin
			assigned[group[i]] = true
			for ; i < len(group); i++ {
				if !assigned[group[i]] {
					means[group[i]] = worstMin + g.rng.Float64()*(1-worstMin)
					assigned[group[i]] = true
				}
			}
		}

		if k == 0 {
			worstMin -= gap
		} else {
			worstMin = g.rng.Float64() * (0.5 - gap)
		}
	}
	return means
}

func sortGroups(groups [][]core.ArmID) {
	for _, grp := range groups {
		sort.Slice(grp, func(i, j int) bool { return grp[i] < grp[j] })
	}
}
