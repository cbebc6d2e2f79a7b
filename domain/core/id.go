package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ArmID indexes a reward source in the flat arm space of an environment
type ArmID int

// GroupID indexes a group in the environment's group ordering
type GroupID int

// FailedGroup is the sentinel reported when an algorithm gives up before converging
const FailedGroup GroupID = -1

func (a ArmID) String() string   { return "arm-" + strconv.Itoa(int(a)) }
func (g GroupID) String() string { return "group-" + strconv.Itoa(int(g)) }

// RunID identifies one experiment run
type RunID string

// NewRunID creates a new unique identifier using UUID v7 for time-ordered generation
func NewRunID() RunID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return RunID(id.String())
}

// String returns the string representation
func (id RunID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id RunID) IsEmpty() bool {
	return id == ""
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// GroupIDs converts plain indices, mostly for tests and fixtures
func GroupIDs(indices ...int) []GroupID {
	out := make([]GroupID, len(indices))
	for i, idx := range indices {
		out[i] = GroupID(idx)
	}
	return out
}

// ArmIDs converts plain indices, mostly for tests and fixtures
func ArmIDs(indices ...int) []ArmID {
	out := make([]ArmID, len(indices))
	for i, idx := range indices {
		out[i] = ArmID(idx)
	}
	return out
}

// UniqueArms drops repeated arms, keeping first-occurrence order
func UniqueArms(arms []ArmID) []ArmID {
	seen := make(map[ArmID]struct{}, len(arms))
	out := make([]ArmID, 0, len(arms))
	for _, a := range arms {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// SortedArms returns the distinct arms ascending
func SortedArms(arms []ArmID) []ArmID {
	out := UniqueArms(arms)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
