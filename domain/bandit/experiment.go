package bandit

import (
	"time"

	"robustbai/domain/core"
)

// TrialResult records one identification run on a freshly seeded environment
type TrialResult struct {
	Trial     int            `json:"trial"`
	Seed      int64          `json:"seed"`
	Groups    []core.GroupID `json:"groups"`
	Samples   int            `json:"samples"`
	Rounds    int            `json:"rounds"`
	Correct   bool           `json:"correct"`
	Converged bool           `json:"converged"`
	Elapsed   time.Duration  `json:"elapsed"`
}

// SampleSummary describes the distribution of per-trial sample counts
type SampleSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary aggregates an experiment's trials
type Summary struct {
	Trials   int           `json:"trials"`
	Correct  int           `json:"correct"`
	Failed   int           `json:"failed"`
	Accuracy float64       `json:"accuracy"`
	Samples  SampleSummary `json:"samples"`
}

// Experiment is the full record of repeated trials of one algorithm on one instance
type Experiment struct {
	RunID       core.RunID        `json:"run_id"`
	Name        string            `json:"name,omitempty"`
	Algorithm   Algorithm         `json:"algorithm"`
	Fingerprint core.InstanceHash `json:"fingerprint"`
	Instance    Instance          `json:"instance"`
	BestGroups  []core.GroupID    `json:"best_groups"`
	BaseSeed    int64             `json:"base_seed"`
	Trials      []TrialResult     `json:"trials"`
	Summary     Summary           `json:"summary"`
	StartedAt   core.Timestamp    `json:"-"`
	Elapsed     time.Duration     `json:"elapsed"`
}

// IsCorrect reports whether out converged on truly best groups only. A failed
// outcome is never correct.
func IsCorrect(in Instance, out Outcome) bool {
	if !out.Converged || len(out.Groups) == 0 {
		return false
	}
	hits := 0
	for _, g := range in.BestGroups() {
		if out.Contains(g) {
			hits++
		}
	}
	return hits == len(out.Groups)
}
