package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleExperiment() *bandit.Experiment {
	in := testkit.TwoGroupInstance()
	return &bandit.Experiment{
		RunID:       core.RunID("0190abcd-0000-7000-8000-000000000000"),
		Name:        "two-group",
		Algorithm:   bandit.AlgorithmStableOpt,
		Fingerprint: in.Fingerprint(),
		Instance:    in,
		BestGroups:  in.BestGroups(),
		BaseSeed:    3,
		Trials: []bandit.TrialResult{
			{Trial: 0, Seed: 11, Groups: []core.GroupID{0}, Samples: 120, Rounds: 120, Correct: true, Converged: true, Elapsed: 2 * time.Millisecond},
			{Trial: 1, Seed: 12, Groups: []core.GroupID{core.FailedGroup}, Samples: 500, Rounds: 500},
		},
		Summary: bandit.Summary{
			Trials:   2,
			Correct:  1,
			Failed:   1,
			Accuracy: 0.5,
			Samples:  bandit.SampleSummary{Mean: 310, StdDev: 190, Median: 310, P90: 500, Min: 120, Max: 500},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleExperiment())

	assert.True(t, strings.HasPrefix(md, "# Max-min best-arm identification\n"))
	assert.Contains(t, md, "| 0190abcd | stable_opt | 2 | 0.500 | 1 | 310.0 | 190.0 | 310.0 | 500.0 |")
	assert.Contains(t, md, "## two-group / stable_opt")
	assert.Contains(t, md, "- Best groups: 0\n")
	assert.Contains(t, md, "| 0 | 0 | 120 | 120 | yes | yes |")
	assert.Contains(t, md, "| 1 | failed | 500 | 500 | no | no |")
}

func TestMarkdown_NoExperiments(t *testing.T) {
	assert.Contains(t, Markdown(), "No experiments.")
}

func TestHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleExperiment()))

	page := buf.String()
	assert.Contains(t, page, "<title>Max-min best-arm identification</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "stable_opt")
}

func TestSaveXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, SaveXLSX(path, sampleExperiment()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, trialsSheet}, f.GetSheetList())

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "Algorithm", summary[0][2])
	assert.Equal(t, "stable_opt", summary[1][2])

	trials, err := f.GetRows(trialsSheet)
	require.NoError(t, err)
	require.Len(t, trials, 3)
	assert.Equal(t, "failed", trials[2][4])
	assert.Equal(t, "500", trials[2][5])
}
