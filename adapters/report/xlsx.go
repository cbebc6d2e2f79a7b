package report

import (
	"fmt"
	"io"

	"robustbai/domain/bandit"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	trialsSheet  = "Trials"
)

var (
	summaryHeader = []interface{}{
		"Run", "Name", "Algorithm", "Instance", "Trials", "Correct", "Not converged",
		"Accuracy", "Mean samples", "Std dev", "Median", "P90", "Min", "Max",
	}
	trialsHeader = []interface{}{
		"Run", "Algorithm", "Trial", "Seed", "Groups", "Samples", "Rounds", "Correct", "Converged", "Elapsed ms",
	}
)

// Workbook builds an XLSX workbook with a Summary sheet (one row per
// experiment) and a Trials sheet (one row per trial). Callers must Close it.
func Workbook(experiments ...*bandit.Experiment) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(trialsSheet); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeRows(f, summarySheet, summaryHeader, summaryRows(experiments), bold); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRows(f, trialsSheet, trialsHeader, trialRows(experiments), bold); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WriteXLSX writes the workbook to w
func WriteXLSX(w io.Writer, experiments ...*bandit.Experiment) error {
	f, err := Workbook(experiments...)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveXLSX writes the workbook to path
func SaveXLSX(path string, experiments ...*bandit.Experiment) error {
	f, err := Workbook(experiments...)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func summaryRows(experiments []*bandit.Experiment) [][]interface{} {
	rows := make([][]interface{}, 0, len(experiments))
	for _, e := range experiments {
		s := e.Summary
		rows = append(rows, []interface{}{
			e.RunID.String(), e.Name, string(e.Algorithm), e.Fingerprint.Short(),
			s.Trials, s.Correct, s.Failed, s.Accuracy,
			s.Samples.Mean, s.Samples.StdDev, s.Samples.Median, s.Samples.P90, s.Samples.Min, s.Samples.Max,
		})
	}
	return rows
}

func trialRows(experiments []*bandit.Experiment) [][]interface{} {
	var rows [][]interface{}
	for _, e := range experiments {
		for _, t := range e.Trials {
			rows = append(rows, []interface{}{
				e.RunID.String(), string(e.Algorithm), t.Trial, t.Seed, formatGroups(t.Groups),
				t.Samples, t.Rounds, t.Correct, t.Converged, t.Elapsed.Milliseconds(),
			})
		}
	}
	return rows
}
