package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tracelens/tracelens/pkg/stats"
	"github.com/tracelens/tracelens/pkg/variants"
)

// Summary collects all analysis results of a run for the workbook.
type Summary struct {
	Source    string
	RunID     string
	Generated time.Time

	Overview  *stats.Overview
	Rows      []variants.Row
	Lifecycle *stats.LifecycleReport
	Levels    []stats.AttributeLevel
	Buckets   []stats.ArrivalBucket

	// TopVariants caps the Variants sheet. Zero writes all rows.
	TopVariants int
}

// coverageMarks are the top-k cut points reported on the Overview sheet.
var coverageMarks = []int{1, 5, 10, 20, 50, 100}

// WriteWorkbook writes the analysis summary as an XLSX workbook with one
// sheet per result section.
func WriteWorkbook(path string, s *Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeOverviewSheet(f, s); err != nil {
		return err
	}
	if err := writeVariantsSheet(f, s); err != nil {
		return err
	}
	if s.Lifecycle != nil {
		if err := writeLifecycleSheet(f, s.Lifecycle); err != nil {
			return err
		}
	}
	if len(s.Levels) > 0 {
		if err := writeAttributesSheet(f, s.Levels); err != nil {
			return err
		}
	}
	if len(s.Buckets) > 0 {
		if err := writeArrivalsSheet(f, s.Buckets); err != nil {
			return err
		}
	}

	// Drop the default sheet left by NewFile.
	f.DeleteSheet("Sheet1")

	return f.SaveAs(path)
}

func writeOverviewSheet(f *excelize.File, s *Summary) error {
	const sheet = "Overview"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	ov := s.Overview
	rows := [][]interface{}{
		{"Source", s.Source},
		{"Run", s.RunID},
		{"Generated", s.Generated.UTC().Format(time.RFC3339)},
		{},
		{"Cases", ov.Cases},
		{"Events", ov.Events},
		{"Variants", ov.Variants},
		{"Activities", ov.Activities},
		{"Resources", ov.Resources},
		{},
		{"Case length mean", ov.CaseLength.Mean},
		{"Case length median", ov.CaseLength.Median},
		{"Case length min", ov.CaseLength.Min},
		{"Case length max", ov.CaseLength.Max},
		{},
		{"Case duration mean (s)", ov.CaseDurationSeconds.Mean},
		{"Case duration median (s)", ov.CaseDurationSeconds.Median},
		{"Mean arrival interval", ov.MeanArrivalInterval.String()},
		{"Log start", formatTime(ov.LogStart)},
		{"Log end", formatTime(ov.LogEnd)},
		{},
	}
	for _, k := range coverageMarks {
		rows = append(rows, []interface{}{
			fmt.Sprintf("Coverage top %d", k),
			variants.CoverageAt(s.Rows, k),
		})
	}

	return setRows(f, sheet, rows)
}

func writeVariantsSheet(f *excelize.File, s *Summary) error {
	const sheet = "Variants"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Rank", "Variant", "Length", "Count", "Fraction", "Cumulative", "Coverage"},
	}
	limit := len(s.Rows)
	if s.TopVariants > 0 && s.TopVariants < limit {
		limit = s.TopVariants
	}
	for _, r := range s.Rows[:limit] {
		rows = append(rows, []interface{}{
			r.Rank, r.Label(), len(r.Activities), r.Count, r.Fraction, r.Cumulative, r.Coverage,
		})
	}

	return setRows(f, sheet, rows)
}

func writeLifecycleSheet(f *excelize.File, report *stats.LifecycleReport) error {
	const sheet = "Lifecycle"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Total events", report.TotalEvents},
		{"With lifecycle", report.WithLifecycle},
		{},
		{"Prefix", "Events with lifecycle"},
	}
	for _, c := range report.ByPrefix {
		rows = append(rows, []interface{}{c.Label, c.Count})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Transition", "Events"})
	for _, c := range report.Transitions {
		rows = append(rows, []interface{}{c.Label, c.Count})
	}

	return setRows(f, sheet, rows)
}

func writeAttributesSheet(f *excelize.File, levels []stats.AttributeLevel) error {
	const sheet = "Attributes"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Key", "Level", "Cases observed", "Constant cases", "Constant fraction"},
	}
	for _, l := range levels {
		level := "event"
		if l.CaseLevel {
			level = "case"
		}
		rows = append(rows, []interface{}{
			l.Key, level, l.Constancy.CasesObserved, l.Constancy.ConstantCases, l.Constancy.ConstantFraction,
		})
	}

	return setRows(f, sheet, rows)
}

func writeArrivalsSheet(f *excelize.File, buckets []stats.ArrivalBucket) error {
	const sheet = "Arrivals"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Bucket start", "Count", "Rolling mean"},
	}
	for _, b := range buckets {
		rows = append(rows, []interface{}{
			b.Start.UTC().Format(time.RFC3339), b.Count, b.RollingMean,
		})
	}

	return setRows(f, sheet, rows)
}

// setRows writes rows starting at A1.
func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
