package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tracelens/tracelens/pkg/stats"
	"github.com/tracelens/tracelens/pkg/variants"
)

// writeCSV opens path and streams the header plus rows through a
// csv.Writer.
func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteCoverageCSV writes the ranked coverage sequence.
func WriteCoverageCSV(path string, rows []variants.Row) error {
	header := []string{"rank", "variant", "length", "count", "fraction", "cumulative", "coverage"}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			strconv.Itoa(r.Rank),
			r.Label(),
			strconv.Itoa(len(r.Activities)),
			strconv.Itoa(r.Count),
			strconv.FormatFloat(r.Fraction, 'f', 6, 64),
			strconv.Itoa(r.Cumulative),
			strconv.FormatFloat(r.Coverage, 'f', 6, 64),
		})
	}
	return writeCSV(path, header, out)
}

// WriteVariantCasesCSV writes the case IDs realizing each variant, one
// row per (variant, case) pair.
func WriteVariantCasesCSV(path string, table *variants.Table) error {
	header := []string{"variant", "case_id"}
	var out [][]string
	for _, s := range table.Stats {
		label := s.Label()
		for _, id := range s.CaseIDs {
			out = append(out, []string{label, id})
		}
	}
	return writeCSV(path, header, out)
}

// WriteLabeledCountsCSV writes a ranked label/count table.
func WriteLabeledCountsCSV(path, label string, counts []stats.LabeledCount) error {
	header := []string{label, "count"}
	out := make([][]string, 0, len(counts))
	for _, c := range counts {
		out = append(out, []string{c.Label, strconv.Itoa(c.Count)})
	}
	return writeCSV(path, header, out)
}

// WriteArrivalsCSV writes the arrival histogram.
func WriteArrivalsCSV(path string, buckets []stats.ArrivalBucket) error {
	header := []string{"bucket_start", "count", "rolling_mean"}
	out := make([][]string, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, []string{
			b.Start.UTC().Format(time.RFC3339),
			strconv.Itoa(b.Count),
			strconv.FormatFloat(b.RollingMean, 'f', 3, 64),
		})
	}
	return writeCSV(path, header, out)
}

// WriteAttributesCSV writes the attribute inventory.
func WriteAttributesCSV(path string, infos []stats.AttributeInfo) error {
	header := []string{"key", "scope", "occurrences", "distinct", "samples"}
	out := make([][]string, 0, len(infos))
	for _, info := range infos {
		samples := ""
		for i, s := range info.Samples {
			if i > 0 {
				samples += "; "
			}
			samples += s
		}
		out = append(out, []string{
			info.Key,
			info.Scope.String(),
			strconv.Itoa(info.Occurrences),
			strconv.Itoa(info.Distinct),
			samples,
		})
	}
	return writeCSV(path, header, out)
}

// WriteLevelsCSV writes the case-level vs event-level classification.
func WriteLevelsCSV(path string, levels []stats.AttributeLevel) error {
	header := []string{"key", "level", "cases_observed", "constant_cases", "constant_fraction"}
	out := make([][]string, 0, len(levels))
	for _, l := range levels {
		level := "event"
		if l.CaseLevel {
			level = "case"
		}
		out = append(out, []string{
			l.Key,
			level,
			strconv.Itoa(l.Constancy.CasesObserved),
			strconv.Itoa(l.Constancy.ConstantCases),
			strconv.FormatFloat(l.Constancy.ConstantFraction, 'f', 4, 64),
		})
	}
	return writeCSV(path, header, out)
}
