// Package variants implements variant extraction and cumulative coverage
// for event logs. A variant is the ordered sequence of activity labels of
// a case; two cases share a variant iff their label sequences are equal
// element for element.
package variants

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tracelens/tracelens/internal/model"
)

// sep joins activity labels into a variant key. Unit separator does not
// occur in activity labels.
const sep = "\x1f"

// Stat holds the cases realizing one variant.
type Stat struct {
	// Activities is the ordered activity label sequence. Empty (but
	// non-nil) for the zero-event variant.
	Activities []string

	// CaseIDs lists the cases realizing this variant, in log order.
	CaseIDs []string

	// First is the position in the log of the first case realizing
	// this variant. Used as the deterministic ranking tie-breaker.
	First int
}

// Count returns the number of cases realizing the variant.
func (s *Stat) Count() int { return len(s.CaseIDs) }

// Label renders the variant as a human-readable arrow chain.
func (s *Stat) Label() string {
	if len(s.Activities) == 0 {
		return "<empty>"
	}
	return strings.Join(s.Activities, " -> ")
}

// Table maps variants to the cases realizing them.
type Table struct {
	// Stats holds one entry per distinct variant, in first-appearance
	// order of the variant in the log.
	Stats []*Stat

	// TotalCases is the number of cases in the source log. Always the
	// sum of per-variant counts.
	TotalCases int
}

// Extract builds the variant table for an ordered sequence of cases.
// Pure function: the input is not modified, and equal inputs produce
// equal tables. Empty input yields an empty table. A case with zero
// events is counted under the empty-sequence variant, which is a valid,
// distinct variant.
func Extract(cases []*model.Case) *Table {
	table := &Table{TotalCases: len(cases)}
	index := make(map[string]*Stat)

	for i, c := range cases {
		labels := c.Activities()
		// Length prefix keeps a single empty label distinct from the
		// zero-event variant.
		key := fmt.Sprintf("%d%s%s", len(labels), sep, strings.Join(labels, sep))

		stat, ok := index[key]
		if !ok {
			stat = &Stat{Activities: labels, First: i}
			index[key] = stat
			table.Stats = append(table.Stats, stat)
		}
		stat.CaseIDs = append(stat.CaseIDs, c.ID)
	}

	return table
}

// Row is one entry of the ranked coverage sequence.
type Row struct {
	Rank       int
	Activities []string
	Count      int
	Fraction   float64

	// Cumulative is the running number of cases explained by this and
	// all higher-ranked variants.
	Cumulative int

	// Coverage is Cumulative as a fraction of all cases. Non-decreasing,
	// reaching 1.0 at the last row.
	Coverage float64
}

// Label renders the variant of the row as a human-readable arrow chain.
func (r *Row) Label() string {
	return (&Stat{Activities: r.Activities}).Label()
}

// Coverage ranks the table by descending case count, ties broken by
// first appearance of the variant in the log, and accumulates coverage.
// The ordering is fully deterministic: re-running on the same input
// yields an identical sequence. An inconsistent table (negative counts,
// or counts not summing to the case total) is rejected.
func Coverage(table *Table) ([]Row, error) {
	sum := 0
	for _, s := range table.Stats {
		if s.Count() < 0 {
			return nil, fmt.Errorf("variants: negative count for variant %q", s.Label())
		}
		sum += s.Count()
	}
	if sum != table.TotalCases {
		return nil, fmt.Errorf("variants: counts sum to %d, log has %d cases", sum, table.TotalCases)
	}

	ranked := make([]*Stat, len(table.Stats))
	copy(ranked, table.Stats)
	// Stats is in first-appearance order, so a stable sort by count
	// alone realizes the tie-break.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count() > ranked[j].Count()
	})

	rows := make([]Row, 0, len(ranked))
	cumulative := 0
	for i, s := range ranked {
		cumulative += s.Count()
		row := Row{
			Rank:       i + 1,
			Activities: s.Activities,
			Count:      s.Count(),
			Cumulative: cumulative,
		}
		if table.TotalCases > 0 {
			row.Fraction = float64(s.Count()) / float64(table.TotalCases)
			row.Coverage = float64(cumulative) / float64(table.TotalCases)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// CoverageAt returns the cumulative coverage of the top-k variants.
// k greater than the number of variants saturates at full coverage.
func CoverageAt(rows []Row, k int) float64 {
	if len(rows) == 0 || k <= 0 {
		return 0
	}
	if k > len(rows) {
		k = len(rows)
	}
	return rows[k-1].Coverage
}

// Singletons returns the number of variants realized by exactly one case.
func Singletons(rows []Row) int {
	n := 0
	for _, r := range rows {
		if r.Count == 1 {
			n++
		}
	}
	return n
}

// Tail returns the number of variants with count at or below threshold.
func Tail(rows []Row, threshold int) int {
	n := 0
	for _, r := range rows {
		if r.Count <= threshold {
			n++
		}
	}
	return n
}
