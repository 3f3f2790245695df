package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tracelens/tracelens/pkg/cache"
	"github.com/tracelens/tracelens/pkg/config"
	tlerrors "github.com/tracelens/tracelens/pkg/errors"
	"github.com/tracelens/tracelens/pkg/filter"
	"github.com/tracelens/tracelens/pkg/stats"
	"github.com/tracelens/tracelens/pkg/tui"
	"github.com/tracelens/tracelens/pkg/variants"
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Summarize an event log",
	Long: `Report case, event, variant, activity and resource counts, case
length and duration distributions, and the observed time range.`,
	RunE: runOverview,
}

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "Extract variants and cumulative coverage",
	Long: `Group cases by their ordered activity sequence, rank variants by
descending case count and report cumulative coverage.

Examples:
  tracelens variants -i BPI2017.xes.gz
  tracelens variants -i BPI2017.xes.gz --top 50
  tracelens variants -i BPI2017.xes.gz --cache
  tracelens variants -i BPI2017.xes.gz --combine-lifecycle`,
	RunE: runVariants,
}

var lifecycleCmd = &cobra.Command{
	Use:   "lifecycle",
	Short: "Analyze lifecycle transition usage",
	Long: `Report which activities carry lifecycle transitions, per activity
prefix group, and the lifecycle transition value distribution.`,
	RunE: runLifecycle,
}

var attributesCmd = &cobra.Command{
	Use:   "attributes",
	Short: "Inventory attributes and classify their level",
	Long: `List case and event attributes with sample values, and classify
event attributes as case-level when their value is constant within
most cases.`,
	RunE: runAttributes,
}

var arrivalsCmd = &cobra.Command{
	Use:   "arrivals",
	Short: "Analyze activity arrival behaviour over time",
	Long: `Bucket the first occurrence of an activity per case into
fixed-width time buckets with a trailing rolling mean.

Examples:
  tracelens arrivals -i BPI2017.xes.gz --activity "A_Concept"
  tracelens arrivals -i BPI2017.xes.gz --activity "A_Concept" --bucket 24h
  tracelens arrivals -i BPI2017.xes.gz --activity "A_Create Application" --open-cases`,
	RunE: runArrivals,
}

func init() {
	defaults := config.Global().Get().Analysis

	variantsCmd.Flags().IntVar(&topVariants, "top", defaults.TopVariants, "Number of variants to display")
	variantsCmd.Flags().IntVar(&tailThreshold, "tail", defaults.TailThreshold, "Tail threshold: variants with at most this many cases")
	variantsCmd.Flags().BoolVar(&useCache, "cache", false, "Use the Redis result cache")
	variantsCmd.Flags().BoolVar(&combineLifecycle, "combine-lifecycle", false, "Extract variants over \"activity - lifecycle\" labels")

	attributesCmd.Flags().Float64Var(&levelThreshold, "threshold", defaults.LevelThreshold, "Constant fraction required for case-level classification")

	arrivalsCmd.Flags().StringVar(&targetActivity, "activity", defaults.TargetActivity, "Activity whose arrivals to analyze")
	arrivalsCmd.Flags().DurationVar(&bucketWidth, "bucket", defaults.BucketWidth, "Bucket width")
	arrivalsCmd.Flags().IntVar(&rollingWindow, "window", defaults.RollingWindow, "Rolling mean window in buckets (0 = auto)")
	arrivalsCmd.Flags().BoolVar(&openCasesFlag, "open-cases", false, "Restrict to created cases that reached no terminal activity")
}

func runOverview(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	log, err := loadLog(ctx)
	if err != nil {
		return err
	}

	ov := stats.ComputeOverview(log)

	tui.Section("log overview")
	tui.KV("File", inputFile)
	tui.Rule()
	tui.KV("Cases", strconv.Itoa(ov.Cases))
	tui.KV("Events", strconv.Itoa(ov.Events))
	tui.KV("Variants", strconv.Itoa(ov.Variants))
	tui.KV("Activities", strconv.Itoa(ov.Activities))
	tui.KV("Resources", strconv.Itoa(ov.Resources))
	tui.Rule()
	tui.KV("Events/case", fmt.Sprintf("mean %.1f, median %.0f, min %.0f, max %.0f",
		ov.CaseLength.Mean, ov.CaseLength.Median, ov.CaseLength.Min, ov.CaseLength.Max))
	tui.KV("Case duration", fmt.Sprintf("mean %s, median %s",
		tui.FormatDuration(time.Duration(ov.CaseDurationSeconds.Mean*float64(time.Second))),
		tui.FormatDuration(time.Duration(ov.CaseDurationSeconds.Median*float64(time.Second)))))
	if ov.MeanArrivalInterval > 0 {
		tui.KV("Mean arrival interval", tui.FormatDuration(ov.MeanArrivalInterval))
	}
	if !ov.LogStart.IsZero() {
		tui.KV("Time range", fmt.Sprintf("%s to %s",
			ov.LogStart.UTC().Format("2006-01-02"), ov.LogEnd.UTC().Format("2006-01-02")))
	}

	tui.Section("activities by event count")
	rows := make([][]string, 0, len(ov.ActivityCounts))
	for _, c := range ov.ActivityCounts {
		rows = append(rows, []string{c.Label, strconv.Itoa(c.Count)})
	}
	tui.Table([]string{"activity", "events"}, rows)

	return nil
}

func runVariants(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	shutdown := initTelemetry(ctx)
	defer shutdown(ctx)

	rows, total, err := coverageRows(ctx)
	if err != nil {
		return err
	}

	tui.Section("variant coverage")
	tui.KV("Cases", strconv.Itoa(total))
	tui.KV("Variants", strconv.Itoa(len(rows)))
	tui.KV("Singletons", strconv.Itoa(variants.Singletons(rows)))
	tui.KV(fmt.Sprintf("Tail (count <= %d)", tailThreshold), strconv.Itoa(variants.Tail(rows, tailThreshold)))
	tui.Rule()
	for _, k := range []int{1, 5, 10, 20, 50, 100} {
		tui.KV(fmt.Sprintf("Coverage top %d", k), tui.FormatPercent(variants.CoverageAt(rows, k)))
	}

	limit := topVariants
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}

	tui.Section(fmt.Sprintf("top %d variants", limit))
	tableRows := make([][]string, 0, limit)
	for _, r := range rows[:limit] {
		tableRows = append(tableRows, []string{
			strconv.Itoa(r.Rank),
			strconv.Itoa(r.Count),
			tui.FormatPercent(r.Fraction),
			tui.FormatPercent(r.Coverage),
			tui.Truncate(r.Label(), 80),
		})
	}
	tui.Table([]string{"rank", "cases", "share", "coverage", "variant"}, tableRows)

	return nil
}

// coverageRows computes the ranked coverage sequence, consulting the
// Redis cache when enabled.
func coverageRows(ctx context.Context) ([]variants.Row, int, error) {
	cfg := config.Global().Get()

	var c *cache.Cache
	var digest string
	if useCache || cfg.Cache.Enabled {
		var err error
		c, err = cache.New(cache.Config{
			Address:  cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			Database: cfg.Cache.DB,
			Prefix:   cfg.Cache.Prefix + ":coverage:",
			TTL:      cfg.Cache.TTL,
			Timeout:  5 * time.Second,
			PoolSize: 10,
		})
		if err != nil {
			if verbose {
				tui.Failure(fmt.Sprintf("cache unavailable: %v", err))
			}
			c = nil
		} else {
			defer c.Close()
			digest, err = cache.Digest(inputFile)
			if err != nil {
				return nil, 0, err
			}
			if combineLifecycle {
				digest += ":combined"
			}
			if rows, err := c.Get(ctx, digest); err == nil {
				if verbose {
					tui.KV("Cache", "hit")
				}
				total := 0
				if len(rows) > 0 {
					total = rows[len(rows)-1].Cumulative
				}
				return rows, total, nil
			} else if !errors.Is(err, cache.ErrMiss) && verbose {
				tui.Failure(fmt.Sprintf("cache read failed: %v", err))
			}
		}
	}

	log, err := loadLog(ctx)
	if err != nil {
		return nil, 0, err
	}
	if combineLifecycle {
		log = stats.CombineLifecycle(log)
	}

	table := variants.Extract(log.Cases)
	rows, err := variants.Coverage(table)
	if err != nil {
		return nil, 0, err
	}

	if c != nil {
		if err := c.Put(ctx, digest, inputFile, table.TotalCases, rows); err != nil && verbose {
			tui.Failure(fmt.Sprintf("cache write failed: %v", err))
		}
	}

	return rows, table.TotalCases, nil
}

func runLifecycle(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	log, err := loadLog(ctx)
	if err != nil {
		return err
	}

	report := stats.AnalyzeLifecycle(log)

	tui.Section("lifecycle usage")
	tui.KV("Events", strconv.Itoa(report.TotalEvents))
	tui.KV("With lifecycle", fmt.Sprintf("%d (%s)", report.WithLifecycle,
		tui.FormatPercent(fraction(report.WithLifecycle, report.TotalEvents))))

	tui.Section("all events by prefix")
	allRows := make([][]string, 0, len(stats.PrefixCategories))
	for _, c := range stats.PrefixCounts(log) {
		allRows = append(allRows, []string{
			c.Label,
			strconv.Itoa(c.Count),
			tui.FormatPercent(fraction(c.Count, report.TotalEvents)),
		})
	}
	tui.Table([]string{"prefix", "events", "share"}, allRows)

	tui.Section("events with lifecycle by prefix")
	prefixRows := make([][]string, 0, len(report.ByPrefix))
	for _, c := range report.ByPrefix {
		prefixRows = append(prefixRows, []string{c.Label, strconv.Itoa(c.Count)})
	}
	tui.Table([]string{"prefix", "events"}, prefixRows)

	tui.Section("transition values")
	transRows := make([][]string, 0, len(report.Transitions))
	for _, c := range report.Transitions {
		transRows = append(transRows, []string{c.Label, strconv.Itoa(c.Count)})
	}
	tui.Table([]string{"transition", "events"}, transRows)

	for _, prefix := range stats.PrefixCategories {
		with := report.ActivitiesWith[prefix]
		without := report.ActivitiesWithout[prefix]
		if len(with) == 0 && len(without) == 0 {
			continue
		}
		tui.Section(fmt.Sprintf("%s activities", prefix))
		tui.KV("With lifecycle", strconv.Itoa(len(with)))
		tui.KV("Without lifecycle", strconv.Itoa(len(without)))
	}

	return nil
}

func runAttributes(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	log, err := loadLog(ctx)
	if err != nil {
		return err
	}

	infos := stats.InventoryAttributes(log, config.Global().Get().Analysis.AttributeSamples)

	tui.Section("attribute inventory")
	infoRows := make([][]string, 0, len(infos))
	for _, info := range infos {
		infoRows = append(infoRows, []string{
			info.Key,
			info.Scope.String(),
			strconv.Itoa(info.Occurrences),
			strconv.Itoa(info.Distinct),
		})
	}
	tui.Table([]string{"key", "scope", "occurrences", "distinct"}, infoRows)

	levels := stats.ClassifyLevels(log, levelThreshold)

	tui.Section(fmt.Sprintf("level classification (threshold %.0f%%)", levelThreshold*100))
	levelRows := make([][]string, 0, len(levels))
	for _, l := range levels {
		level := "event"
		if l.CaseLevel {
			level = "case"
		}
		levelRows = append(levelRows, []string{
			l.Key,
			level,
			tui.FormatPercent(l.Constancy.ConstantFraction),
			strconv.Itoa(l.Constancy.CasesObserved),
		})
	}
	tui.Table([]string{"key", "level", "constant", "cases"}, levelRows)

	return nil
}

func runArrivals(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	log, err := loadLog(ctx)
	if err != nil {
		return err
	}

	if openCasesFlag {
		a := config.Global().Get().Analysis
		log = filter.OpenCases(log, a.CreateActivity, a.ExcludedActivities...)
		tui.KV("Open cases", strconv.Itoa(len(log.Cases)))
	}

	// Coverage counts completed occurrences only. Logs without lifecycle
	// information keep every event.
	scope := filter.CompleteOnly(log)
	if len(scope.Cases) == 0 {
		scope = log
	}
	coverage := stats.ActivityCaseCoverage(scope, targetActivity)
	if coverage == 0 {
		return tlerrors.UnknownActivity(targetActivity)
	}

	arrivalLog := stats.ArrivalLog(log, targetActivity)
	buckets := stats.ArrivalBuckets(arrivalLog, bucketWidth, rollingWindow)
	arrivals := stats.FirstOccurrenceTimes(log, targetActivity)

	tui.Section("arrival analysis")
	tui.KV("Activity", targetActivity)
	tui.KV("Case coverage", tui.FormatPercent(coverage))
	tui.KV("Arrivals", strconv.Itoa(len(arrivals)))
	tui.KV("Mean inter-arrival", tui.FormatDuration(stats.MeanInterArrival(arrivals)))
	tui.KV("Buckets", fmt.Sprintf("%d x %s", len(buckets), bucketWidth))

	tui.Section("arrivals per bucket")
	rows := make([][]string, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, []string{
			b.Start.UTC().Format("2006-01-02"),
			strconv.Itoa(b.Count),
			fmt.Sprintf("%.1f", b.RollingMean),
		})
	}
	tui.Table([]string{"bucket", "arrivals", "rolling mean"}, rows)

	return nil
}

func fraction(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
