package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tracelens/tracelens/internal/model"
	"github.com/tracelens/tracelens/pkg/config"
	"github.com/tracelens/tracelens/pkg/export"
	"github.com/tracelens/tracelens/pkg/filter"
	"github.com/tracelens/tracelens/pkg/publish"
	"github.com/tracelens/tracelens/pkg/report"
	"github.com/tracelens/tracelens/pkg/stats"
	"github.com/tracelens/tracelens/pkg/tui"
	"github.com/tracelens/tracelens/pkg/variants"
	"github.com/tracelens/tracelens/pkg/writer"
)

var combineLifecycle bool

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter a log and write it back as XES",
	Long: `Apply case and event filters to a log and write the result as XES.

Examples:
  tracelens filter -i log.xes -o complete.xes --complete-only
  tracelens filter -i log.xes -o open.xes --open-cases
  tracelens filter -i log.xes -o combined.xes --combine-lifecycle
  tracelens filter -i log.xes -o subset.xes --containing "A_Concept" --excluding "A_Cancelled"`,
	RunE: runFilter,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the log and coverage tables as Parquet",
	Long: `Export the flattened event table plus derived case, variant and
coverage tables to Parquet.

The duckdb engine writes events, cases, variants and coverage tables
into the output directory. The arrow engine streams a single events
table to the output file.

Examples:
  tracelens export -i log.xes -o out/ --engine duckdb
  tracelens export -i log.xes -o events.parquet --engine arrow --compression zstd`,
	RunE: runExport,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the full analysis and write a result directory",
	Long: `Run overview, variant coverage, lifecycle, attribute and arrival
analyses, writing CSV tables, an XLSX workbook and a run manifest into
a timestamped result directory.

Examples:
  tracelens report -i BPI2017.xes.gz
  tracelens report -i BPI2017.xes.gz --publish`,
	RunE: runReport,
}

func init() {
	filterCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output XES file (required)")
	filterCmd.Flags().BoolVar(&completeOnly, "complete-only", false, "Keep only complete lifecycle events")
	filterCmd.Flags().StringArrayVar(&containing, "containing", nil, "Keep cases containing any of these activities")
	filterCmd.Flags().StringArrayVar(&excluding, "excluding", nil, "Drop cases containing any of these activities")
	filterCmd.Flags().BoolVar(&openCasesFlag, "open-cases", false, "Keep only open cases (created, no terminal activity)")
	filterCmd.Flags().BoolVar(&combineLifecycle, "combine-lifecycle", false, "Rewrite activity labels as \"activity - lifecycle\"")
	filterCmd.MarkFlagRequired("output")

	exportDefaults := config.Global().Get().Export
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output directory (duckdb) or file (arrow)")
	exportCmd.Flags().StringVar(&engineFlag, "engine", exportDefaults.Engine, "Export engine (duckdb, arrow)")
	exportCmd.Flags().StringVar(&compressionFlag, "compression", exportDefaults.Compression, "Parquet compression (none, snappy, gzip, zstd)")
	exportCmd.MarkFlagRequired("output")

	reportCmd.Flags().BoolVar(&publishResults, "publish", false, "Upload the result directory to S3")
}

func runFilter(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	log, err := loadLog(ctx)
	if err != nil {
		return err
	}

	before := len(log.Cases)
	cfg := config.Global().Get().Analysis

	if completeOnly {
		log = filter.CompleteOnly(log)
	}
	if openCasesFlag {
		log = filter.OpenCases(log, cfg.CreateActivity, cfg.ExcludedActivities...)
	}
	if len(containing) > 0 {
		log = filter.ContainingAny(log, containing...)
	}
	if len(excluding) > 0 {
		log = filter.ExcludingAny(log, excluding...)
	}
	if combineLifecycle {
		log = stats.CombineLifecycle(log)
	}

	if err := writeXES(ctx, log, outputPath); err != nil {
		return err
	}

	tui.Success(fmt.Sprintf("Wrote %d of %d cases to %s", len(log.Cases), before, outputPath))
	return nil
}

func writeXES(ctx context.Context, log *model.Log, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := writer.NewXESWriter(f)
	if err := w.WriteLog(ctx, log); err != nil {
		return err
	}
	return w.Close()
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	log, err := loadLog(ctx)
	if err != nil {
		return err
	}

	start := time.Now()

	switch engineFlag {
	case "duckdb":
		rows, err := variants.Coverage(variants.Extract(log.Cases))
		if err != nil {
			return err
		}

		exporter, err := export.NewDuckDBExporter(outputPath, compressionFlag)
		if err != nil {
			return err
		}
		defer exporter.Close()

		result, err := exporter.Export(ctx, log, rows)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		tui.Success(fmt.Sprintf("Exported %d tables in %s", len(result.Files()), tui.FormatDuration(time.Since(start))))
		for _, f := range result.Files() {
			tui.KV("File", f)
		}

	case "arrow":
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outputPath, err)
		}
		defer f.Close()

		cfg := writer.DefaultConfig()
		cfg.Compression = writer.ParseCompression(compressionFlag)

		pw, err := writer.NewParquetWriter(f, cfg)
		if err != nil {
			return err
		}
		if err := pw.WriteLog(ctx, log); err != nil {
			pw.Close()
			return fmt.Errorf("export failed: %w", err)
		}
		if err := pw.Close(); err != nil {
			return err
		}

		tui.Success(fmt.Sprintf("Wrote %s rows in %s",
			tui.FormatNumber(pw.RowsWritten()), tui.FormatDuration(time.Since(start))))

	default:
		return fmt.Errorf("unknown engine %q (duckdb, arrow)", engineFlag)
	}

	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	shutdown := initTelemetry(ctx)
	defer shutdown(ctx)

	log, err := loadLog(ctx)
	if err != nil {
		return err
	}

	cfg := config.Global().Get()

	run, err := report.NewRun(cfg.Results.Dir, inputFile)
	if err != nil {
		return err
	}

	ov := stats.ComputeOverview(log)
	table := variants.Extract(log.Cases)
	rows, err := variants.Coverage(table)
	if err != nil {
		return err
	}
	lifecycle := stats.AnalyzeLifecycle(log)
	levels := stats.ClassifyLevels(log, cfg.Analysis.LevelThreshold)
	infos := stats.InventoryAttributes(log, cfg.Analysis.AttributeSamples)

	arrivalLog := stats.ArrivalLog(log, cfg.Analysis.TargetActivity)
	var buckets []stats.ArrivalBucket
	if len(arrivalLog.Cases) > 0 {
		buckets = stats.ArrivalBuckets(arrivalLog, cfg.Analysis.BucketWidth, cfg.Analysis.RollingWindow)
	}

	if err := report.WriteCoverageCSV(run.Path("coverage.csv"), rows); err != nil {
		return err
	}
	if err := report.WriteVariantCasesCSV(run.Path("variant_cases.csv"), table); err != nil {
		return err
	}
	if err := report.WriteLabeledCountsCSV(run.Path("activities.csv"), "activity", ov.ActivityCounts); err != nil {
		return err
	}
	if err := report.WriteLabeledCountsCSV(run.Path("resources.csv"), "resource", ov.ResourceCounts); err != nil {
		return err
	}
	if err := report.WriteAttributesCSV(run.Path("attributes.csv"), infos); err != nil {
		return err
	}
	if err := report.WriteLevelsCSV(run.Path("attribute_levels.csv"), levels); err != nil {
		return err
	}
	if len(buckets) > 0 {
		if err := report.WriteArrivalsCSV(run.Path("arrivals.csv"), buckets); err != nil {
			return err
		}
	}

	summary := &report.Summary{
		Source:      inputFile,
		RunID:       run.ID,
		Generated:   run.Started,
		Overview:    ov,
		Rows:        rows,
		Lifecycle:   lifecycle,
		Levels:      levels,
		Buckets:     buckets,
		TopVariants: cfg.Analysis.TopVariants,
	}
	if err := report.WriteWorkbook(run.Path("analysis.xlsx"), summary); err != nil {
		return err
	}

	if err := run.WriteManifest(); err != nil {
		return err
	}

	tui.Success(fmt.Sprintf("Wrote %d result files to %s", len(run.Files())+1, run.Dir))
	tui.KV("Cases", strconv.Itoa(ov.Cases))
	tui.KV("Variants", strconv.Itoa(ov.Variants))
	tui.KV("Coverage top 10", tui.FormatPercent(variants.CoverageAt(rows, 10)))

	if publishResults {
		return publishRun(ctx, run)
	}
	return nil
}

// publishRun uploads the run directory to the configured S3 bucket.
func publishRun(ctx context.Context, run *report.Run) error {
	cfg := config.Global().Get().Publish
	if cfg.Bucket == "" {
		return fmt.Errorf("no publish bucket configured (publish.bucket)")
	}

	pcfg := publish.DefaultConfig(cfg.Bucket)
	pcfg.Region = cfg.Region
	pcfg.Endpoint = cfg.Endpoint
	pcfg.UsePathStyle = cfg.PathStyle
	if cfg.Prefix != "" {
		pcfg.Prefix = cfg.Prefix
	}

	pub, err := publish.New(ctx, pcfg)
	if err != nil {
		return err
	}

	bar := tui.ShowProgress(int64(len(run.Files())+1), "uploading")
	keys, err := pub.UploadRun(ctx, run.Dir, filepath.Base(run.Dir), func(string) {
		bar.Add(1)
	})
	bar.Finish()
	if err != nil {
		return fmt.Errorf("publish failed after %d objects: %w", len(keys), err)
	}

	tui.Success(fmt.Sprintf("Published %d objects to s3://%s/%s", len(keys), cfg.Bucket, pcfg.Prefix))
	return nil
}
