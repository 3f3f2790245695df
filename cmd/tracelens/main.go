// TraceLens - Event log variant and coverage analysis
// Loads XES/CSV event logs and reports variants, coverage, lifecycle
// usage, attribute structure and arrival behaviour.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tracelens/tracelens/internal/model"
	"github.com/tracelens/tracelens/internal/pipe"
	"github.com/tracelens/tracelens/pkg/config"
	tlerrors "github.com/tracelens/tracelens/pkg/errors"
	"github.com/tracelens/tracelens/pkg/parser"
	"github.com/tracelens/tracelens/pkg/telemetry"
	"github.com/tracelens/tracelens/pkg/tui"
	"github.com/tracelens/tracelens/pkg/util"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	inputFile  string
	formatFlag string
	outputPath string
	verbose    bool

	// CSV-specific flags
	csvDelimiter       string
	csvCaseIDColumn    string
	csvActivityColumn  string
	csvTimestampColumn string
	csvTimestampFormat string

	// Analysis flags
	topVariants    int
	tailThreshold  int
	levelThreshold float64
	targetActivity string
	bucketWidth    time.Duration
	rollingWindow  int
	useCache       bool

	// Filter flags
	completeOnly  bool
	containing    []string
	excluding     []string
	openCasesFlag bool

	// Export flags
	engineFlag      string
	compressionFlag string

	// Report flags
	publishResults bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tracelens",
	Short: "TraceLens - Event log variant and coverage analysis",
	Long: `TraceLens analyzes process mining event logs (XES, CSV): it extracts
case variants, computes cumulative variant coverage, and reports log
overview statistics, lifecycle usage, attribute structure and case
arrival behaviour.

Examples:
  tracelens overview -i BPI2017.xes.gz
  tracelens variants -i BPI2017.xes.gz --top 20
  tracelens arrivals -i BPI2017.xes.gz --activity "A_Concept"
  tracelens report -i BPI2017.xes.gz`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	pf.StringVarP(&inputFile, "input", "i", "", "Input log file path (.xes, .csv, .gz transparent)")
	pf.StringVarP(&formatFlag, "format", "f", "", "Input format (xes, csv) - auto-detected if not specified")

	pf.StringVar(&csvDelimiter, "delimiter", ",", "CSV field delimiter")
	pf.StringVar(&csvCaseIDColumn, "case-id", model.KeyCaseID, "Case ID column name (CSV)")
	pf.StringVar(&csvActivityColumn, "activity-column", model.KeyActivity, "Activity column name (CSV)")
	pf.StringVar(&csvTimestampColumn, "timestamp-column", model.KeyTimestamp, "Timestamp column name (CSV)")
	pf.StringVar(&csvTimestampFormat, "timestamp-format", "2006-01-02T15:04:05.000Z07:00", "Timestamp format (Go time layout)")

	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(variantsCmd)
	rootCmd.AddCommand(lifecycleCmd)
	rootCmd.AddCommand(attributesCmd)
	rootCmd.AddCommand(arrivalsCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(watchCmd)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}

// initTelemetry starts tracing when enabled in config. The returned
// shutdown func is safe to call unconditionally.
func initTelemetry(ctx context.Context) func(context.Context) error {
	cfg := config.Global().Get()
	if !cfg.Telemetry.Enabled {
		return func(context.Context) error { return nil }
	}

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version
	if cfg.Telemetry.Endpoint != "" {
		tcfg.Endpoint = cfg.Telemetry.Endpoint
	}

	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		if verbose {
			tui.Failure(fmt.Sprintf("telemetry disabled: %v", err))
		}
		return func(context.Context) error { return nil }
	}
	return shutdown
}

// loadLog loads the input log through the pipeline, with progress
// reporting when verbose.
func loadLog(ctx context.Context) (*model.Log, error) {
	if inputFile == "" {
		return nil, fmt.Errorf("input file required (-i)")
	}
	info, err := os.Stat(inputFile)
	if os.IsNotExist(err) {
		return nil, tlerrors.FileNotFound(inputFile)
	}
	if verbose && err == nil {
		tui.KV("Input", fmt.Sprintf("%s (%s)", inputFile, tui.FormatBytes(info.Size())))
	}

	parserCfg := parser.DefaultConfig()
	parserCfg.CaseIDColumn = csvCaseIDColumn
	parserCfg.ActivityColumn = csvActivityColumn
	parserCfg.TimestampColumn = csvTimestampColumn
	parserCfg.TimestampFormat = csvTimestampFormat
	if len(csvDelimiter) > 0 {
		parserCfg.Delimiter = rune(csvDelimiter[0])
	}

	loader := pipe.NewLoader(pipe.Config{ParserConfig: parserCfg})
	if verbose {
		loader.SetProgressCallback(func(stats pipe.ProgressStats) {
			tui.PrintProgress(stats.EventsRead, stats.EventsPerSecond, stats.Elapsed)
		})
	}

	ctx, span := telemetry.StartSpan(ctx, "load")
	defer span.End()

	var log *model.Log
	if formatFlag != "" {
		format := parser.ParseFormat(formatFlag)
		if format == parser.FormatUnknown {
			return nil, fmt.Errorf("unknown format %q", formatFlag)
		}
		log, err = loadWithFormat(ctx, loader, format)
	} else {
		log, err = loader.Load(ctx, inputFile)
	}

	if verbose {
		tui.ClearLine()
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, tlerrors.Wrapf(err, tlerrors.CodeParseFailed, "load %s", inputFile)
	}
	if len(log.Cases) == 0 {
		return nil, tlerrors.EmptyLog(inputFile)
	}
	telemetry.AnnotateLog(ctx, len(log.Cases), log.EventCount())
	return log, nil
}

func loadWithFormat(ctx context.Context, loader *pipe.Loader, format parser.Format) (*model.Log, error) {
	r, cleanup, err := util.OpenFile(inputFile)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return loader.LoadFrom(ctx, r, format)
}
