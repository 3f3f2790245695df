package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracelens/tracelens/pkg/tui"
	"github.com/tracelens/tracelens/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the variant analysis when the log changes",
	Long: `Watch a log file and re-run the variant coverage analysis whenever
the file is written. Useful while a log export is being regenerated.

Example:
  tracelens watch -i export.xes`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if inputFile == "" {
		return fmt.Errorf("input file required (-i)")
	}

	ctx, cancel := signalContext()
	defer cancel()

	w, err := watch.New(inputFile, watch.DefaultDebounce)
	if err != nil {
		return err
	}
	defer w.Close()

	// Initial analysis before waiting for changes.
	if err := runVariants(cmd, args); err != nil {
		tui.Failure(err.Error())
	}

	tui.Section(fmt.Sprintf("watching %s", w.Path()))
	err = w.Run(ctx,
		func(path string) error {
			tui.Section(fmt.Sprintf("change detected: %s", path))
			return runVariants(cmd, args)
		},
		func(err error) {
			tui.Failure(fmt.Sprintf("watch: %v", err))
		})
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}
