package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"polymarket-scraper/internal/app"
)

var (
	runInterval time.Duration
	runExport   bool
	runCategory string
	runMaxRows  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live dashboard, refreshing every interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runInterval < 0 {
			return fmt.Errorf("--interval must not be negative")
		}
		if runMaxRows < 0 {
			return fmt.Errorf("--max-rows must not be negative")
		}

		opts := app.RunOptions{
			Interval: runInterval,
			Export:   runExport,
			Category: runCategory,
			MaxRows:  runMaxRows,
		}
		return getApp().Run(cmd.Context(), opts)
	},
}

func init() {
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "Refresh interval (defaults to scheduler.interval)")
	runCmd.Flags().BoolVar(&runExport, "export", false, "Export every snapshot using export.formats")
	runCmd.Flags().StringVar(&runCategory, "category", "", "Only show events in this category")
	runCmd.Flags().IntVar(&runMaxRows, "max-rows", 0, "Maximum event rows to display (defaults to dashboard.max_rows)")
}
