package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"polymarket-scraper/internal/app"
)

var (
	historyLimit    int
	historySnapshot string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display archived snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.HistoryOptions{
			Limit:      historyLimit,
			SnapshotID: historySnapshot,
		}

		return getApp().History(cmd.Context(), opts)
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of rows to display")
	historyCmd.Flags().StringVar(&historySnapshot, "snapshot", "", "Show the archived events of one snapshot")
}
