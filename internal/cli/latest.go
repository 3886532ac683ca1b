package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"polymarket-scraper/internal/app"
)

var latestTop int

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the snapshot last published to Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		if latestTop < 0 {
			return fmt.Errorf("--top must not be negative")
		}
		return getApp().Latest(cmd.Context(), app.LatestOptions{Top: latestTop})
	},
}

func init() {
	latestCmd.Flags().IntVar(&latestTop, "top", 10, "Number of top event IDs to list")
}
