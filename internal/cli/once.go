package cli

import (
	"github.com/spf13/cobra"

	"polymarket-scraper/internal/app"
)

var onceFormats []string

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Scrape a single snapshot, export it and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Once(cmd.Context(), app.OnceOptions{Formats: onceFormats})
	},
}

func init() {
	onceCmd.Flags().StringSliceVar(&onceFormats, "formats", nil, "Export formats: csv, json, xlsx, png (defaults to export.formats)")
}
