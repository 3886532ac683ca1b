package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"polymarket-scraper/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "polyscraper %s\n", version.String())
	},
}
