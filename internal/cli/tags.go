package cli

import (
	"github.com/spf13/cobra"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List the tags known to the Gamma API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Tags(cmd.Context())
	},
}
