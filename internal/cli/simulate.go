package cli

import (
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-notify",
	Short: "用模拟快照触发一次通知",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateNotify(cmd.Context())
	},
}
