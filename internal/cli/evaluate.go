package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var evaluateEventFile string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate alerts against a rates-updated event document",
	RunE: func(cmd *cobra.Command, args []string) error {
		if evaluateEventFile == "" {
			return fmt.Errorf("--event is required")
		}
		return getApp().EvaluateEvent(cmd.Context(), evaluateEventFile)
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateEventFile, "event", "", "Path to a rates-updated event JSON file")
}
