package cli

import (
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch rates once and evaluate all active alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().FetchOnce(cmd.Context())
	},
}
