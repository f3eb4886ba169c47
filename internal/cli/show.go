package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leeinprogress/aws-currency-tracker/internal/app"
)

var (
	showUserID string
	showBase   string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display stored alerts for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showUserID == "" {
			return fmt.Errorf("--user is required")
		}

		opts := app.ShowOptions{
			UserID:   showUserID,
			OnlyBase: showBase,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showUserID, "user", "", "User ID whose alerts to display")
	showCmd.Flags().StringVar(&showBase, "base", "", "Only show alerts for this base currency")
}
