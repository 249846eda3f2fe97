package cli

import (
	"github.com/spf13/cobra"

	"chainwatch/internal/app"
)

var showLimit int

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List recent fired alerts from the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ShowRecentAlerts(cmd.Context(), cmd.OutOrStdout(), app.ShowOptions{Limit: showLimit})
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Maximum number of records to display")
}
