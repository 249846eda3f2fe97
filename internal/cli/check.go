package cli

import (
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe each configured explorer API and report health",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CheckChains(cmd.Context(), cmd.OutOrStdout())
	},
}
