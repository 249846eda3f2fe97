package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateValue   float64
	simulateUrgency string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Send a test alert through the configured notification channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), decimal.NewFromFloat(simulateValue), simulateUrgency)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateValue, "value", 1234.5, "Value to embed in the test alert")
	simulateCmd.Flags().StringVar(&simulateUrgency, "urgency", "high", "Urgency of the test alert (low|medium|high)")
}
