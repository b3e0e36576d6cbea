package main

import (
	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanbazaar/pkg/metrics"
)

// kisan metrics
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print this process's metrics in Prometheus text format",
	Long: "Counters are per process, so this mostly shows the storage and startup " +
		"activity of the current run. Useful with LOCAL_STORE=redis or sql to check connectivity.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return metrics.WriteText(cmd.OutOrStdout())
	},
}
