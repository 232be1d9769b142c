package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahmmedrejowan/chargify/pkg/telemetry"
)

var metricUnits = map[telemetry.Metric]string{
	telemetry.MetricCurrent:     "mA",
	telemetry.MetricPower:       "W",
	telemetry.MetricTemperature: "°C",
	telemetry.MetricVoltage:     "V",
	telemetry.MetricLevel:       "%",
}

func metricNames() []string {
	names := make([]string, 0, len(telemetry.Metrics))
	for _, m := range telemetry.Metrics {
		names = append(names, string(m))
	}
	return names
}

func NewHistoryCommand() *cobra.Command {
	asJSON := false

	cmd := &cobra.Command{
		Use:       "history [metric]",
		Short:     "Show recent readings",
		GroupID:   gBasic,
		Long:      `Show the most recent readings of every metric, or of one metric (` + strings.Join(metricNames(), ", ") + `). Oldest reading first.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: metricNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				m, ok := telemetry.ParseMetric(args[0])
				if !ok {
					return fmt.Errorf("unknown metric %q, must be one of %s", args[0], strings.Join(metricNames(), ", "))
				}
				values, err := apiClient.GetHistory(m)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd, values)
				}
				printHistory(cmd.OutOrStdout(), m, values)
				return nil
			}

			h, err := apiClient.GetHistories()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, h)
			}
			for _, m := range telemetry.Metrics {
				printHistory(cmd.OutOrStdout(), m, h.Get(m))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print history as JSON")

	return cmd
}

func printHistory(w io.Writer, m telemetry.Metric, values []float64) {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprintf("%g", v))
	}
	fmt.Fprintf(w, "%s (%s, %d): %s\n", bold("%s", m), metricUnits[m], len(values), strings.Join(parts, " "))
}
