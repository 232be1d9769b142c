package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ahmmedrejowan/chargify/pkg/alarm"
	"github.com/ahmmedrejowan/chargify/pkg/client"
	"github.com/ahmmedrejowan/chargify/pkg/telemetry"
)

type statusData struct {
	state   *telemetry.BatteryState
	session *telemetry.SessionSummary
	alarms  *alarm.Settings
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData(c *client.Client) (*statusData, error) {
	state, err := c.GetState()
	if err != nil {
		return nil, fmt.Errorf("failed to get battery state: %w", err)
	}

	// No session before the first reading.
	session, err := c.GetSession()
	if err != nil && !errors.Is(err, client.ErrNotFound) {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}

	alarms, err := c.GetAlarms()
	if err != nil {
		return nil, fmt.Errorf("failed to get alarm settings: %w", err)
	}

	return &statusData{
		state:   state,
		session: session,
		alarms:  alarms,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	asJSON := false

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current battery status",
		Long:    `Get battery state, time estimates, the session in progress and alarm settings.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData(apiClient)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd, buildStatusJSON(data))
			}

			printStatus(cmd.OutOrStdout(), data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")

	return cmd
}

func levelColor(b telemetry.LevelBand) *color.Color {
	switch b {
	case telemetry.LevelCritical:
		return color.New(color.Bold, color.FgRed)
	case telemetry.LevelWarning:
		return color.New(color.Bold, color.FgYellow)
	default:
		return color.New(color.Bold, color.FgGreen)
	}
}

func printStatus(w io.Writer, data *statusData) {
	s := data.state

	fmt.Fprintln(w, bold("Battery status:"))
	if s.UpdatedAt == 0 {
		fmt.Fprintln(w, "  No reading yet. The daemon may still be starting.")
		return
	}

	fmt.Fprintf(w, "  Current charge: %s\n", levelColor(s.LevelBand()).Sprintf("%d%%", s.ChargeLevel))

	state := "not charging"
	switch s.ChargingStatus {
	case telemetry.StatusCharging:
		state = color.GreenString("charging")
	case telemetry.StatusDischarging:
		state = color.RedString("discharging")
	case telemetry.StatusFull:
		state = "full"
	case telemetry.StatusUnknown:
		state = "unknown"
	}
	fmt.Fprintf(w, "  State: %s\n", bold("%s", state))
	if speed := s.ChargeSpeed(); speed != "" {
		fmt.Fprintf(w, "  Speed: %s\n", bold("%s", speed))
	}
	fmt.Fprintf(w, "  Power source: %s\n", bold("%s", s.PowerSource.Label()))

	if s.IsCharging {
		fmt.Fprintf(w, "  Time to full: %s\n", bold("%s", telemetry.FormatDuration(s.EtaToFullMillis)))
	} else {
		fmt.Fprintf(w, "  Time remaining: %s\n", bold("%s", telemetry.FormatDuration(s.TimeRemainingMillis)))
	}

	// Show power with sign (+ charging, - discharging) and bright color (bold)
	var rateStr string
	switch {
	case s.CurrentUsageMa > 0:
		rateStr = color.New(color.Bold, color.FgGreen).Sprintf("%+.2f W", s.PowerWatts)
	case s.CurrentUsageMa < 0:
		rateStr = color.New(color.Bold, color.FgRed).Sprintf("-%.2f W", s.PowerWatts)
	default:
		rateStr = bold("%.2f W", s.PowerWatts)
	}
	fmt.Fprintf(w, "  Current: %s (avg %s)\n", bold("%.2f mA", s.CurrentUsageMa), bold("%.2f mA", s.CurrentAverageMa))
	fmt.Fprintf(w, "  Power: %s\n", rateStr)
	fmt.Fprintf(w, "  Voltage: %s\n", bold("%.2f V", s.Voltage))
	fmt.Fprintf(w, "  Temperature: %s\n", bold("%.1f °C / %.1f °F", s.TemperatureCelsius, s.TemperatureFahrenheit))
	fmt.Fprintf(w, "  Health: %s\n", bold("%s", s.HealthLabel()))
	if s.BatteryTechnology != "" {
		fmt.Fprintf(w, "  Technology: %s\n", bold("%s", s.BatteryTechnology))
	}
	if s.BatteryCapacityMah != nil {
		fmt.Fprintf(w, "  Design capacity: %s\n", bold("%d mAh", *s.BatteryCapacityMah))
	}
	if s.ChargeCounterMah != nil {
		fmt.Fprintf(w, "  Charge counter: %s\n", bold("%.2f mAh", *s.ChargeCounterMah))
	}
	if s.EnergyCounterWh != nil {
		fmt.Fprintf(w, "  Energy counter: %s\n", bold("%.2f Wh", *s.EnergyCounterWh))
	}
	if s.CycleCount != nil {
		fmt.Fprintf(w, "  Cycle count: %s\n", bold("%d", *s.CycleCount))
	}

	if data.session != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold("Current session:"))
		dir := "discharging"
		if data.session.IsCharging {
			dir = "charging"
		}
		dur := time.Duration(data.session.DurationMillis) * time.Millisecond
		fmt.Fprintf(w, "  Direction: %s\n", bold("%s", dir))
		fmt.Fprintf(w, "  Level: %s\n", bold("%d%% → %d%% (%+d%%)",
			data.session.StartLevel, data.session.CurrentLevel, data.session.LevelChange))
		fmt.Fprintf(w, "  Duration: %s\n", bold("%s", dur.Truncate(time.Second)))
		fmt.Fprintf(w, "  Average current: %s\n", bold("%.2f mA", data.session.AverageCurrentMa))
	}

	if data.alarms != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold("Alarms:"))
		printAlarms(w, data.alarms)
	}
}
