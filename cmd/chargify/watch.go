package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ahmmedrejowan/chargify/pkg/events"
	"github.com/ahmmedrejowan/chargify/pkg/storage"
	"github.com/ahmmedrejowan/chargify/pkg/telemetry"
)

func NewWatchCommand() *cobra.Command {
	raw := false

	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Follow live battery events",
		GroupID: gBasic,
		Long: `Follow the daemon event stream: battery state, finished sessions and alarms.

Press Ctrl-C to stop.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := cmd.OutOrStdout()
			return apiClient.SubscribeEvents(ctx, func(ev events.Event) bool {
				if raw {
					fmt.Fprintf(w, "%s %s\n", ev.Name, ev.Data)
					return true
				}
				if err := printEvent(w, ev); err != nil {
					logrus.WithError(err).WithField("event", ev.Name).Warn("failed to decode event")
				}
				return true
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print event names and raw JSON payloads")

	return cmd
}

// printEvent writes one line per event. History and session stats events
// are skipped, they repeat what the state line shows.
func printEvent(w io.Writer, ev events.Event) error {
	ts := time.Now().Format(time.Kitchen)

	switch ev.Name {
	case events.BatteryState:
		s, err := events.DecodeAs[telemetry.BatteryState](ev)
		if err != nil {
			return err
		}
		eta := "remaining " + telemetry.FormatDuration(s.TimeRemainingMillis)
		if s.IsCharging {
			eta = "full in " + telemetry.FormatDuration(s.EtaToFullMillis)
		}
		fmt.Fprintf(w, "%s %s %s %.2f mA %.2f W %.1f °C, %s\n",
			ts,
			levelColor(s.LevelBand()).Sprintf("%3d%%", s.ChargeLevel),
			s.ChargingStatus,
			s.CurrentUsageMa,
			s.PowerWatts,
			s.TemperatureCelsius,
			eta,
		)
	case events.SessionSaved:
		s, err := events.DecodeAs[storage.ChargingSession](ev)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s #%d %d%% → %d%% in %s\n",
			ts, bold("session saved"), s.ID, s.StartLevel, s.EndLevel, s.Duration().Truncate(time.Second))
	case events.AlarmTriggered:
		a, err := events.DecodeAs[events.AlarmEvent](ev)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s %s\n", ts, color.New(color.Bold, color.FgYellow).Sprint(a.Title), a.Message)
	}
	return nil
}
