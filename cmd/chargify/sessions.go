package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ahmmedrejowan/chargify/pkg/client"
	"github.com/ahmmedrejowan/chargify/pkg/storage"
)

func NewSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Short:   "Manage recorded charging sessions",
		GroupID: gBasic,
	}

	cmd.AddCommand(
		newSessionsListCommand(),
		newSessionsDeleteCommand(),
		newSessionsClearCommand(),
	)

	return cmd
}

func newSessionsListCommand() *cobra.Command {
	var (
		limit  = -1
		today  = false
		asJSON = false
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := apiClient.GetSessions(client.SessionQuery{Limit: limit, Today: today})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, sessions)
			}
			printSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "n", limit, "Show at most this many sessions (negative for all)")
	f.BoolVar(&today, "today", false, "Only show sessions that started today")
	f.BoolVar(&asJSON, "json", false, "Print sessions as JSON")

	return cmd
}

func newSessionsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseIntArg(args, "session id")
			if err != nil {
				return err
			}

			ret, err := apiClient.DeleteSession(int64(id))
			if err != nil {
				return fmt.Errorf("failed to delete session %d: %w", id, err)
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}
			logrus.Infof("successfully deleted session %d", id)
			return nil
		},
	}
}

func newSessionsClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all sessions",
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.ClearSessions()
			if err != nil {
				return fmt.Errorf("failed to clear sessions: %w", err)
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}
			logrus.Info("successfully cleared all sessions")
			return nil
		},
	}
}

func printSessions(w io.Writer, sessions []storage.ChargingSession) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tDIRECTION\tLEVEL\tAVG CURRENT\tAVG TEMP\tSOURCE")
	for _, s := range sessions {
		dir := "discharging"
		if s.IsCharging {
			dir = "charging"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d%% → %d%% (%+d%%)\t%.2f mA\t%.1f °C\t%s\n",
			s.ID,
			time.UnixMilli(s.StartTime).Format("2006-01-02 15:04"),
			s.Duration().Truncate(time.Second),
			dir,
			s.StartLevel, s.EndLevel, s.LevelChange(),
			s.AverageCurrentMa,
			s.AverageTempC,
			s.PowerSource,
		)
	}
	_ = tw.Flush()
}
