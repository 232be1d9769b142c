package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ahmmedrejowan/chargify/pkg/alarm"
)

func NewAlarmsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alarms",
		Short:   "Show or change battery level alarms",
		GroupID: gAdvanced,
	}

	cmd.AddCommand(
		newAlarmsShowCommand(),
		newAlarmsSetCommand(),
	)

	return cmd
}

func newAlarmsShowCommand() *cobra.Command {
	asJSON := false

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show alarm settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := apiClient.GetAlarms()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, s)
			}
			printAlarms(cmd.OutOrStdout(), s)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print settings as JSON")

	return cmd
}

// alarmFlags holds the set command flags. Only flags the user changed end up
// in the patch sent to the daemon.
type alarmFlags struct {
	enabled     bool
	full        bool
	fullLevel   int
	low         bool
	lowLevel    int
	custom      bool
	customLevel int
	sound       bool
	vibration   bool
}

func newAlarmsSetCommand() *cobra.Command {
	var af alarmFlags

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change alarm settings",
		Long: `Change alarm settings. Only the given flags are changed.

Example:
  chargify alarms set --full --low --low-level 15`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			patch := buildAlarmPatch(cmd, af)
			if len(patch) == 0 {
				return fmt.Errorf("nothing to change, see --help for available flags")
			}

			s, err := apiClient.SetAlarms(patch)
			if err != nil {
				return err
			}
			logrus.Info("successfully updated alarm settings")
			printAlarms(cmd.OutOrStdout(), s)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&af.enabled, "enabled", true, "Master switch for all alarms")
	f.BoolVar(&af.full, "full", false, "Alarm when the battery is full")
	f.IntVar(&af.fullLevel, "full-level", 100, "Level considered full")
	f.BoolVar(&af.low, "low", false, "Alarm when the battery is low")
	f.IntVar(&af.lowLevel, "low-level", 20, "Level considered low")
	f.BoolVar(&af.custom, "custom", false, "Alarm at a custom level while charging")
	f.IntVar(&af.customLevel, "custom-level", 80, "Custom alarm level")
	f.BoolVar(&af.sound, "sound", true, "Alarms play a sound")
	f.BoolVar(&af.vibration, "vibration", true, "Alarms vibrate")

	return cmd
}

// buildAlarmPatch turns the changed flags into a partial settings document.
func buildAlarmPatch(cmd *cobra.Command, af alarmFlags) map[string]any {
	f := cmd.Flags()
	patch := map[string]any{}

	if f.Changed("enabled") {
		patch["enabled"] = af.enabled
	}
	if f.Changed("sound") {
		patch["sound"] = af.sound
	}
	if f.Changed("vibration") {
		patch["vibration"] = af.vibration
	}

	threshold := func(key, enabledFlag, levelFlag string, enabled bool, level int) {
		t := map[string]any{}
		if f.Changed(enabledFlag) {
			t["enabled"] = enabled
		}
		if f.Changed(levelFlag) {
			t["threshold"] = level
		}
		if len(t) > 0 {
			patch[key] = t
		}
	}
	threshold("fullCharge", "full", "full-level", af.full, af.fullLevel)
	threshold("lowBattery", "low", "low-level", af.low, af.lowLevel)
	threshold("custom", "custom", "custom-level", af.custom, af.customLevel)

	return patch
}

func printAlarms(w io.Writer, s *alarm.Settings) {
	fmt.Fprintf(w, "  Enabled: %s\n", bool2Text(s.Enabled))
	fmt.Fprintf(w, "  Full charge (%d%%): %s\n", s.FullCharge.Threshold, bool2Text(s.FullCharge.Enabled))
	fmt.Fprintf(w, "  Low battery (%d%%): %s\n", s.LowBattery.Threshold, bool2Text(s.LowBattery.Enabled))
	fmt.Fprintf(w, "  Custom (%d%%): %s\n", s.Custom.Threshold, bool2Text(s.Custom.Enabled))
	fmt.Fprintf(w, "  Sound: %s\n", bool2Text(s.Sound))
	fmt.Fprintf(w, "  Vibration: %s\n", bool2Text(s.Vibration))
}
