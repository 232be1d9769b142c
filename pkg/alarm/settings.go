package alarm

import (
	pkgerrors "github.com/pkg/errors"
)

// Threshold is one level alarm.
type Threshold struct {
	Enabled   bool `json:"enabled"`
	Threshold int  `json:"threshold"`
}

// Settings are the user preferences for level alarms.
type Settings struct {
	// Enabled is the master switch.
	Enabled    bool      `json:"enabled"`
	FullCharge Threshold `json:"fullCharge"`
	LowBattery Threshold `json:"lowBattery"`
	Custom     Threshold `json:"custom"`
	Sound      bool      `json:"sound"`
	Vibration  bool      `json:"vibration"`
}

// DefaultSettings has every individual alarm switched off.
func DefaultSettings() Settings {
	return Settings{
		Enabled:    true,
		FullCharge: Threshold{Enabled: false, Threshold: 100},
		LowBattery: Threshold{Enabled: false, Threshold: 20},
		Custom:     Threshold{Enabled: false, Threshold: 80},
		Sound:      true,
		Vibration:  true,
	}
}

// Validate checks that every threshold is a percentage.
func (s Settings) Validate() error {
	for name, t := range map[string]Threshold{
		"fullCharge": s.FullCharge,
		"lowBattery": s.LowBattery,
		"custom":     s.Custom,
	} {
		if t.Threshold < 0 || t.Threshold > 100 {
			return pkgerrors.Errorf("%s threshold %d is out of range [0, 100]", name, t.Threshold)
		}
	}
	return nil
}
