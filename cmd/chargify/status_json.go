package main

import (
	"github.com/ahmmedrejowan/chargify/pkg/alarm"
	"github.com/ahmmedrejowan/chargify/pkg/telemetry"
)

type statusJSON struct {
	Battery statusBatteryJSON `json:"battery"`
	// Session is omitted before the first reading.
	Session *telemetry.SessionSummary `json:"session,omitempty"`
	Alarms  *alarm.Settings           `json:"alarms,omitempty"`
}

type statusBatteryJSON struct {
	telemetry.BatteryState
	HealthLabel string              `json:"healthLabel"`
	ChargeSpeed string              `json:"chargeSpeed,omitempty"`
	LevelBand   telemetry.LevelBand `json:"levelBand"`
	PowerLabel  string              `json:"powerSourceLabel"`
}

func buildStatusJSON(data *statusData) statusJSON {
	s := *data.state
	return statusJSON{
		Battery: statusBatteryJSON{
			BatteryState: s,
			HealthLabel:  s.HealthLabel(),
			ChargeSpeed:  s.ChargeSpeed(),
			LevelBand:    s.LevelBand(),
			PowerLabel:   s.PowerSource.Label(),
		},
		Session: data.session,
		Alarms:  data.alarms,
	}
}
