package telemetry

import (
	"time"

	"github.com/ahmmedrejowan/chargify/pkg/source"
)

// ChargingStatus is the charger state reported by the battery.
type ChargingStatus string

const (
	StatusCharging    ChargingStatus = "CHARGING"
	StatusDischarging ChargingStatus = "DISCHARGING"
	StatusFull        ChargingStatus = "FULL"
	StatusNotCharging ChargingStatus = "NOT_CHARGING"
	StatusUnknown     ChargingStatus = "UNKNOWN"
)

// ChargingStatusFromCode maps a raw status code to a ChargingStatus.
func ChargingStatusFromCode(code int) ChargingStatus {
	switch code {
	case source.StatusCharging:
		return StatusCharging
	case source.StatusDischarging:
		return StatusDischarging
	case source.StatusFull:
		return StatusFull
	case source.StatusNotCharging:
		return StatusNotCharging
	default:
		return StatusUnknown
	}
}

// IsCharging is true for CHARGING and FULL. A full battery on the charger
// still counts as a charging session.
func (s ChargingStatus) IsCharging() bool {
	return s == StatusCharging || s == StatusFull
}

// PowerSource is where external power comes from, if any.
type PowerSource string

const (
	PowerSourceAC       PowerSource = "AC"
	PowerSourceUSB      PowerSource = "USB"
	PowerSourceWireless PowerSource = "WIRELESS"
	PowerSourceNone     PowerSource = "NONE"
)

// PowerSourceFromPlugged maps a raw plug code to a PowerSource.
func PowerSourceFromPlugged(plugged int) PowerSource {
	switch plugged {
	case source.PluggedAC:
		return PowerSourceAC
	case source.PluggedUSB:
		return PowerSourceUSB
	case source.PluggedWireless:
		return PowerSourceWireless
	default:
		return PowerSourceNone
	}
}

// Label is the human readable name recorded on sessions.
func (p PowerSource) Label() string {
	switch p {
	case PowerSourceAC:
		return "AC"
	case PowerSourceUSB:
		return "USB"
	case PowerSourceWireless:
		return "Wireless"
	default:
		return "Unplugged"
	}
}

// BatteryState is the composite snapshot published after every update. It
// is a value: the engine replaces it wholesale and never mutates a
// published copy.
type BatteryState struct {
	ChargeLevel           int            `json:"chargeLevel"`
	IsCharging            bool           `json:"isCharging"`
	ChargingStatus        ChargingStatus `json:"chargingStatus"`
	PowerSource           PowerSource    `json:"powerSource"`
	TemperatureCelsius    float64        `json:"temperatureCelsius"`
	TemperatureFahrenheit float64        `json:"temperatureFahrenheit"`
	Voltage               float64        `json:"voltage"`
	CurrentUsageMa        float64        `json:"currentUsageMa"`
	CurrentAverageMa      float64        `json:"currentAverageMa"`
	PowerWatts            float64        `json:"powerWatts"`
	BatteryCapacityMah    *int           `json:"batteryCapacityMah,omitempty"`
	ChargeCounterMah      *float64       `json:"chargeCounterMah,omitempty"`
	EnergyCounterWh       *float64       `json:"energyCounterWh,omitempty"`
	CycleCount            *int           `json:"cycleCount,omitempty"`
	EtaToFullMillis       *int64         `json:"etaToFullMillis,omitempty"`
	TimeRemainingMillis   *int64         `json:"timeRemainingMillis,omitempty"`
	BatteryHealth         int            `json:"batteryHealth"`
	BatteryTechnology     string         `json:"batteryTechnology,omitempty"`
	UpdatedAt             int64          `json:"updatedAt"`
}

// NewBatteryState returns the state before any reading arrived.
func NewBatteryState() BatteryState {
	return BatteryState{
		ChargingStatus: StatusUnknown,
		PowerSource:    PowerSourceNone,
		BatteryHealth:  source.HealthUnknown,
	}
}

// HealthLabel is the readable form of BatteryHealth.
func (s BatteryState) HealthLabel() string {
	return HealthLabel(s.BatteryHealth)
}

// ChargeSpeed is the speed label for the current draw. Empty when not
// charging.
func (s BatteryState) ChargeSpeed() string {
	if !s.IsCharging {
		return ""
	}
	return ChargeSpeedLabel(s.CurrentUsageMa)
}

// LevelBand classifies ChargeLevel.
func (s BatteryState) LevelBand() LevelBand {
	return LevelBandOf(s.ChargeLevel)
}

// SessionStats describes the session in progress.
type SessionStats struct {
	IsCharging      bool    `json:"isCharging"`
	StartLevel      int     `json:"startLevel"`
	CurrentLevel    int     `json:"currentLevel"`
	StartTimeMillis int64   `json:"startTimeMillis"`
	SampleCount     int     `json:"sampleCount"`
	TotalCurrentMa  float64 `json:"totalCurrentMa"`
	PowerSource     string  `json:"powerSource"`
}

// LevelChange is CurrentLevel - StartLevel.
func (s SessionStats) LevelChange() int {
	return s.CurrentLevel - s.StartLevel
}

// DurationMillis is the time elapsed since the session started.
func (s SessionStats) DurationMillis(now time.Time) int64 {
	return now.UnixMilli() - s.StartTimeMillis
}

// AverageCurrentMa is the mean absolute current, 0 without samples.
func (s SessionStats) AverageCurrentMa() float64 {
	if s.SampleCount == 0 {
		return 0
	}
	return s.TotalCurrentMa / float64(s.SampleCount)
}

// Metric names one of the history buffers.
type Metric string

const (
	MetricCurrent     Metric = "current"
	MetricPower       Metric = "power"
	MetricTemperature Metric = "temperature"
	MetricVoltage     Metric = "voltage"
	MetricLevel       Metric = "level"
)

// Metrics lists every history in display order.
var Metrics = []Metric{MetricCurrent, MetricPower, MetricTemperature, MetricVoltage, MetricLevel}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, bool) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Histories is a snapshot of all history buffers, oldest value first.
type Histories struct {
	Current     []float64 `json:"current"`
	Power       []float64 `json:"power"`
	Temperature []float64 `json:"temperature"`
	Voltage     []float64 `json:"voltage"`
	Level       []float64 `json:"level"`
}

// Get returns the history for m.
func (h Histories) Get(m Metric) []float64 {
	switch m {
	case MetricCurrent:
		return h.Current
	case MetricPower:
		return h.Power
	case MetricTemperature:
		return h.Temperature
	case MetricVoltage:
		return h.Voltage
	case MetricLevel:
		return h.Level
	default:
		return nil
	}
}

// SessionSummary is SessionStats with its derived values filled in, as
// served to clients.
type SessionSummary struct {
	SessionStats
	LevelChange      int     `json:"levelChange"`
	DurationMillis   int64   `json:"durationMillis"`
	AverageCurrentMa float64 `json:"averageCurrentMa"`
}

// Summary derives the session values at now.
func (s SessionStats) Summary(now time.Time) SessionSummary {
	return SessionSummary{
		SessionStats:     s,
		LevelChange:      s.LevelChange(),
		DurationMillis:   s.DurationMillis(now),
		AverageCurrentMa: roundHalfUp(s.AverageCurrentMa(), 2),
	}
}
