// Package source provides raw battery readings in the units the platform
// reports them in. Conversion to display units happens in pkg/telemetry.
package source

import "errors"

// ErrUnsupported is returned when the platform cannot provide a counter.
var ErrUnsupported = errors.New("unsupported by battery source")

// ErrNoBattery is returned when no battery could be found.
var ErrNoBattery = errors.New("no battery found")

// Battery status codes carried in Reading.Status.
const (
	StatusUnknown     = 1
	StatusCharging    = 2
	StatusDischarging = 3
	StatusNotCharging = 4
	StatusFull        = 5
)

// Plug codes carried in Reading.Plugged. Zero means on battery.
const (
	PluggedNone     = 0
	PluggedAC       = 1
	PluggedUSB      = 2
	PluggedWireless = 4
)

// Health codes carried in Reading.Health.
const (
	HealthUnknown            = 1
	HealthGood               = 2
	HealthOverheat           = 3
	HealthDead               = 4
	HealthOverVoltage        = 5
	HealthUnspecifiedFailure = 6
	HealthCold               = 7
)

// Reading is one "battery changed" observation.
type Reading struct {
	Level      int    `json:"level"`
	Scale      int    `json:"scale"`
	Status     int    `json:"status"`
	Plugged    int    `json:"plugged"`
	Health     int    `json:"health"`
	Technology string `json:"technology,omitempty"`
	// Temperature in tenths of a degree Celsius. Nil when unknown.
	Temperature *int `json:"temperature,omitempty"`
	// Voltage in millivolts. Nil when unknown.
	Voltage *int `json:"voltage,omitempty"`
}

// Source is a pull-style battery sample source.
//
// Currents are signed (negative while discharging) in either µA or mA,
// depending on the device. Counters that the platform does not expose
// return ErrUnsupported.
type Source interface {
	CurrentNow() (int64, error)
	CurrentAverage() (int64, error)
	// ChargeCounter returns the remaining charge in µAh.
	ChargeCounter() (int64, error)
	// EnergyCounter returns the remaining energy in nWh.
	EnergyCounter() (int64, error)
	CycleCount() (int, error)
	// Capacity returns the design capacity in mAh.
	Capacity() (int, error)
	BatteryChanged() (Reading, error)
}

// Notifier is implemented by sources that can push readings as they happen.
type Notifier interface {
	// Notify registers fn and returns a function that unregisters it.
	Notify(fn func(Reading)) (cancel func())
}
