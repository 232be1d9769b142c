package telemetry

import (
	"fmt"
	"math"

	"github.com/ahmmedrejowan/chargify/pkg/source"
)

// ChargeSpeedLabel names the charging speed for a current in mA.
func ChargeSpeedLabel(currentMa float64) string {
	c := math.Abs(currentMa)
	switch {
	case c >= 3000:
		return "Rapid Charging"
	case c >= 1500:
		return "Fast Charging"
	case c >= 500:
		return "Charging"
	case c > 0:
		return "Slow Charging"
	default:
		return "Charging"
	}
}

// HealthLabel names a raw health code.
func HealthLabel(code int) string {
	switch code {
	case source.HealthGood:
		return "Good"
	case source.HealthOverheat:
		return "Overheat"
	case source.HealthDead:
		return "Dead"
	case source.HealthOverVoltage:
		return "Over Voltage"
	case source.HealthUnspecifiedFailure:
		return "Failure"
	case source.HealthCold:
		return "Cold"
	default:
		return "Unknown"
	}
}

// LevelBand groups charge levels for alerts and colouring.
type LevelBand string

const (
	LevelCritical LevelBand = "CRITICAL"
	LevelWarning  LevelBand = "WARNING"
	LevelNormal   LevelBand = "NORMAL"
)

// LevelBandOf classifies a charge level.
func LevelBandOf(level int) LevelBand {
	switch {
	case level <= 10:
		return LevelCritical
	case level <= 30:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// FormatDuration renders milliseconds as "2 hr 5 min" or "42 min". Nil or
// non-positive durations render as "N/A".
func FormatDuration(millis *int64) string {
	if millis == nil || *millis <= 0 {
		return "N/A"
	}
	totalMinutes := *millis / 60_000
	hours := totalMinutes / 60
	minutes := totalMinutes % 60
	if hours > 0 {
		return fmt.Sprintf("%d hr %d min", hours, minutes)
	}
	return fmt.Sprintf("%d min", minutes)
}
