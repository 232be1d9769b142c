package telemetry

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultCurrentThreshold is the magnitude below which a raw current is
// taken to be mA already. Devices disagree on whether current_now is µA or
// mA, and there is no reliable way to ask.
const DefaultCurrentThreshold = 1000

// Normalizer converts raw source units to display units. Its zero value
// uses DefaultCurrentThreshold.
type Normalizer struct {
	CurrentThreshold int64
}

func (n Normalizer) threshold() int64 {
	if n.CurrentThreshold <= 0 {
		return DefaultCurrentThreshold
	}
	return n.CurrentThreshold
}

// Current converts a raw current reading to mA with two decimals. Raw
// values with a magnitude under the threshold are already mA; anything else
// is µA.
func (n Normalizer) Current(raw int64) float64 {
	if abs64(raw) < n.threshold() {
		return decimal.NewFromInt(raw).Round(2).InexactFloat64()
	}
	return decimal.New(raw, -3).Round(2).InexactFloat64()
}

// ChargeCounterMah converts µAh to mAh with one decimal. Nil when the
// counter is not positive.
func ChargeCounterMah(raw int64) *float64 {
	if raw <= 0 {
		return nil
	}
	v := decimal.New(raw, -3).Round(1).InexactFloat64()
	return &v
}

// EnergyCounterWh converts nWh to Wh with two decimals. Nil when the counter
// is not positive.
func EnergyCounterWh(raw int64) *float64 {
	if raw <= 0 {
		return nil
	}
	v := decimal.New(raw, -9).Round(2).InexactFloat64()
	return &v
}

// CycleCount drops non-positive counts.
func CycleCount(raw int) *int {
	if raw <= 0 {
		return nil
	}
	return &raw
}

// Temperature converts tenths of a degree Celsius to Celsius and Fahrenheit.
func Temperature(tenths int) (celsius, fahrenheit float64) {
	celsius = decimal.New(int64(tenths), -1).InexactFloat64()
	fahrenheit = decimal.New(int64(tenths), -1).
		Mul(decimal.NewFromInt(9)).
		Div(decimal.NewFromInt(5)).
		Add(decimal.NewFromInt(32)).
		InexactFloat64()
	return celsius, fahrenheit
}

// Voltage converts mV to V with two decimals.
func Voltage(mv int) float64 {
	return decimal.New(int64(mv), -3).Round(2).InexactFloat64()
}

// Level converts a (level, scale) pair to a percentage in [0, 100]. A
// non-positive scale means the reading carries no level and previous is
// returned unchanged.
func Level(level, scale, previous int) int {
	if scale <= 0 {
		return previous
	}
	pct := decimal.NewFromInt(int64(level)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(scale))).
		Round(0).
		IntPart()
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return int(pct)
	}
}

// PowerWatts is volts * |mA| / 1000 with two decimals.
func PowerWatts(volts, currentMa float64) float64 {
	return decimal.NewFromFloat(volts).
		Mul(decimal.NewFromFloat(math.Abs(currentMa))).
		Div(decimal.NewFromInt(1000)).
		Round(2).
		InexactFloat64()
}

// roundHalfUp rounds v to places decimals, halves away from zero.
func roundHalfUp(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
