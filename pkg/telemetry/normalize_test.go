package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_Current(t *testing.T) {
	tests := []struct {
		name      string
		threshold int64
		raw       int64
		want      float64
	}{
		{"microamps discharging", 0, -150000, -150.00},
		{"milliamps discharging", 0, -500, -500},
		{"milliamps charging", 0, 999, 999},
		{"at threshold is microamps", 0, 1000, 1},
		{"rounds half up", 0, 1234567, 1234.57},
		{"rounds half away from zero", 0, -1234565, -1234.57},
		{"zero", 0, 0, 0},
		{"custom threshold keeps mA", 10000, 5000, 5000},
		{"custom threshold scales", 10000, 20000, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalizer{CurrentThreshold: tt.threshold}
			if got := n.Current(tt.raw); got != tt.want {
				t.Errorf("Current(%d) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    int
		scale    int
		previous int
		want     int
	}{
		{"percent scale", 57, 100, 0, 57},
		{"half rounds up", 1, 200, 0, 1},
		{"thirds", 2, 3, 0, 67},
		{"energy scale", 30000, 60000, 0, 50},
		{"zero scale keeps previous", 10, 0, 42, 42},
		{"negative scale keeps previous", 10, -1, 42, 42},
		{"clamped high", 120, 100, 0, 100},
		{"clamped low", -5, 100, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Level(tt.level, tt.scale, tt.previous); got != tt.want {
				t.Errorf("Level(%d, %d, %d) = %d, want %d", tt.level, tt.scale, tt.previous, got, tt.want)
			}
		})
	}
}

func TestLevelStaysInRange(t *testing.T) {
	for scale := 1; scale <= 250; scale++ {
		for level := 0; level <= scale; level++ {
			got := Level(level, scale, -1)
			if got < 0 || got > 100 {
				t.Fatalf("Level(%d, %d) = %d out of range", level, scale, got)
			}
		}
	}
}

func TestCounters(t *testing.T) {
	charge := ChargeCounterMah(2_512_345)
	require.NotNil(t, charge)
	assert.Equal(t, 2512.3, *charge)
	assert.Nil(t, ChargeCounterMah(0))
	assert.Nil(t, ChargeCounterMah(-1))

	energy := EnergyCounterWh(45_678_900_000)
	require.NotNil(t, energy)
	assert.Equal(t, 45.68, *energy)
	assert.Nil(t, EnergyCounterWh(0))

	cycles := CycleCount(321)
	require.NotNil(t, cycles)
	assert.Equal(t, 321, *cycles)
	assert.Nil(t, CycleCount(0))
}

func TestTemperature(t *testing.T) {
	c, f := Temperature(312)
	assert.Equal(t, 31.2, c)
	assert.InDelta(t, 88.16, f, 1e-9)

	c, f = Temperature(-100)
	assert.Equal(t, -10.0, c)
	assert.InDelta(t, 14.0, f, 1e-9)
}

func TestVoltage(t *testing.T) {
	assert.Equal(t, 11.82, Voltage(11820))
	assert.Equal(t, 3.86, Voltage(3855))
	assert.Equal(t, 0.0, Voltage(0))
}

func TestPowerWatts(t *testing.T) {
	assert.Equal(t, 1.93, PowerWatts(3.86, -500))
	assert.Equal(t, 17.73, PowerWatts(11.82, 1500))
	assert.Equal(t, 0.0, PowerWatts(12, 0))
}
