package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/distatus/battery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSupply(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for k, v := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, k), []byte(v+"\n"), 0644))
	}
}

func newFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSupply(t, root, "AC", map[string]string{
		"type":   "Mains",
		"online": "1",
	})
	writeSupply(t, root, "BAT0", map[string]string{
		"type":               "Battery",
		"status":             "Discharging",
		"capacity":           "57",
		"current_now":        "1250000",
		"charge_now":         "2500000",
		"charge_full_design": "4000000",
		"cycle_count":        "321",
		"voltage_now":        "11820000",
		"temp":               "312",
		"health":             "Good",
		"technology":         "Li-ion",
	})
	return root
}

func TestNewSysfs(t *testing.T) {
	t.Run("finds battery", func(t *testing.T) {
		s, err := NewSysfs(newFixture(t))
		require.NoError(t, err)
		assert.Equal(t, "BAT0", s.Name())
	})

	t.Run("no battery", func(t *testing.T) {
		root := t.TempDir()
		writeSupply(t, root, "AC", map[string]string{"type": "Mains"})
		_, err := NewSysfs(root)
		assert.ErrorIs(t, err, ErrNoBattery)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := NewSysfs(filepath.Join(t.TempDir(), "nope"))
		assert.ErrorIs(t, err, ErrNoBattery)
	})
}

func TestSysfsCounters(t *testing.T) {
	s, err := NewSysfs(newFixture(t))
	require.NoError(t, err)

	cur, err := s.CurrentNow()
	require.NoError(t, err)
	assert.Equal(t, int64(-1250000), cur, "discharging current is negative")

	avg, err := s.CurrentAverage()
	require.NoError(t, err)
	assert.Equal(t, cur, avg, "falls back to current_now")

	charge, err := s.ChargeCounter()
	require.NoError(t, err)
	assert.Equal(t, int64(2500000), charge)

	_, err = s.EnergyCounter()
	assert.ErrorIs(t, err, ErrUnsupported)

	cycles, err := s.CycleCount()
	require.NoError(t, err)
	assert.Equal(t, 321, cycles)

	capacity, err := s.Capacity()
	require.NoError(t, err)
	assert.Equal(t, 4000, capacity)
}

func TestSysfsCurrentFromPower(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "BAT1", map[string]string{
		"type":        "Battery",
		"status":      "Charging",
		"capacity":    "80",
		"power_now":   "12000000",
		"voltage_now": "12000000",
	})
	s, err := NewSysfs(root)
	require.NoError(t, err)

	cur, err := s.CurrentNow()
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), cur)
}

func TestSysfsBatteryChanged(t *testing.T) {
	s, err := NewSysfs(newFixture(t))
	require.NoError(t, err)

	r, err := s.BatteryChanged()
	require.NoError(t, err)

	assert.Equal(t, 57, r.Level)
	assert.Equal(t, 100, r.Scale)
	assert.Equal(t, StatusDischarging, r.Status)
	assert.Equal(t, PluggedAC, r.Plugged)
	assert.Equal(t, HealthGood, r.Health)
	assert.Equal(t, "Li-ion", r.Technology)
	require.NotNil(t, r.Temperature)
	assert.Equal(t, 312, *r.Temperature)
	require.NotNil(t, r.Voltage)
	assert.Equal(t, 11820, *r.Voltage)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"Charging", StatusCharging},
		{"Discharging", StatusDischarging},
		{"Not charging", StatusNotCharging},
		{"Full", StatusFull},
		{"Unknown", StatusUnknown},
		{"", StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseStatus(tt.in); got != tt.want {
				t.Errorf("parseStatus(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDistatus(t *testing.T) {
	d := &Distatus{getAll: func() ([]*battery.Battery, error) {
		return []*battery.Battery{{
			State:         battery.Discharging,
			Current:       30000,
			Full:          60000,
			Design:        66000,
			ChargeRate:    12000,
			Voltage:       12,
			DesignVoltage: 11,
		}}, nil
	}}

	cur, err := d.CurrentNow()
	require.NoError(t, err)
	assert.Equal(t, int64(-1000000), cur)

	capacity, err := d.Capacity()
	require.NoError(t, err)
	assert.Equal(t, 6000, capacity)

	_, err = d.CycleCount()
	assert.ErrorIs(t, err, ErrUnsupported)

	r, err := d.BatteryChanged()
	require.NoError(t, err)
	assert.Equal(t, 30000, r.Level)
	assert.Equal(t, 60000, r.Scale)
	assert.Equal(t, StatusDischarging, r.Status)
	assert.Equal(t, PluggedNone, r.Plugged)
	require.NotNil(t, r.Voltage)
	assert.Equal(t, 12000, *r.Voltage)

	empty := &Distatus{getAll: func() ([]*battery.Battery, error) { return nil, nil }}
	_, err = empty.BatteryChanged()
	assert.ErrorIs(t, err, ErrNoBattery)
}
