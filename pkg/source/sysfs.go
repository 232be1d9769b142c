package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultSysfsRoot is where Linux exposes power supplies.
const DefaultSysfsRoot = "/sys/class/power_supply"

// Sysfs reads the first battery found under a power_supply class directory.
type Sysfs struct {
	root    string
	battery string
}

var _ Source = &Sysfs{}

// NewSysfs locates a battery under root. An empty root means DefaultSysfsRoot.
func NewSysfs(root string) (*Sysfs, error) {
	if root == "" {
		root = DefaultSysfsRoot
	}

	ents, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoBattery
		}
		return nil, fmt.Errorf("failed to read %s: %w", root, err)
	}

	for _, ent := range ents {
		dir := filepath.Join(root, ent.Name())
		typ, err := readTrimmed(filepath.Join(dir, "type"))
		if err != nil {
			continue
		}
		if strings.EqualFold(typ, "battery") {
			logrus.WithFields(logrus.Fields{
				"root":    root,
				"battery": ent.Name(),
			}).Debug("found sysfs battery")
			return &Sysfs{root: root, battery: dir}, nil
		}
	}

	return nil, ErrNoBattery
}

// Name returns the power supply name of the battery, e.g. BAT0.
func (s *Sysfs) Name() string {
	return filepath.Base(s.battery)
}

func (s *Sysfs) CurrentNow() (int64, error) {
	v, err := s.readInt("current_now")
	if errors.Is(err, ErrUnsupported) {
		// Energy based gauges only report power. µW / V = µA.
		v, err = s.currentFromPower()
	}
	if err != nil {
		return 0, err
	}
	return s.signed(v), nil
}

func (s *Sysfs) CurrentAverage() (int64, error) {
	v, err := s.readInt("current_avg")
	if errors.Is(err, ErrUnsupported) {
		return s.CurrentNow()
	}
	if err != nil {
		return 0, err
	}
	return s.signed(v), nil
}

func (s *Sysfs) ChargeCounter() (int64, error) {
	v, err := s.readInt("charge_counter")
	if errors.Is(err, ErrUnsupported) {
		return s.readInt("charge_now")
	}
	return v, err
}

func (s *Sysfs) EnergyCounter() (int64, error) {
	// sysfs reports µWh.
	v, err := s.readInt("energy_now")
	if err != nil {
		return 0, err
	}
	return v * 1000, nil
}

func (s *Sysfs) CycleCount() (int, error) {
	v, err := s.readInt("cycle_count")
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func (s *Sysfs) Capacity() (int, error) {
	chargeFull, err := s.readInt("charge_full_design")
	if err == nil && chargeFull > 0 {
		return int(chargeFull / 1000), nil
	}

	energyFull, err := s.readInt("energy_full_design")
	if err != nil {
		return 0, err
	}
	voltageMin, err := s.readInt("voltage_min_design")
	if err != nil {
		return 0, err
	}
	if energyFull <= 0 || voltageMin <= 0 {
		return 0, ErrUnsupported
	}
	// µWh / µV = Ah
	return int(float64(energyFull) / float64(voltageMin) * 1000), nil
}

func (s *Sysfs) BatteryChanged() (Reading, error) {
	r := Reading{
		Scale:   100,
		Status:  StatusUnknown,
		Health:  HealthUnknown,
		Plugged: s.plugged(),
	}

	capacity, err := s.readInt("capacity")
	switch {
	case err == nil:
		r.Level = int(capacity)
	case errors.Is(err, ErrUnsupported):
		now, errNow := s.readInt("charge_now")
		full, errFull := s.readInt("charge_full")
		if errNow != nil || errFull != nil {
			// Leaves the level to the previous state.
			r.Scale = 0
			break
		}
		r.Level = int(now)
		r.Scale = int(full)
	default:
		return Reading{}, err
	}

	if st, err := readTrimmed(filepath.Join(s.battery, "status")); err == nil {
		r.Status = parseStatus(st)
	}
	if h, err := readTrimmed(filepath.Join(s.battery, "health")); err == nil {
		r.Health = parseHealth(h)
	}
	if tech, err := readTrimmed(filepath.Join(s.battery, "technology")); err == nil {
		r.Technology = tech
	}
	if temp, err := s.readInt("temp"); err == nil {
		t := int(temp)
		r.Temperature = &t
	}
	if uv, err := s.readInt("voltage_now"); err == nil {
		mv := int(uv / 1000)
		r.Voltage = &mv
	}

	return r, nil
}

func (s *Sysfs) currentFromPower() (int64, error) {
	power, err := s.readInt("power_now")
	if err != nil {
		return 0, err
	}
	voltage, err := s.readInt("voltage_now")
	if err != nil {
		return 0, err
	}
	if voltage <= 0 {
		return 0, ErrUnsupported
	}
	return int64(float64(power) / (float64(voltage) / 1e6)), nil
}

// signed makes discharging currents negative. Most laptop drivers report
// magnitudes and leave the direction to the status file.
func (s *Sysfs) signed(v int64) int64 {
	st, err := readTrimmed(filepath.Join(s.battery, "status"))
	if err != nil {
		return v
	}
	if parseStatus(st) == StatusDischarging && v > 0 {
		return -v
	}
	return v
}

func (s *Sysfs) plugged() int {
	ents, err := os.ReadDir(s.root)
	if err != nil {
		return PluggedNone
	}
	for _, ent := range ents {
		dir := filepath.Join(s.root, ent.Name())
		online, err := readTrimmed(filepath.Join(dir, "online"))
		if err != nil || online != "1" {
			continue
		}
		typ, _ := readTrimmed(filepath.Join(dir, "type"))
		switch strings.ToLower(typ) {
		case "mains":
			return PluggedAC
		case "usb", "usb_c", "usb_pd":
			return PluggedUSB
		case "wireless":
			return PluggedWireless
		}
	}
	return PluggedNone
}

func (s *Sysfs) readInt(name string) (int64, error) {
	str, err := readTrimmed(filepath.Join(s.battery, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrUnsupported
		}
		return 0, err
	}
	v, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return v, nil
}

func readTrimmed(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func parseStatus(s string) int {
	switch strings.ToLower(s) {
	case "charging":
		return StatusCharging
	case "discharging":
		return StatusDischarging
	case "not charging":
		return StatusNotCharging
	case "full":
		return StatusFull
	default:
		return StatusUnknown
	}
}

func parseHealth(s string) int {
	switch strings.ToLower(s) {
	case "good":
		return HealthGood
	case "overheat", "hot":
		return HealthOverheat
	case "dead":
		return HealthDead
	case "over voltage":
		return HealthOverVoltage
	case "unspecified failure":
		return HealthUnspecifiedFailure
	case "cold":
		return HealthCold
	default:
		return HealthUnknown
	}
}
