package source

import (
	"math"

	"github.com/distatus/battery"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Distatus reads the first battery through github.com/distatus/battery. It
// works on every platform that library supports, at the cost of fewer
// counters than sysfs: no cycle count, no temperature, no average current.
type Distatus struct {
	getAll func() ([]*battery.Battery, error)
}

var _ Source = &Distatus{}

func NewDistatus() *Distatus {
	return &Distatus{getAll: battery.GetAll}
}

func (d *Distatus) get() (*battery.Battery, error) {
	batteries, err := d.getAll()
	if len(batteries) == 0 || batteries[0] == nil {
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to get battery info")
		}
		return nil, ErrNoBattery
	}
	if err != nil {
		// Partial reads still carry useful fields.
		logrus.WithError(err).Trace("partial battery info")
	}
	return batteries[0], nil
}

// CurrentNow derives the current from charge rate and voltage. The result is
// in µA.
func (d *Distatus) CurrentNow() (int64, error) {
	bat, err := d.get()
	if err != nil {
		return 0, err
	}
	if bat.Voltage <= 0 {
		return 0, ErrUnsupported
	}
	// mW / V = mA
	ua := int64(math.Round(bat.ChargeRate / bat.Voltage * 1000))
	if bat.State == battery.Discharging {
		ua = -ua
	}
	return ua, nil
}

func (d *Distatus) CurrentAverage() (int64, error) {
	return d.CurrentNow()
}

func (d *Distatus) ChargeCounter() (int64, error) {
	bat, err := d.get()
	if err != nil {
		return 0, err
	}
	if bat.Voltage <= 0 {
		return 0, ErrUnsupported
	}
	// mWh / V = mAh
	return int64(math.Round(bat.Current / bat.Voltage * 1000)), nil
}

func (d *Distatus) EnergyCounter() (int64, error) {
	bat, err := d.get()
	if err != nil {
		return 0, err
	}
	// mWh to nWh
	return int64(math.Round(bat.Current * 1e6)), nil
}

func (d *Distatus) CycleCount() (int, error) {
	return 0, ErrUnsupported
}

func (d *Distatus) Capacity() (int, error) {
	bat, err := d.get()
	if err != nil {
		return 0, err
	}
	if bat.Design <= 0 || bat.DesignVoltage <= 0 {
		return 0, ErrUnsupported
	}
	return int(math.Round(bat.Design / bat.DesignVoltage)), nil
}

func (d *Distatus) BatteryChanged() (Reading, error) {
	bat, err := d.get()
	if err != nil {
		return Reading{}, err
	}

	r := Reading{
		// The normalizer turns current/full energy into a percentage.
		Level:  int(math.Round(bat.Current)),
		Scale:  int(math.Round(bat.Full)),
		Health: HealthUnknown,
	}

	switch bat.State {
	case battery.Charging:
		r.Status = StatusCharging
		r.Plugged = PluggedAC
	case battery.Full:
		r.Status = StatusFull
		r.Plugged = PluggedAC
	case battery.Discharging, battery.Empty:
		r.Status = StatusDischarging
		r.Plugged = PluggedNone
	default:
		r.Status = StatusUnknown
	}

	if bat.Voltage > 0 {
		mv := int(math.Round(bat.Voltage * 1000))
		r.Voltage = &mv
	}

	return r, nil
}
