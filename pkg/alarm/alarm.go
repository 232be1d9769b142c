// Package alarm decides when the battery level deserves a notification.
package alarm

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Kind identifies which alarm fired.
type Kind string

const (
	KindFullCharge Kind = "full_charge"
	KindLowBattery Kind = "low_battery"
	KindCustom     Kind = "custom"
)

// Levels at which the last notified level is forgotten so the same
// level can notify again on the next cycle.
const (
	resetWhileDischarging = 80
	resetWhileCharging    = 30
)

// Alarm is one triggered notification.
type Alarm struct {
	Kind       Kind   `json:"kind"`
	Level      int    `json:"level"`
	Threshold  int    `json:"threshold"`
	IsCharging bool   `json:"isCharging"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Sound      bool   `json:"sound"`
	Vibration  bool   `json:"vibration"`
}

// Notifier delivers triggered alarms.
type Notifier interface {
	Notify(a Alarm)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(a Alarm)

func (f NotifierFunc) Notify(a Alarm) { f(a) }

// Evaluator checks battery levels against Settings. It is safe for
// concurrent use.
type Evaluator struct {
	mu        sync.Mutex
	settings  Settings
	state     StateStore
	notifiers []Notifier
	last      *int
}

// NewEvaluator loads the last notified level from state.
func NewEvaluator(settings Settings, state StateStore, notifiers ...Notifier) (*Evaluator, error) {
	if state == nil {
		state = &MemoryState{}
	}
	last, err := state.LoadLastNotified()
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		settings:  settings,
		state:     state,
		notifiers: notifiers,
		last:      last,
	}, nil
}

func (e *Evaluator) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

func (e *Evaluator) SetSettings(s Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
}

// LastNotified returns the level that last triggered, or nil.
func (e *Evaluator) LastNotified() *int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return nil
	}
	v := *e.last
	return &v
}

// Evaluate checks level and returns the alarms that fired, after handing
// them to every notifier. A level already notified never fires twice in a
// row.
func (e *Evaluator) Evaluate(level int, isCharging bool) []Alarm {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.settings
	if !s.Enabled {
		return nil
	}

	previous := e.last
	if previous != nil && *previous == level {
		return nil
	}

	var fired []Alarm
	if s.FullCharge.Enabled && isCharging && level >= s.FullCharge.Threshold {
		fired = append(fired, e.newAlarm(KindFullCharge, level, s.FullCharge.Threshold, isCharging))
	}
	if s.LowBattery.Enabled && !isCharging && level <= s.LowBattery.Threshold {
		fired = append(fired, e.newAlarm(KindLowBattery, level, s.LowBattery.Threshold, isCharging))
	}
	if s.Custom.Enabled && isCharging && level >= s.Custom.Threshold {
		fired = append(fired, e.newAlarm(KindCustom, level, s.Custom.Threshold, isCharging))
	}

	next := previous
	if len(fired) > 0 {
		next = &level
	}
	if previous != nil {
		if (!isCharging && *previous >= resetWhileDischarging) || (isCharging && *previous <= resetWhileCharging) {
			next = nil
		}
	}
	e.setLast(next)

	for _, a := range fired {
		for _, n := range e.notifiers {
			n.Notify(a)
		}
	}
	return fired
}

func (e *Evaluator) setLast(level *int) {
	if level == e.last || (level != nil && e.last != nil && *level == *e.last) {
		return
	}
	e.last = level
	if err := e.state.SaveLastNotified(level); err != nil {
		logrus.Warnf("failed to save alarm state: %v", err)
	}
}

func (e *Evaluator) newAlarm(kind Kind, level, threshold int, isCharging bool) Alarm {
	a := Alarm{
		Kind:       kind,
		Level:      level,
		Threshold:  threshold,
		IsCharging: isCharging,
		Sound:      e.settings.Sound,
		Vibration:  e.settings.Vibration,
	}
	switch kind {
	case KindFullCharge:
		a.Title = "Battery Full"
		a.Message = fmt.Sprintf("Battery is at %d%%. You can unplug your charger now.", level)
	case KindLowBattery:
		a.Title = "Low Battery"
		a.Message = fmt.Sprintf("Battery is at %d%%. Please charge your device.", level)
	default:
		a.Title = "Battery Alert"
		if isCharging {
			a.Message = fmt.Sprintf("Battery reached %d%%. Consider unplugging to preserve battery health.", level)
		} else {
			a.Message = fmt.Sprintf("Battery is at %d%%.", level)
		}
	}
	return a
}
