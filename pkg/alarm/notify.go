package alarm

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ahmmedrejowan/chargify/pkg/events"
	"github.com/ahmmedrejowan/chargify/pkg/metrics"
)

// LogNotifier writes triggered alarms to a logger.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func (n LogNotifier) Notify(a Alarm) {
	logger := n.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{
		"kind":       a.Kind,
		"level":      a.Level,
		"threshold":  a.Threshold,
		"isCharging": a.IsCharging,
	}).Infof("%s: %s", a.Title, a.Message)
}

// HubNotifier publishes triggered alarms as alarm.triggered events.
type HubNotifier struct {
	Hub *events.EventHub
	Now func() time.Time
}

func (n HubNotifier) Notify(a Alarm) {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	metrics.AlarmsTriggered.WithLabelValues(string(a.Kind)).Inc()
	n.Hub.Publish(events.AlarmTriggered, events.AlarmEvent{
		Kind:       string(a.Kind),
		Level:      a.Level,
		Threshold:  a.Threshold,
		IsCharging: a.IsCharging,
		Title:      a.Title,
		Message:    a.Message,
		Sound:      a.Sound,
		Vibration:  a.Vibration,
		Ts:         now().UnixMilli(),
	})
}
