package events

import "encoding/json"

// Event names published by the daemon.
const (
	// BatteryState carries a telemetry.BatteryState.
	BatteryState = "battery.state"
	// BatteryHistory carries telemetry.Histories.
	BatteryHistory = "battery.history"
	// SessionStats carries the telemetry.SessionStats in progress.
	SessionStats = "session.stats"
	// SessionFinalized carries a storage.ChargingSession before it is saved.
	SessionFinalized = "session.finalized"
	// SessionSaved carries a storage.ChargingSession with its assigned ID.
	SessionSaved = "session.saved"
	// AlarmTriggered carries an AlarmEvent.
	AlarmTriggered = "alarm.triggered"
)

// Event is a named JSON payload, as sent over SSE.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// AlarmEvent is the payload of alarm.triggered.
type AlarmEvent struct {
	Kind       string `json:"kind"`
	Level      int    `json:"level"`
	Threshold  int    `json:"threshold"`
	IsCharging bool   `json:"isCharging"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Sound      bool   `json:"sound"`
	Vibration  bool   `json:"vibration"`
	Ts         int64  `json:"ts"`
}

// DecodeAs unmarshals the payload of e into T. An empty payload yields the
// zero value of T.
//
//	state, err := events.DecodeAs[telemetry.BatteryState](ev)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
