package client

import (
	"encoding/json"
	"net/url"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/ahmmedrejowan/chargify/pkg/alarm"
	"github.com/ahmmedrejowan/chargify/pkg/config"
	"github.com/ahmmedrejowan/chargify/pkg/storage"
	"github.com/ahmmedrejowan/chargify/pkg/telemetry"
)

func getJSON[T any](c *Client, path string, what string) (T, error) {
	var v T
	ret, err := c.Get(path)
	if err != nil {
		return v, pkgerrors.Wrapf(err, "failed to get %s", what)
	}
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return v, pkgerrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return v, nil
}

func (c *Client) GetVersion() (string, error) {
	return getJSON[string](c, "/version", "version")
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	conf, err := getJSON[config.RawFileConfig](c, "/config", "config")
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Client) GetState() (*telemetry.BatteryState, error) {
	state, err := getJSON[telemetry.BatteryState](c, "/state", "battery state")
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) GetHistories() (*telemetry.Histories, error) {
	h, err := getJSON[telemetry.Histories](c, "/history", "history")
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) GetHistory(m telemetry.Metric) ([]float64, error) {
	return getJSON[[]float64](c, "/history/"+url.PathEscape(string(m)), string(m)+" history")
}

// GetSession returns the session in progress. It wraps ErrNotFound when the
// daemon has no reading yet.
func (c *Client) GetSession() (*telemetry.SessionSummary, error) {
	s, err := getJSON[telemetry.SessionSummary](c, "/session", "current session")
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SessionQuery filters GetSessions. A negative Limit means no limit.
type SessionQuery struct {
	Limit int
	Today bool
}

func (c *Client) GetSessions(q SessionQuery) ([]storage.ChargingSession, error) {
	v := url.Values{}
	if q.Limit >= 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Today {
		v.Set("today", "true")
	}
	path := "/sessions"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	return getJSON[[]storage.ChargingSession](c, path, "sessions")
}

func (c *Client) DeleteSession(id int64) (string, error) {
	return c.Delete("/sessions/" + strconv.FormatInt(id, 10))
}

func (c *Client) ClearSessions() (string, error) {
	return c.Delete("/sessions")
}

func (c *Client) GetAlarms() (*alarm.Settings, error) {
	s, err := getJSON[alarm.Settings](c, "/alarms", "alarm settings")
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SetAlarms sends a full or partial settings document and returns the
// settings now in effect.
func (c *Client) SetAlarms(patch map[string]any) (*alarm.Settings, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	ret, err := c.Put("/alarms", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to set alarms")
	}
	var s alarm.Settings
	if err := json.Unmarshal([]byte(ret), &s); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal alarm settings")
	}
	return &s, nil
}
