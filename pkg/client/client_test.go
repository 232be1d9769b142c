package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmmedrejowan/chargify/pkg/alarm"
	"github.com/ahmmedrejowan/chargify/pkg/events"
	"github.com/ahmmedrejowan/chargify/pkg/storage"
	"github.com/ahmmedrejowan/chargify/pkg/telemetry"
)

// serveUnix serves h on a unix socket in a temp dir and returns its path.
func serveUnix(t *testing.T, h http.Handler) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "chargify")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	path := filepath.Join(dir, "d.sock")
	l, err := net.Listen("unix", path)
	require.NoError(t, err)

	srv := &http.Server{Handler: h}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })
	return path
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_DaemonNotRunning(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	_, err := c.GetVersion()
	assert.ErrorIs(t, err, ErrDaemonNotRunning)
}

func TestClient_Errors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /session", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, "no battery reading yet")
	})
	mux.HandleFunc("DELETE /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, "disk on fire")
	})
	c := NewClient(serveUnix(t, mux))

	_, err := c.GetSession()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "no battery reading yet")

	_, err = c.DeleteSession(3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 500: disk on fire")
}

func TestClient_APIs(t *testing.T) {
	var gotQuery string
	var gotAlarmBody map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, "v1.2.3")
	})
	mux.HandleFunc("GET /state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, telemetry.BatteryState{ChargeLevel: 77, IsCharging: true})
	})
	mux.HandleFunc("GET /history/{metric}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []float64{1, 2, 3})
	})
	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, []storage.ChargingSession{{ID: 9, StartLevel: 10, EndLevel: 50}})
	})
	mux.HandleFunc("DELETE /sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, "cleared all charging sessions")
	})
	mux.HandleFunc("PUT /alarms", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotAlarmBody)
		s := alarm.DefaultSettings()
		s.LowBattery.Enabled = true
		writeJSON(w, http.StatusCreated, s)
	})
	c := NewClient(serveUnix(t, mux))

	v, err := c.GetVersion()
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", v)

	state, err := c.GetState()
	require.NoError(t, err)
	assert.Equal(t, 77, state.ChargeLevel)

	h, err := c.GetHistory(telemetry.MetricPower)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, h)

	sessions, err := c.GetSessions(SessionQuery{Limit: 5, Today: true})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 40, sessions[0].LevelChange())
	assert.Equal(t, "limit=5&today=true", gotQuery)

	_, err = c.GetSessions(SessionQuery{Limit: -1})
	require.NoError(t, err)
	assert.Empty(t, gotQuery)

	msg, err := c.ClearSessions()
	require.NoError(t, err)
	assert.Contains(t, msg, "cleared")

	s, err := c.SetAlarms(map[string]any{"lowBattery": map[string]any{"enabled": true}})
	require.NoError(t, err)
	assert.True(t, s.LowBattery.Enabled)
	assert.Equal(t, map[string]any{"lowBattery": map[string]any{"enabled": true}}, gotAlarmBody)
}

func TestClient_SubscribeEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "event:battery.state\ndata:{\"chargeLevel\":42}\n\n")
		fmt.Fprint(w, "event:alarm.triggered\ndata:{\"kind\":\"custom\"}\n\n")
		fmt.Fprint(w, "event:battery.state\ndata:{\"chargeLevel\":43}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	c := NewClient(serveUnix(t, mux))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []events.Event
	err := c.SubscribeEvents(ctx, func(ev events.Event) bool {
		got = append(got, ev)
		return len(got) < 2
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, events.BatteryState, got[0].Name)
	state, err := events.DecodeAs[telemetry.BatteryState](got[0])
	require.NoError(t, err)
	assert.Equal(t, 42, state.ChargeLevel)

	assert.Equal(t, events.AlarmTriggered, got[1].Name)
	a, err := events.DecodeAs[events.AlarmEvent](got[1])
	require.NoError(t, err)
	assert.Equal(t, "custom", a.Kind)
}
