package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmmedrejowan/chargify/pkg/alarm"
	"github.com/ahmmedrejowan/chargify/pkg/config"
	"github.com/ahmmedrejowan/chargify/pkg/events"
	"github.com/ahmmedrejowan/chargify/pkg/source"
	"github.com/ahmmedrejowan/chargify/pkg/storage"
	"github.com/ahmmedrejowan/chargify/pkg/storage/bolt"
	"github.com/ahmmedrejowan/chargify/pkg/telemetry"
	"github.com/ahmmedrejowan/chargify/pkg/utils/ptr"
)

var now = time.Date(2026, 10, 17, 15, 0, 0, 0, time.Local)

type stubSource struct {
	reading source.Reading
	current int64
}

func (s *stubSource) CurrentNow() (int64, error)              { return s.current, nil }
func (s *stubSource) CurrentAverage() (int64, error)          { return s.current, nil }
func (s *stubSource) ChargeCounter() (int64, error)           { return 2_500_000, nil }
func (s *stubSource) EnergyCounter() (int64, error)           { return 0, source.ErrUnsupported }
func (s *stubSource) CycleCount() (int, error)                { return 120, nil }
func (s *stubSource) Capacity() (int, error)                  { return 5000, nil }
func (s *stubSource) BatteryChanged() (source.Reading, error) { return s.reading, nil }

type testServer struct {
	*server
	router   http.Handler
	src      *stubSource
	confPath string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	store, err := bolt.Open(filepath.Join(dir, "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	confPath := filepath.Join(dir, "chargify.json")
	conf := config.NewFileFromConfig(nil, confPath)
	hub := events.NewEventHub()
	src := &stubSource{
		current: 1_200_000,
		reading: source.Reading{
			Level: 55, Scale: 100,
			Status:      source.StatusCharging,
			Plugged:     source.PluggedAC,
			Health:      source.HealthGood,
			Technology:  "Li-ion",
			Temperature: ptr.To(312),
			Voltage:     ptr.To(4100),
		},
	}
	engine := telemetry.NewEngine(src, store, hub, telemetry.Options{
		Clock: &telemetry.TestClock{CurrentTime: now},
	})
	evaluator, err := alarm.NewEvaluator(conf.Alarms(), nil)
	require.NoError(t, err)

	s := &server{
		conf:   conf,
		engine: engine,
		store:  store,
		hub:    hub,
		alarms: evaluator,
		now:    func() time.Time { return now },
	}
	return &testServer{server: s, router: s.setupRoutes(), src: src, confPath: confPath}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) seed(t *testing.T, sessions ...storage.ChargingSession) []storage.ChargingSession {
	t.Helper()
	var out []storage.ChargingSession
	for _, s := range sessions {
		saved, err := ts.store.Insert(context.Background(), s)
		require.NoError(t, err)
		out = append(out, saved)
	}
	return out
}

func TestGetVersion(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[string](t, w))
}

func TestGetConfig(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, w.Code)

	raw := decode[config.RawFileConfig](t, w)
	require.NotNil(t, raw.EstimateWindow)
	assert.Equal(t, 5, *raw.EstimateWindow)
	assert.Contains(t, w.Body.String(), `"pollInterval": "1s"`)
}

func TestGetStateAndHistory(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.engine.Poll())

	w := ts.do(t, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	state := decode[telemetry.BatteryState](t, w)
	assert.Equal(t, 55, state.ChargeLevel)
	assert.True(t, state.IsCharging)
	assert.Equal(t, 1200.0, state.CurrentUsageMa)
	assert.Equal(t, 4.92, state.PowerWatts)
	require.NotNil(t, state.ChargeCounterMah)
	assert.Equal(t, 2500.0, *state.ChargeCounterMah)
	assert.Nil(t, state.EnergyCounterWh)
	require.NotNil(t, state.CycleCount)
	assert.Equal(t, 120, *state.CycleCount)

	w = ts.do(t, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[telemetry.Histories](t, w)
	assert.Equal(t, []float64{55}, hist.Level)

	w = ts.do(t, http.MethodGet, "/history/temperature", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []float64{31.2}, decode[[]float64](t, w))

	w = ts.do(t, http.MethodGet, "/history/humidity", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSession(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/session", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, ts.engine.Poll())
	w = ts.do(t, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[telemetry.SessionSummary](t, w)
	assert.True(t, got.IsCharging)
	assert.Equal(t, 55, got.StartLevel)
	assert.Equal(t, "AC", got.PowerSource)
	assert.Equal(t, 1, got.SampleCount)
	assert.Equal(t, 1200.0, got.AverageCurrentMa)
	assert.Equal(t, int64(0), got.DurationMillis)
}

func TestGetSessions(t *testing.T) {
	ts := newTestServer(t)

	yesterday := now.Add(-24 * time.Hour).UnixMilli()
	morning := startOfDay(now).Add(8 * time.Hour).UnixMilli()
	noon := startOfDay(now).Add(12 * time.Hour).UnixMilli()
	ts.seed(t,
		storage.ChargingSession{StartTime: yesterday, EndTime: yesterday + 3_600_000, StartLevel: 20, EndLevel: 80, IsCharging: true},
		storage.ChargingSession{StartTime: morning, EndTime: morning + 3_600_000, StartLevel: 80, EndLevel: 60},
		storage.ChargingSession{StartTime: noon, EndTime: noon + 600_000, StartLevel: 60, EndLevel: 70, IsCharging: true},
	)

	tests := []struct {
		query      string
		wantCode   int
		wantStarts []int64
	}{
		{"", http.StatusOK, []int64{noon, morning, yesterday}},
		{"?limit=2", http.StatusOK, []int64{noon, morning}},
		{"?limit=0", http.StatusOK, []int64{}},
		{"?today=true", http.StatusOK, []int64{noon, morning}},
		{"?today=true&limit=1", http.StatusOK, []int64{noon}},
		{"?limit=-1", http.StatusBadRequest, nil},
		{"?limit=abc", http.StatusBadRequest, nil},
		{"?today=maybe", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/sessions"+tt.query, "")
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			starts := []int64{}
			for _, s := range decode[[]storage.ChargingSession](t, w) {
				starts = append(starts, s.StartTime)
			}
			assert.Equal(t, tt.wantStarts, starts)
		})
	}
}

func TestDeleteSessions(t *testing.T) {
	ts := newTestServer(t)
	saved := ts.seed(t,
		storage.ChargingSession{StartTime: 1000, EndTime: 70_000, StartLevel: 10, EndLevel: 20, IsCharging: true},
		storage.ChargingSession{StartTime: 2000, EndTime: 90_000, StartLevel: 20, EndLevel: 15},
	)

	w := ts.do(t, http.MethodDelete, "/sessions/"+itoa(saved[0].ID), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/sessions/"+itoa(saved[0].ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/sessions/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	all, err := ts.store.QueryAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, saved[1].ID, all[0].ID)

	w = ts.do(t, http.MethodDelete, "/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)

	all, err = ts.store.QueryAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAlarms(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/alarms", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, alarm.DefaultSettings(), decode[alarm.Settings](t, w))

	w = ts.do(t, http.MethodPut, "/alarms", `{"custom": {"enabled": true, "threshold": 85}, "sound": false}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	want := alarm.DefaultSettings()
	want.Custom = alarm.Threshold{Enabled: true, Threshold: 85}
	want.Sound = false
	assert.Equal(t, want, decode[alarm.Settings](t, w))
	assert.Equal(t, want, ts.alarms.Settings())
	assert.Equal(t, want, ts.conf.Alarms())

	// Persisted to the config file.
	reloaded, err := config.NewFile(ts.confPath)
	require.NoError(t, err)
	assert.Equal(t, want, reloaded.Alarms())

	w = ts.do(t, http.MethodPut, "/alarms", `{"lowBattery": {"enabled": true, "threshold": 150}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, want, ts.alarms.Settings())

	w = ts.do(t, http.MethodPut, "/alarms", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.engine.Poll())

	w := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "chargify_battery_level_percent 55")
}

func TestStreamEvents(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.engine.Poll())

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	seen := map[string]bool{}
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() && len(seen) < 3 {
		if name, ok := strings.CutPrefix(sc.Text(), "event:"); ok {
			seen[strings.TrimSpace(name)] = true
		}
	}
	assert.True(t, seen[events.BatteryState])
	assert.True(t, seen[events.BatteryHistory])
	assert.True(t, seen[events.SessionStats])
}

func TestRunAlarms(t *testing.T) {
	hub := events.NewEventHub()
	s := alarm.DefaultSettings()
	s.LowBattery.Enabled = true

	fired := make(chan alarm.Alarm, 1)
	evaluator, err := alarm.NewEvaluator(s, nil, alarm.NotifierFunc(func(a alarm.Alarm) { fired <- a }))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		runAlarms(ctx, hub, evaluator)
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, time.Millisecond)
	hub.Publish(events.BatteryState, telemetry.BatteryState{ChargeLevel: 12, UpdatedAt: 1})

	select {
	case a := <-fired:
		assert.Equal(t, alarm.KindLowBattery, a.Kind)
		assert.Equal(t, 12, a.Level)
	case <-time.After(time.Second):
		t.Fatal("alarm did not fire")
	}

	cancel()
	<-done
	assert.Equal(t, 0, hub.Subscribers())
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
