package alarm

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmmedrejowan/chargify/pkg/events"
	"github.com/ahmmedrejowan/chargify/pkg/metrics"
	"github.com/ahmmedrejowan/chargify/pkg/utils/ptr"
)

type recorder struct {
	got []Alarm
}

func (r *recorder) Notify(a Alarm) { r.got = append(r.got, a) }

func allEnabled() Settings {
	s := DefaultSettings()
	s.FullCharge.Enabled = true
	s.LowBattery.Enabled = true
	s.Custom.Enabled = true
	return s
}

func newTestEvaluator(t *testing.T, s Settings, last *int) (*Evaluator, *recorder, *MemoryState) {
	t.Helper()
	state := &MemoryState{level: last}
	rec := &recorder{}
	e, err := NewEvaluator(s, state, rec)
	require.NoError(t, err)
	return e, rec, state
}

func kinds(alarms []Alarm) []Kind {
	var out []Kind
	for _, a := range alarms {
		out = append(out, a.Kind)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		last     *int
		level    int
		charging bool
		want     []Kind
		wantLast *int
	}{
		{
			name:     "master switch off",
			settings: func() Settings { s := allEnabled(); s.Enabled = false; return s }(),
			level:    100,
			charging: true,
		},
		{
			name:     "defaults fire nothing",
			settings: DefaultSettings(),
			level:    100,
			charging: true,
		},
		{
			name:     "full and custom while charging",
			settings: allEnabled(),
			level:    100,
			charging: true,
			want:     []Kind{KindFullCharge, KindCustom},
			wantLast: ptr.To(100),
		},
		{
			name:     "custom only below full threshold",
			settings: allEnabled(),
			level:    85,
			charging: true,
			want:     []Kind{KindCustom},
			wantLast: ptr.To(85),
		},
		{
			name:     "low battery while discharging",
			settings: allEnabled(),
			level:    15,
			want:     []Kind{KindLowBattery},
			wantLast: ptr.To(15),
		},
		{
			name:     "custom ignored while discharging",
			settings: allEnabled(),
			level:    90,
		},
		{
			name:     "same level does not repeat",
			settings: allEnabled(),
			last:     ptr.To(100),
			level:    100,
			charging: true,
			wantLast: ptr.To(100),
		},
		{
			name:     "new level fires again",
			settings: allEnabled(),
			last:     ptr.To(99),
			level:    100,
			charging: true,
			want:     []Kind{KindFullCharge, KindCustom},
			wantLast: ptr.To(100),
		},
		{
			name:     "reset after unplugging from high level",
			settings: allEnabled(),
			last:     ptr.To(95),
			level:    94,
		},
		{
			name:     "reset after plugging in from low level",
			settings: allEnabled(),
			last:     ptr.To(15),
			level:    16,
			charging: true,
		},
		{
			name:     "low level kept while discharging",
			settings: allEnabled(),
			last:     ptr.To(15),
			level:    14,
			want:     []Kind{KindLowBattery},
			wantLast: ptr.To(14),
		},
		{
			name:     "reset wins over a new notification",
			settings: allEnabled(),
			last:     ptr.To(85),
			level:    20,
			want:     []Kind{KindLowBattery},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec, state := newTestEvaluator(t, tt.settings, tt.last)

			got := e.Evaluate(tt.level, tt.charging)
			assert.Equal(t, tt.want, kinds(got))
			assert.Equal(t, tt.want, kinds(rec.got))
			assert.Equal(t, tt.wantLast, e.LastNotified())

			saved, err := state.LoadLastNotified()
			require.NoError(t, err)
			assert.Equal(t, tt.wantLast, saved)
		})
	}
}

func TestEvaluate_Messages(t *testing.T) {
	e, _, _ := newTestEvaluator(t, allEnabled(), nil)

	got := e.Evaluate(100, true)
	require.Len(t, got, 2)
	assert.Equal(t, "Battery Full", got[0].Title)
	assert.Equal(t, "Battery is at 100%. You can unplug your charger now.", got[0].Message)
	assert.Equal(t, 100, got[0].Threshold)
	assert.True(t, got[0].Sound)
	assert.True(t, got[0].Vibration)
	assert.Equal(t, "Battery Alert", got[1].Title)
	assert.Equal(t, "Battery reached 100%. Consider unplugging to preserve battery health.", got[1].Message)
	assert.Equal(t, 80, got[1].Threshold)

	got = e.Evaluate(10, false)
	require.Len(t, got, 1)
	assert.Equal(t, "Low Battery", got[0].Title)
	assert.Equal(t, "Battery is at 10%. Please charge your device.", got[0].Message)
}

func TestEvaluate_SetSettings(t *testing.T) {
	e, rec, _ := newTestEvaluator(t, DefaultSettings(), nil)
	assert.Empty(t, e.Evaluate(10, false))

	s := e.Settings()
	s.LowBattery.Enabled = true
	s.LowBattery.Threshold = 10
	e.SetSettings(s)

	assert.Len(t, e.Evaluate(10, false), 1)
	assert.Len(t, rec.got, 1)
}

func TestFileState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "alarm.json")
	fs := NewFileState(path)

	level, err := fs.LoadLastNotified()
	require.NoError(t, err)
	assert.Nil(t, level)

	require.NoError(t, fs.SaveLastNotified(ptr.To(42)))
	level, err = fs.LoadLastNotified()
	require.NoError(t, err)
	require.NotNil(t, level)
	assert.Equal(t, 42, *level)

	e, err := NewEvaluator(allEnabled(), fs)
	require.NoError(t, err)
	assert.Equal(t, ptr.To(42), e.LastNotified())

	require.NoError(t, fs.SaveLastNotified(nil))
	level, err = fs.LoadLastNotified()
	require.NoError(t, err)
	assert.Nil(t, level)
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.Custom.Threshold = 101
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.LowBattery.Threshold = -1
	assert.Error(t, s.Validate())
}

func TestHubNotifier(t *testing.T) {
	hub := events.NewEventHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	ts := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	before := testutil.ToFloat64(metrics.AlarmsTriggered.WithLabelValues(string(KindLowBattery)))

	e, err := NewEvaluator(allEnabled(), nil, HubNotifier{Hub: hub, Now: func() time.Time { return ts }}, LogNotifier{})
	require.NoError(t, err)
	e.Evaluate(5, false)

	select {
	case ev := <-ch:
		assert.Equal(t, events.AlarmTriggered, ev.Name)
		payload, err := events.DecodeAs[events.AlarmEvent](ev)
		require.NoError(t, err)
		assert.Equal(t, "low_battery", payload.Kind)
		assert.Equal(t, 5, payload.Level)
		assert.Equal(t, "Low Battery", payload.Title)
		assert.Equal(t, ts.UnixMilli(), payload.Ts)
	case <-time.After(time.Second):
		t.Fatal("no alarm event")
	}

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AlarmsTriggered.WithLabelValues(string(KindLowBattery))))
}
