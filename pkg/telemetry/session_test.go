package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func TestSessionTracker_FirstReadingOnlyInitializes(t *testing.T) {
	tr := NewSessionTracker(0)

	_, ok := tr.Stats()
	assert.False(t, ok)

	got := tr.Observe(t0, true, 40, "AC", 30)
	assert.Nil(t, got)

	stats, ok := tr.Stats()
	require.True(t, ok)
	assert.True(t, stats.IsCharging)
	assert.Equal(t, 40, stats.StartLevel)
	assert.Equal(t, 40, stats.CurrentLevel)
	assert.Equal(t, t0.UnixMilli(), stats.StartTimeMillis)
	assert.Equal(t, "AC", stats.PowerSource)
}

func TestSessionTracker_Finalize(t *testing.T) {
	tests := []struct {
		name      string
		held      time.Duration
		endLevel  int
		wantEmit  bool
		wantDelta int
	}{
		{"61s with 3 points", 61 * time.Second, 43, true, 3},
		{"30s with change", 30 * time.Second, 45, false, 0},
		{"70s without change", 70 * time.Second, 40, false, 0},
		{"exactly 60s", 60 * time.Second, 43, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewSessionTracker(time.Minute)
			tr.Observe(t0, true, 40, "AC", 30)

			got := tr.Observe(t0.Add(tt.held), false, tt.endLevel, "Unplugged", 30)
			if !tt.wantEmit {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantDelta, got.LevelChange())
			assert.Equal(t, tt.held.Milliseconds(), got.DurationMillis())
		})
	}
}

func TestSessionTracker_Scenario(t *testing.T) {
	tr := NewSessionTracker(time.Minute)

	assert.Nil(t, tr.Observe(t0, true, 40, "USB", 29))
	tr.AddSample(1000, 30)
	tr.AddSample(-2000, 32)
	tr.Observe(t0.Add(30*time.Second), true, 42, "USB", 32)
	tr.AddSample(1500, 31)

	got := tr.Observe(t0.Add(65*time.Second), false, 43, "Unplugged", 31)
	require.NotNil(t, got)
	assert.Equal(t, 40, got.StartLevel)
	assert.Equal(t, 43, got.EndLevel)
	assert.True(t, got.IsCharging)
	assert.Equal(t, "USB", got.PowerSource)
	assert.Equal(t, int64(65000), got.DurationMillis())
	assert.Equal(t, 1500.0, got.AverageCurrentMa)
	assert.Equal(t, 31.0, got.AverageTempC)

	stats, ok := tr.Stats()
	require.True(t, ok)
	assert.False(t, stats.IsCharging)
	assert.Equal(t, 43, stats.StartLevel)
	assert.Equal(t, "Unplugged", stats.PowerSource)
	assert.Equal(t, 0, stats.SampleCount)
	assert.Equal(t, 0.0, stats.TotalCurrentMa)
	assert.Equal(t, t0.Add(65*time.Second).UnixMilli(), stats.StartTimeMillis)
}

func TestSessionTracker_NoSamplesFallsBack(t *testing.T) {
	tr := NewSessionTracker(time.Minute)
	tr.Observe(t0, false, 80, "Unplugged", 25)

	got := tr.Observe(t0.Add(10*time.Minute), true, 70, "AC", 27.5)
	require.NotNil(t, got)
	assert.False(t, got.IsCharging)
	assert.Equal(t, -10, got.LevelChange())
	assert.Equal(t, 0.0, got.AverageCurrentMa)
	assert.Equal(t, 27.5, got.AverageTempC)
}

func TestSessionTracker_DroppedSessionStillRestarts(t *testing.T) {
	tr := NewSessionTracker(time.Minute)
	tr.Observe(t0, true, 50, "AC", 30)
	tr.AddSample(100, 30)

	assert.Nil(t, tr.Observe(t0.Add(10*time.Second), false, 51, "Unplugged", 30))

	stats, ok := tr.Stats()
	require.True(t, ok)
	assert.False(t, stats.IsCharging)
	assert.Equal(t, 51, stats.StartLevel)
	assert.Equal(t, 0, stats.SampleCount)
}

func TestSessionTracker_SameDirectionUpdatesLevel(t *testing.T) {
	tr := NewSessionTracker(time.Minute)
	tr.Observe(t0, true, 50, "AC", 30)
	tr.Observe(t0.Add(time.Minute), true, 55, "AC", 30)
	tr.AddSample(-800, 30)

	stats, _ := tr.Stats()
	assert.Equal(t, 50, stats.StartLevel)
	assert.Equal(t, 55, stats.CurrentLevel)
	assert.Equal(t, 5, stats.LevelChange())
	assert.Equal(t, 1, stats.SampleCount)
	assert.Equal(t, 800.0, stats.TotalCurrentMa)
	assert.Equal(t, 800.0, stats.AverageCurrentMa())
	assert.Equal(t, int64(90_000), stats.DurationMillis(t0.Add(90*time.Second)))
}

func TestSessionTracker_StoresUnroundedAverages(t *testing.T) {
	tr := NewSessionTracker(time.Minute)
	tr.Observe(t0, true, 40, "AC", 30.2)
	tr.AddSample(1000.004, 30.2)
	tr.AddSample(1000.001, 30.3)

	got := tr.Observe(t0.Add(2*time.Minute), false, 45, "Unplugged", 30.3)
	require.NotNil(t, got)
	assert.InDelta(t, 30.25, got.AverageTempC, 1e-9)
	assert.InDelta(t, 1000.0025, got.AverageCurrentMa, 1e-9)
}
