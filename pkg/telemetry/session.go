package telemetry

import (
	"math"
	"time"

	"github.com/ahmmedrejowan/chargify/pkg/storage"
)

// DefaultMinSessionDuration is how long a session must last to be kept.
const DefaultMinSessionDuration = time.Minute

// SessionTracker follows the charging direction and turns each finished
// charging or discharging period into a storage.ChargingSession.
//
// Sessions shorter than the minimum duration, or that did not move the
// charge level, are dropped. Not safe for concurrent use.
type SessionTracker struct {
	minDuration time.Duration
	active      *activeSession
}

type activeSession struct {
	stats     SessionStats
	tempSum   float64
	tempCount int
}

// NewSessionTracker returns a tracker that keeps sessions lasting longer
// than minDuration. A non-positive value means DefaultMinSessionDuration.
func NewSessionTracker(minDuration time.Duration) *SessionTracker {
	if minDuration <= 0 {
		minDuration = DefaultMinSessionDuration
	}
	return &SessionTracker{minDuration: minDuration}
}

// Observe records the direction and level of a reading taken at now. When
// the direction differs from the active session, that session ends and a
// new one begins; the ended session is returned if it qualifies.
//
// latestTempC is used as the session temperature when no samples were
// collected.
func (t *SessionTracker) Observe(now time.Time, isCharging bool, level int, powerSource string, latestTempC float64) *storage.ChargingSession {
	if t.active == nil {
		t.begin(now, isCharging, level, powerSource)
		return nil
	}

	if t.active.stats.IsCharging == isCharging {
		t.active.stats.CurrentLevel = level
		return nil
	}

	finished := t.finalize(now, level, latestTempC)
	t.begin(now, isCharging, level, powerSource)
	return finished
}

// AddSample adds one current and temperature sample to the active session.
// Samples arriving before the first Observe are ignored.
func (t *SessionTracker) AddSample(currentMa, tempC float64) {
	if t.active == nil {
		return
	}
	t.active.stats.SampleCount++
	t.active.stats.TotalCurrentMa += math.Abs(currentMa)
	t.active.tempSum += tempC
	t.active.tempCount++
}

// Stats returns the active session. ok is false before the first reading.
func (t *SessionTracker) Stats() (stats SessionStats, ok bool) {
	if t.active == nil {
		return SessionStats{}, false
	}
	return t.active.stats, true
}

func (t *SessionTracker) begin(now time.Time, isCharging bool, level int, powerSource string) {
	t.active = &activeSession{
		stats: SessionStats{
			IsCharging:      isCharging,
			StartLevel:      level,
			CurrentLevel:    level,
			StartTimeMillis: now.UnixMilli(),
			PowerSource:     powerSource,
		},
	}
}

func (t *SessionTracker) finalize(now time.Time, level int, latestTempC float64) *storage.ChargingSession {
	a := t.active
	duration := now.UnixMilli() - a.stats.StartTimeMillis
	if duration <= t.minDuration.Milliseconds() || level == a.stats.StartLevel {
		return nil
	}

	avgTemp := latestTempC
	if a.tempCount > 0 {
		avgTemp = a.tempSum / float64(a.tempCount)
	}

	return &storage.ChargingSession{
		StartTime:        a.stats.StartTimeMillis,
		EndTime:          now.UnixMilli(),
		StartLevel:       a.stats.StartLevel,
		EndLevel:         level,
		IsCharging:       a.stats.IsCharging,
		PowerSource:      a.stats.PowerSource,
		AverageCurrentMa: a.stats.AverageCurrentMa(),
		AverageTempC:     avgTemp,
	}
}
