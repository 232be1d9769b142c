package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned when a session is missing from storage.
var ErrNotFound = errors.New("storage: session not found")

// SessionStore persists finalized charging sessions.
//
// Every query returns sessions newest first: ordered by start time
// descending, ties broken by ID descending.
type SessionStore interface {
	// Insert stores s and returns it with the assigned ID.
	Insert(ctx context.Context, s ChargingSession) (ChargingSession, error)
	// QueryRecent returns at most limit sessions. A limit <= 0 returns none.
	QueryRecent(ctx context.Context, limit int) ([]ChargingSession, error)
	QueryAll(ctx context.Context) ([]ChargingSession, error)
	// QuerySince returns sessions that started at or after since.
	QuerySince(ctx context.Context, since time.Time) ([]ChargingSession, error)
	DeleteByID(ctx context.Context, id int64) error
	ClearAll(ctx context.Context) error
	Close() error
}

// ChargingSession is a finalized, immutable charging or discharging period.
// Times are unix milliseconds.
type ChargingSession struct {
	ID               int64   `json:"id"`
	StartTime        int64   `json:"startTime"`
	EndTime          int64   `json:"endTime"`
	StartLevel       int     `json:"startLevel"`
	EndLevel         int     `json:"endLevel"`
	IsCharging       bool    `json:"isCharging"`
	PowerSource      string  `json:"powerSource"`
	AverageCurrentMa float64 `json:"averageCurrentMa"`
	AverageTempC     float64 `json:"averageTempCelsius"`
}

// DurationMillis is EndTime - StartTime.
func (s ChargingSession) DurationMillis() int64 {
	return s.EndTime - s.StartTime
}

// Duration is DurationMillis as a time.Duration.
func (s ChargingSession) Duration() time.Duration {
	return time.Duration(s.DurationMillis()) * time.Millisecond
}

// LevelChange is EndLevel - StartLevel.
func (s ChargingSession) LevelChange() int {
	return s.EndLevel - s.StartLevel
}

// Newer reports whether a sorts before b in newest-first order.
func Newer(a, b ChargingSession) bool {
	if a.StartTime != b.StartTime {
		return a.StartTime > b.StartTime
	}
	return a.ID > b.ID
}

// EnsureDir creates the parent directory of a database file.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
