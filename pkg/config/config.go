package config

import (
	"time"

	"github.com/ahmmedrejowan/chargify/pkg/alarm"
)

type Config interface {
	PollInterval() time.Duration
	EstimateWindow() int
	HistoryCapacity() int
	CurrentThreshold() int64
	MinSessionDuration() time.Duration
	Source() string
	SysfsRoot() string
	Storage() Storage
	Alarms() alarm.Settings
	AlarmStatePath() string
	AllowNonRootAccess() bool

	SetAlarms(alarm.Settings) error
	SetAllowNonRootAccess(bool)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}

// Storage selects and configures the session store.
type Storage struct {
	Backend       string `json:"backend"`
	Path          string `json:"path,omitempty"`
	RedisAddr     string `json:"redisAddr,omitempty"`
	RedisPassword string `json:"redisPassword,omitempty"`
	RedisDB       int    `json:"redisDB,omitempty"`
}

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
)
