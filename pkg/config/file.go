package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ahmmedrejowan/chargify/pkg/alarm"
	"github.com/ahmmedrejowan/chargify/pkg/source"
	"github.com/ahmmedrejowan/chargify/pkg/telemetry"
	"github.com/ahmmedrejowan/chargify/pkg/utils/ptr"
)

const (
	DefaultStoragePath    = "/var/lib/chargify/sessions.db"
	DefaultAlarmStatePath = "/var/lib/chargify/alarm-state.json"
	DefaultRedisAddr      = "127.0.0.1:6379"
)

var (
	defaultFileConfig = &RawFileConfig{
		PollInterval:       ptr.To(Duration(telemetry.DefaultPollInterval)),
		EstimateWindow:     ptr.To(telemetry.DefaultEstimateWindow),
		HistoryCapacity:    ptr.To(telemetry.DefaultHistoryCapacity),
		CurrentThreshold:   ptr.To(int64(telemetry.DefaultCurrentThreshold)),
		MinSessionDuration: ptr.To(Duration(telemetry.DefaultMinSessionDuration)),
		Source:             ptr.To(source.KindAuto),
		SysfsRoot:          ptr.To(source.DefaultSysfsRoot),
		Storage: &Storage{
			Backend:   BackendSQLite,
			Path:      DefaultStoragePath,
			RedisAddr: DefaultRedisAddr,
		},
		Alarms:             ptr.To(alarm.DefaultSettings()),
		AlarmStatePath:     ptr.To(DefaultAlarmStatePath),
		AllowNonRootAccess: ptr.To(false),
	}
)

var _ Config = &File{}

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return pkgerrors.Wrap(err, "duration must be a string such as \"1s\"")
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

// RawFileConfig is the on-disk form. Nil fields take their defaults.
type RawFileConfig struct {
	PollInterval       *Duration       `json:"pollInterval,omitempty"`
	EstimateWindow     *int            `json:"estimateWindow,omitempty"`
	HistoryCapacity    *int            `json:"historyCapacity,omitempty"`
	CurrentThreshold   *int64          `json:"currentThreshold,omitempty"`
	MinSessionDuration *Duration       `json:"minSessionDuration,omitempty"`
	Source             *string         `json:"source,omitempty"`
	SysfsRoot          *string         `json:"sysfsRoot,omitempty"`
	Storage            *Storage        `json:"storage,omitempty"`
	Alarms             *alarm.Settings `json:"alarms,omitempty"`
	AlarmStatePath     *string         `json:"alarmStatePath,omitempty"`
	AllowNonRootAccess *bool           `json:"allowNonRootAccess,omitempty"`
}

// Validate rejects values the daemon cannot run with.
func (c *RawFileConfig) Validate() error {
	if c.PollInterval != nil && *c.PollInterval <= 0 {
		return pkgerrors.Errorf("pollInterval must be positive, got %s", time.Duration(*c.PollInterval))
	}
	if c.MinSessionDuration != nil && *c.MinSessionDuration <= 0 {
		return pkgerrors.Errorf("minSessionDuration must be positive, got %s", time.Duration(*c.MinSessionDuration))
	}
	if c.EstimateWindow != nil && *c.EstimateWindow <= 0 {
		return pkgerrors.Errorf("estimateWindow must be positive, got %d", *c.EstimateWindow)
	}
	if c.HistoryCapacity != nil && *c.HistoryCapacity <= 0 {
		return pkgerrors.Errorf("historyCapacity must be positive, got %d", *c.HistoryCapacity)
	}
	if c.CurrentThreshold != nil && *c.CurrentThreshold <= 0 {
		return pkgerrors.Errorf("currentThreshold must be positive, got %d", *c.CurrentThreshold)
	}
	if c.Source != nil {
		switch *c.Source {
		case source.KindAuto, source.KindSysfs, source.KindDistatus:
		default:
			return pkgerrors.Errorf("unknown source %q", *c.Source)
		}
	}
	if c.Storage != nil {
		switch c.Storage.Backend {
		case "", BackendSQLite, BackendBolt, BackendRedis:
		default:
			return pkgerrors.Errorf("unknown storage backend %q", c.Storage.Backend)
		}
	}
	if c.Alarms != nil {
		if err := c.Alarms.Validate(); err != nil {
			return pkgerrors.Wrap(err, "invalid alarms")
		}
	}
	return nil
}

func (f *File) PollInterval() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return time.Duration(ptr.Deref(f.c.PollInterval, *defaultFileConfig.PollInterval))
}

func (f *File) EstimateWindow() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return ptr.Deref(f.c.EstimateWindow, *defaultFileConfig.EstimateWindow)
}

func (f *File) HistoryCapacity() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return ptr.Deref(f.c.HistoryCapacity, *defaultFileConfig.HistoryCapacity)
}

func (f *File) CurrentThreshold() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return ptr.Deref(f.c.CurrentThreshold, *defaultFileConfig.CurrentThreshold)
}

func (f *File) MinSessionDuration() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return time.Duration(ptr.Deref(f.c.MinSessionDuration, *defaultFileConfig.MinSessionDuration))
}

func (f *File) Source() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return ptr.Deref(f.c.Source, *defaultFileConfig.Source)
}

func (f *File) SysfsRoot() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return ptr.Deref(f.c.SysfsRoot, *defaultFileConfig.SysfsRoot)
}

// Storage returns the storage section with unset fields defaulted.
func (f *File) Storage() Storage {
	f.mu.RLock()
	defer f.mu.RUnlock()

	s := *defaultFileConfig.Storage
	if f.c.Storage == nil {
		return s
	}
	if f.c.Storage.Backend != "" {
		s.Backend = f.c.Storage.Backend
	}
	if f.c.Storage.Path != "" {
		s.Path = f.c.Storage.Path
	}
	if f.c.Storage.RedisAddr != "" {
		s.RedisAddr = f.c.Storage.RedisAddr
	}
	s.RedisPassword = f.c.Storage.RedisPassword
	s.RedisDB = f.c.Storage.RedisDB
	return s
}

func (f *File) Alarms() alarm.Settings {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return ptr.Deref(f.c.Alarms, *defaultFileConfig.Alarms)
}

func (f *File) AlarmStatePath() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return ptr.Deref(f.c.AlarmStatePath, *defaultFileConfig.AlarmStatePath)
}

func (f *File) AllowNonRootAccess() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return ptr.Deref(f.c.AllowNonRootAccess, *defaultFileConfig.AllowNonRootAccess)
}

func (f *File) SetAlarms(s alarm.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Alarms = &s
	return nil
}

func (f *File) SetAllowNonRootAccess(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.AllowNonRootAccess = &b
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	// Partial alarm sections keep the defaults for missing keys.
	conf := RawFileConfig{}
	var probe struct {
		Alarms json.RawMessage `json:"alarms"`
	}
	if err := json.Unmarshal(b, &probe); err == nil && len(probe.Alarms) > 0 {
		conf.Alarms = ptr.To(alarm.DefaultSettings())
	}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	if err := conf.Validate(); err != nil {
		return pkgerrors.Wrapf(err, "invalid config in file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	if err := os.MkdirAll(filepath.Dir(f.filepath), 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory for %s", f.filepath)
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	st := f.Storage()
	return logrus.Fields{
		"pollInterval":       f.PollInterval().String(),
		"estimateWindow":     f.EstimateWindow(),
		"historyCapacity":    f.HistoryCapacity(),
		"currentThreshold":   f.CurrentThreshold(),
		"minSessionDuration": f.MinSessionDuration().String(),
		"source":             f.Source(),
		"storageBackend":     st.Backend,
		"alarmsEnabled":      f.Alarms().Enabled,
		"allowNonRootAccess": f.AllowNonRootAccess(),
	}
}

// Effective returns c with every default filled in. The redis password is
// never included.
func Effective(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	st := c.Storage()
	st.RedisPassword = ""

	return &RawFileConfig{
		PollInterval:       ptr.To(Duration(c.PollInterval())),
		EstimateWindow:     ptr.To(c.EstimateWindow()),
		HistoryCapacity:    ptr.To(c.HistoryCapacity()),
		CurrentThreshold:   ptr.To(c.CurrentThreshold()),
		MinSessionDuration: ptr.To(Duration(c.MinSessionDuration())),
		Source:             ptr.To(c.Source()),
		SysfsRoot:          ptr.To(c.SysfsRoot()),
		Storage:            &st,
		Alarms:             ptr.To(c.Alarms()),
		AlarmStatePath:     ptr.To(c.AlarmStatePath()),
		AllowNonRootAccess: ptr.To(c.AllowNonRootAccess()),
	}, nil
}
