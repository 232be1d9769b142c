package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ahmmedrejowan/chargify/pkg/events"
	"github.com/ahmmedrejowan/chargify/pkg/metrics"
	"github.com/ahmmedrejowan/chargify/pkg/source"
	"github.com/ahmmedrejowan/chargify/pkg/storage"
)

// DefaultPollInterval is the sampling period.
const DefaultPollInterval = time.Second

// DefaultPersistTimeout bounds a single session write.
const DefaultPersistTimeout = 10 * time.Second

// Options tunes an Engine. Zero values select the defaults.
type Options struct {
	PollInterval       time.Duration
	EstimateWindow     int
	HistoryCapacity    int
	MinSessionDuration time.Duration
	PersistTimeout     time.Duration
	Normalizer         Normalizer
	Clock              Clock
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.EstimateWindow <= 0 {
		o.EstimateWindow = DefaultEstimateWindow
	}
	if o.HistoryCapacity <= 0 {
		o.HistoryCapacity = DefaultHistoryCapacity
	}
	if o.MinSessionDuration <= 0 {
		o.MinSessionDuration = DefaultMinSessionDuration
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = DefaultPersistTimeout
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
	return o
}

// Engine samples a battery source, keeps the derived state and histories,
// and hands finalized sessions to a store.
//
// ProcessEvent and the poll loop both mutate the engine; mu serializes
// them so there is a single writer at any time. Readers get copies.
type Engine struct {
	src   source.Source
	store storage.SessionStore
	hub   *events.EventHub
	opts  Options

	mu        sync.Mutex
	state     BatteryState
	histories map[Metric]*HistoryBuffer
	tracker   *SessionTracker
	window    []float64

	// runMu guards the lifecycle fields. It is never held together with mu,
	// so a Notifier may call ProcessEvent from inside Notify or its
	// unsubscribe func.
	runMu       sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()

	persisting sync.WaitGroup
}

// NewEngine builds an engine. store and hub may be nil, in which case
// sessions are not saved and nothing is published.
func NewEngine(src source.Source, store storage.SessionStore, hub *events.EventHub, opts Options) *Engine {
	opts = opts.withDefaults()

	e := &Engine{
		src:       src,
		store:     store,
		hub:       hub,
		opts:      opts,
		state:     NewBatteryState(),
		histories: make(map[Metric]*HistoryBuffer, len(Metrics)),
		tracker:   NewSessionTracker(opts.MinSessionDuration),
		window:    make([]float64, 0, opts.EstimateWindow),
	}
	for _, m := range Metrics {
		e.histories[m] = NewHistoryBuffer(opts.HistoryCapacity)
	}

	capacity, err := src.Capacity()
	switch {
	case err == nil && capacity > 0:
		e.state.BatteryCapacityMah = &capacity
	case err == nil, errors.Is(err, source.ErrUnsupported):
		logrus.Info("battery capacity unknown, time estimates are disabled")
	default:
		logrus.Warnf("failed to read battery capacity: %v", err)
	}

	return e
}

// Start begins polling. Calling Start on a running engine does nothing.
func (e *Engine) Start(ctx context.Context) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	if n, ok := e.src.(source.Notifier); ok {
		e.unsubscribe = n.Notify(e.ProcessEvent)
	}

	logrus.WithFields(logrus.Fields{
		"interval": e.opts.PollInterval,
		"window":   e.opts.EstimateWindow,
	}).Info("telemetry engine started")

	go e.loop(ctx, e.done)
}

// Stop stops polling and waits for the loop to exit. It is safe to call on
// a stopped engine. Session writes already in flight keep running; use
// WaitPersisted to wait for them.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.cancel == nil {
		return
	}
	e.cancel()
	e.cancel = nil
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}

	<-e.done
	logrus.Info("telemetry engine stopped")
}

// Running reports whether the poll loop is active.
func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.cancel != nil
}

// WaitPersisted blocks until every session write started so far finished.
func (e *Engine) WaitPersisted() {
	e.persisting.Wait()
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		_ = e.Poll()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessEvent applies a pushed battery-changed reading.
func (e *Engine) ProcessEvent(r source.Reading) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state
	finished := e.applyReading(&next, r, e.opts.Clock.Now())
	e.state = next

	e.publishState()
	e.publishSession()
	if finished != nil {
		e.persist(*finished)
	}
}

// Poll runs one sampling tick. When a read fails the tick is skipped, the
// published state is left as it was, and the error is returned.
func (e *Engine) Poll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.read()
	if err != nil {
		metrics.PollErrors.Inc()
		logrus.Warnf("skipping poll: %v", err)
		return err
	}

	now := e.opts.Clock.Now()
	n := e.opts.Normalizer
	next := e.state

	next.CurrentUsageMa = n.Current(s.currentNow)
	next.CurrentAverageMa = n.Current(s.currentAverage)
	next.ChargeCounterMah = ChargeCounterMah(s.chargeCounter)
	next.EnergyCounterWh = EnergyCounterWh(s.energyCounter)
	next.CycleCount = CycleCount(s.cycleCount)

	finished := e.applyReading(&next, s.reading, now)
	next.PowerWatts = PowerWatts(next.Voltage, next.CurrentUsageMa)

	e.histories[MetricCurrent].Push(next.CurrentUsageMa)
	e.histories[MetricPower].Push(next.PowerWatts)
	e.histories[MetricTemperature].Push(next.TemperatureCelsius)
	e.histories[MetricVoltage].Push(next.Voltage)
	e.histories[MetricLevel].Push(float64(next.ChargeLevel))

	e.tracker.AddSample(next.CurrentUsageMa, next.TemperatureCelsius)

	e.window = append(e.window, next.CurrentUsageMa)
	if len(e.window) >= e.opts.EstimateWindow {
		e.estimate(&next)
		e.window = e.window[:0]
	}

	e.state = next

	e.publishState()
	e.hub.Publish(events.BatteryHistory, e.snapshotHistories())
	e.publishSession()
	if finished != nil {
		e.persist(*finished)
	}
	return nil
}

// State returns the latest composite state.
func (e *Engine) State() BatteryState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// History returns a copy of one history buffer, oldest first.
func (e *Engine) History(m Metric) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.histories[m]
	if !ok {
		return nil
	}
	return h.Snapshot()
}

// Histories returns copies of all history buffers.
func (e *Engine) Histories() Histories {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotHistories()
}

// Session returns the session in progress. ok is false until the first
// reading arrived.
func (e *Engine) Session() (SessionStats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Stats()
}

type rawSample struct {
	currentNow     int64
	currentAverage int64
	chargeCounter  int64
	energyCounter  int64
	cycleCount     int
	reading        source.Reading
}

// read collects everything a tick needs before anything is mutated.
// Unsupported currents and counters read as zero, which the normalizer maps
// to unknown.
func (e *Engine) read() (rawSample, error) {
	var (
		s   rawSample
		err error
	)

	if s.currentNow, err = e.src.CurrentNow(); err != nil && !errors.Is(err, source.ErrUnsupported) {
		return s, err
	}
	if s.currentAverage, err = e.src.CurrentAverage(); err != nil {
		if !errors.Is(err, source.ErrUnsupported) {
			return s, err
		}
		s.currentAverage = s.currentNow
	}
	if s.chargeCounter, err = e.src.ChargeCounter(); err != nil && !errors.Is(err, source.ErrUnsupported) {
		return s, err
	}
	if s.energyCounter, err = e.src.EnergyCounter(); err != nil && !errors.Is(err, source.ErrUnsupported) {
		return s, err
	}
	if s.cycleCount, err = e.src.CycleCount(); err != nil && !errors.Is(err, source.ErrUnsupported) {
		return s, err
	}
	if s.reading, err = e.src.BatteryChanged(); err != nil {
		return s, err
	}
	return s, nil
}

// applyReading folds a battery-changed reading into next and drives the
// session tracker. It returns the session that ended, if any.
func (e *Engine) applyReading(next *BatteryState, r source.Reading, now time.Time) *storage.ChargingSession {
	status := ChargingStatusFromCode(r.Status)
	isCharging := status.IsCharging()

	if _, started := e.tracker.Stats(); started && isCharging != next.IsCharging {
		// Estimates for the old direction no longer apply.
		next.EtaToFullMillis = nil
		next.TimeRemainingMillis = nil
		e.window = e.window[:0]
	}

	next.ChargingStatus = status
	next.IsCharging = isCharging
	next.ChargeLevel = Level(r.Level, r.Scale, next.ChargeLevel)
	next.PowerSource = PowerSourceFromPlugged(r.Plugged)
	next.BatteryHealth = r.Health
	if r.Technology != "" {
		next.BatteryTechnology = r.Technology
	}
	if r.Temperature != nil {
		next.TemperatureCelsius, next.TemperatureFahrenheit = Temperature(*r.Temperature)
	}
	if r.Voltage != nil {
		next.Voltage = Voltage(*r.Voltage)
	}
	next.UpdatedAt = now.UnixMilli()

	return e.tracker.Observe(now, isCharging, next.ChargeLevel, next.PowerSource.Label(), next.TemperatureCelsius)
}

func (e *Engine) estimate(next *BatteryState) {
	est, ok := EstimateTime(e.window, next.IsCharging, next.ChargeLevel, next.BatteryCapacityMah)
	if !ok {
		metrics.InconsistentWindows.Inc()
		logrus.WithField("samples", e.window).Debug("current changed sign within window, discarding")
		return
	}
	next.EtaToFullMillis = est.EtaToFullMillis
	next.TimeRemainingMillis = est.TimeRemainingMillis
}

func (e *Engine) persist(s storage.ChargingSession) {
	direction := metrics.Direction(s.IsCharging)
	metrics.SessionsFinalized.WithLabelValues(direction).Inc()
	e.hub.Publish(events.SessionFinalized, s)

	fields := logrus.Fields{
		"direction":   direction,
		"startLevel":  s.StartLevel,
		"endLevel":    s.EndLevel,
		"duration":    s.Duration().String(),
		"powerSource": s.PowerSource,
	}
	logrus.WithFields(fields).Info("charging session finished")

	if e.store == nil {
		return
	}

	e.persisting.Add(1)
	go func() {
		defer e.persisting.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.opts.PersistTimeout)
		defer cancel()

		saved, err := e.store.Insert(ctx, s)
		if err != nil {
			metrics.SessionPersistErrors.Inc()
			logrus.WithFields(fields).Errorf("failed to save charging session: %v", err)
			return
		}
		logrus.WithFields(fields).WithField("id", saved.ID).Debug("charging session saved")
		e.hub.Publish(events.SessionSaved, saved)
	}()
}

func (e *Engine) publishState() {
	s := e.state
	metrics.ObserveBattery(s.ChargeLevel, s.CurrentUsageMa, s.PowerWatts, s.Voltage, s.TemperatureCelsius,
		s.IsCharging, s.EtaToFullMillis, s.TimeRemainingMillis)
	e.hub.Publish(events.BatteryState, s)
}

func (e *Engine) publishSession() {
	if stats, ok := e.tracker.Stats(); ok {
		e.hub.Publish(events.SessionStats, stats)
	}
}

func (e *Engine) snapshotHistories() Histories {
	return Histories{
		Current:     e.histories[MetricCurrent].Snapshot(),
		Power:       e.histories[MetricPower].Snapshot(),
		Temperature: e.histories[MetricTemperature].Snapshot(),
		Voltage:     e.histories[MetricVoltage].Snapshot(),
		Level:       e.histories[MetricLevel].Snapshot(),
	}
}
