package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Battery gauges
	ChargeLevel = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargify_battery_level_percent",
		Help: "Battery charge level in percent",
	})

	CurrentMilliamps = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargify_battery_current_milliamps",
		Help: "Instantaneous battery current in mA, negative while discharging",
	})

	PowerWatts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargify_battery_power_watts",
		Help: "Battery power draw in watts",
	})

	Voltage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargify_battery_voltage_volts",
		Help: "Battery voltage",
	})

	Temperature = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargify_battery_temperature_celsius",
		Help: "Battery temperature",
	})

	Charging = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargify_battery_charging",
		Help: "1 while charging or full on the charger, 0 otherwise",
	})

	Estimate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chargify_battery_estimate_seconds",
			Help: "Projected seconds until full (to_full) or empty (remaining); 0 when unknown",
		},
		[]string{"kind"},
	)

	// Engine counters
	PollErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chargify_poll_errors_total",
		Help: "Poll ticks skipped because a battery read failed",
	})

	InconsistentWindows = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chargify_estimate_windows_discarded_total",
		Help: "Estimate windows discarded because current samples changed sign",
	})

	SessionsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chargify_sessions_finalized_total",
			Help: "Charging sessions finalized, by direction",
		},
		[]string{"direction"},
	)

	SessionPersistErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chargify_session_persist_errors_total",
		Help: "Finalized sessions that could not be saved",
	})

	// Alarm counters
	AlarmsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chargify_alarms_triggered_total",
			Help: "Level alarms triggered, by kind",
		},
		[]string{"kind"},
	)
)

// Registry holds every chargify collector plus the Go and process
// collectors.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		ChargeLevel,
		CurrentMilliamps,
		PowerWatts,
		Voltage,
		Temperature,
		Charging,
		Estimate,
		PollErrors,
		InconsistentWindows,
		SessionsFinalized,
		SessionPersistErrors,
		AlarmsTriggered,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Direction is the label value for a charging flag.
func Direction(isCharging bool) string {
	if isCharging {
		return "charging"
	}
	return "discharging"
}

// ObserveBattery updates the battery gauges. Nil estimates are reported as
// 0.
func ObserveBattery(level int, currentMa, powerW, volts, tempC float64, isCharging bool, etaToFullMillis, remainingMillis *int64) {
	ChargeLevel.Set(float64(level))
	CurrentMilliamps.Set(currentMa)
	PowerWatts.Set(powerW)
	Voltage.Set(volts)
	Temperature.Set(tempC)
	if isCharging {
		Charging.Set(1)
	} else {
		Charging.Set(0)
	}
	Estimate.WithLabelValues("to_full").Set(millisToSeconds(etaToFullMillis))
	Estimate.WithLabelValues("remaining").Set(millisToSeconds(remainingMillis))
}

func millisToSeconds(ms *int64) float64 {
	if ms == nil {
		return 0
	}
	return float64(*ms) / 1000
}
