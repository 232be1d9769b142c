package telemetry

import "math"

// DefaultEstimateWindow is how many current samples feed one estimate.
const DefaultEstimateWindow = 5

const millisPerHour = 3_600_000

// Estimate holds the projected time to full or time remaining. At most one
// field is set.
type Estimate struct {
	EtaToFullMillis     *int64 `json:"etaToFullMillis,omitempty"`
	TimeRemainingMillis *int64 `json:"timeRemainingMillis,omitempty"`
}

// SamplesConsistent reports whether every sample has the same sign, i.e.
// |sum| equals the sum of magnitudes. An empty window is inconsistent.
func SamplesConsistent(samples []float64) bool {
	if len(samples) == 0 {
		return false
	}
	var sum, sumAbs float64
	for _, s := range samples {
		sum += s
		sumAbs += math.Abs(s)
	}
	return math.Abs(sum) == sumAbs
}

// EstimateTime projects charging or discharging time from a window of
// signed current samples in mA. The second return value is false when the
// window mixes signs; the caller should then drop the window.
//
// Without a known capacity both fields stay nil.
func EstimateTime(samples []float64, isCharging bool, level int, capacityMah *int) (Estimate, bool) {
	if !SamplesConsistent(samples) {
		return Estimate{}, false
	}
	if capacityMah == nil {
		return Estimate{}, true
	}

	var total float64
	for _, s := range samples {
		total += math.Abs(s)
	}
	avg := total / float64(len(samples))

	if isCharging {
		return Estimate{EtaToFullMillis: EtaToFull(avg, level, *capacityMah)}, true
	}
	return Estimate{TimeRemainingMillis: TimeRemaining(avg, level, *capacityMah)}, true
}

// EtaToFull returns milliseconds until 100% at avgCurrentMa, or nil when it
// cannot be projected.
func EtaToFull(avgCurrentMa float64, level, capacityMah int) *int64 {
	if avgCurrentMa <= 0 || capacityMah <= 0 || level >= 100 {
		return nil
	}
	remaining := float64(100-level) / 100 * float64(capacityMah)
	return hoursToMillis(math.Abs(remaining / avgCurrentMa))
}

// TimeRemaining returns milliseconds until 0% at avgCurrentMa, or nil when
// it cannot be projected.
func TimeRemaining(avgCurrentMa float64, level, capacityMah int) *int64 {
	if avgCurrentMa <= 0 || capacityMah <= 0 || level <= 0 {
		return nil
	}
	remaining := float64(level) / 100 * float64(capacityMah)
	return hoursToMillis(math.Abs(remaining / avgCurrentMa))
}

func hoursToMillis(hours float64) *int64 {
	ms := int64(hours * millisPerHour)
	return &ms
}
