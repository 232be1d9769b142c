package telemetry

// DefaultHistoryCapacity is how many samples each history keeps.
const DefaultHistoryCapacity = 25

// HistoryBuffer keeps the last N samples of one metric, oldest first. It is
// not safe for concurrent use; the engine serializes access.
type HistoryBuffer struct {
	values []float64
	start  int
	size   int
}

// NewHistoryBuffer returns an empty buffer holding up to capacity samples.
// A non-positive capacity means DefaultHistoryCapacity.
func NewHistoryBuffer(capacity int) *HistoryBuffer {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryBuffer{values: make([]float64, capacity)}
}

// Push appends v, evicting the oldest sample when full.
func (h *HistoryBuffer) Push(v float64) {
	capacity := len(h.values)
	if h.size < capacity {
		h.values[(h.start+h.size)%capacity] = v
		h.size++
		return
	}
	h.values[h.start] = v
	h.start = (h.start + 1) % capacity
}

// Snapshot returns a copy of the samples in insertion order.
func (h *HistoryBuffer) Snapshot() []float64 {
	out := make([]float64, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.values[(h.start+i)%len(h.values)]
	}
	return out
}

// Len returns the number of samples held.
func (h *HistoryBuffer) Len() int {
	return h.size
}

// Cap returns the maximum number of samples held.
func (h *HistoryBuffer) Cap() int {
	return len(h.values)
}

// Clear drops all samples.
func (h *HistoryBuffer) Clear() {
	h.start = 0
	h.size = 0
}
