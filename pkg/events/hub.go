package events

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// EventHub fans published events out to subscribers. Slow subscribers miss
// events rather than block the publisher.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	latest map[string]Event
}

func NewEventHub() *EventHub {
	return &EventHub{
		subs:   make(map[chan Event]struct{}),
		latest: make(map[string]Event),
	}
}

// retained names are snapshots: a new subscriber first receives the latest
// one of each.
var retained = map[string]bool{
	BatteryState:   true,
	BatteryHistory: true,
	SessionStats:   true,
}

// Subscribe returns a channel receiving every event published from now on,
// preceded by the latest retained snapshots.
func (h *EventHub) Subscribe() chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16+len(h.latest))
	for _, ev := range h.latest {
		ch <- ev
	}
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes ch. Unknown channels are ignored.
func (h *EventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish marshals payload and sends it to every subscriber. A nil hub
// discards the event.
func (h *EventHub) Publish(name string, payload any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logrus.WithField("event", name).Errorf("failed to marshal event: %v", err)
		return
	}
	msg := Event{Name: name, Data: b}

	h.mu.Lock()
	defer h.mu.Unlock()
	if retained[name] {
		h.latest[name] = msg
	}
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Latest returns the most recent snapshot published under name.
func (h *EventHub) Latest(name string) (Event, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ev, ok := h.latest[name]
	return ev, ok
}

// Subscribers returns the number of active subscribers.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
