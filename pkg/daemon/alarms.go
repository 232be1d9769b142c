package daemon

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ahmmedrejowan/chargify/pkg/alarm"
	"github.com/ahmmedrejowan/chargify/pkg/events"
	"github.com/ahmmedrejowan/chargify/pkg/telemetry"
)

// runAlarms evaluates every published battery state until ctx is done.
func runAlarms(ctx context.Context, hub *events.EventHub, evaluator *alarm.Evaluator) {
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Name != events.BatteryState {
				continue
			}
			state, err := events.DecodeAs[telemetry.BatteryState](ev)
			if err != nil {
				logrus.Errorf("failed to decode battery state: %v", err)
				continue
			}
			if state.UpdatedAt == 0 {
				continue
			}
			evaluator.Evaluate(state.ChargeLevel, state.IsCharging)
		}
	}
}
