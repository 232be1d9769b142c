package redis

import (
	"fmt"
	"strconv"

	"github.com/ahmmedrejowan/chargify/pkg/storage"
)

func sessionToHash(s storage.ChargingSession) map[string]any {
	return map[string]any{
		"id":                   s.ID,
		"start_time":           s.StartTime,
		"end_time":             s.EndTime,
		"start_level":          s.StartLevel,
		"end_level":            s.EndLevel,
		"is_charging":          strconv.FormatBool(s.IsCharging),
		"power_source":         s.PowerSource,
		"average_current_ma":   strconv.FormatFloat(s.AverageCurrentMa, 'f', -1, 64),
		"average_temp_celsius": strconv.FormatFloat(s.AverageTempC, 'f', -1, 64),
	}
}

// parseSession converts a redis hash back into a ChargingSession.
func parseSession(data map[string]string) (storage.ChargingSession, error) {
	var (
		s   storage.ChargingSession
		err error
	)

	if s.ID, err = strconv.ParseInt(data["id"], 10, 64); err != nil {
		return s, fmt.Errorf("failed to parse id: %w", err)
	}
	if s.StartTime, err = strconv.ParseInt(data["start_time"], 10, 64); err != nil {
		return s, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if s.EndTime, err = strconv.ParseInt(data["end_time"], 10, 64); err != nil {
		return s, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if s.StartLevel, err = strconv.Atoi(data["start_level"]); err != nil {
		return s, fmt.Errorf("failed to parse start_level: %w", err)
	}
	if s.EndLevel, err = strconv.Atoi(data["end_level"]); err != nil {
		return s, fmt.Errorf("failed to parse end_level: %w", err)
	}
	if s.IsCharging, err = strconv.ParseBool(data["is_charging"]); err != nil {
		return s, fmt.Errorf("failed to parse is_charging: %w", err)
	}
	if s.AverageCurrentMa, err = strconv.ParseFloat(data["average_current_ma"], 64); err != nil {
		return s, fmt.Errorf("failed to parse average_current_ma: %w", err)
	}
	if s.AverageTempC, err = strconv.ParseFloat(data["average_temp_celsius"], 64); err != nil {
		return s, fmt.Errorf("failed to parse average_temp_celsius: %w", err)
	}
	s.PowerSource = data["power_source"]

	return s, nil
}
