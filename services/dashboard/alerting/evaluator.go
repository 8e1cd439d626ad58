package alerting

import (
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
)

// Evaluate derives the alert state and staleness of the latest reading of a series.
// A nil reading means the sensor is configured but has no data, reported apart from a normal state.
// When min is above max the above-max check wins, callers can detect the case with ThresholdConfig.Misconfigured.
func Evaluate(reading *common.Reading, cfg *common.ThresholdConfig, now time.Time, ageCutoff time.Duration) common.Evaluation {
	if reading == nil {
		return common.Evaluation{
			Alert:  common.AlertNormal,
			NoData: true,
		}
	}

	return common.Evaluation{
		Alert: alertState(reading, cfg),
		Stale: now.Sub(reading.Timestamp) > ageCutoff,
	}
}

func alertState(reading *common.Reading, cfg *common.ThresholdConfig) common.AlertState {
	bounds, ok := cfg.BoundsFor(reading.Metric)
	if !ok {
		return common.AlertNormal
	}

	if bounds.Max != nil && reading.Value > *bounds.Max {
		return common.AlertAboveMax
	}
	if bounds.Min != nil && reading.Value < *bounds.Min {
		return common.AlertBelowMin
	}

	return common.AlertNormal
}
