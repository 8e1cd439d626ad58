package readings

import (
	"sort"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
)

// Latest keeps the most recent reading per (sensor, metric). On equal timestamps the reading seen last wins.
func Latest(readings []common.Reading) map[common.ReadingKey]common.Reading {
	latest := make(map[common.ReadingKey]common.Reading)
	for _, r := range readings {
		key := r.Key()
		existing, found := latest[key]
		if found && r.Timestamp.Before(existing.Timestamp) {
			continue
		}

		latest[key] = r
	}

	return latest
}

// Sorted flattens a latest map ordered by sensor id then metric
func Sorted(latest map[common.ReadingKey]common.Reading) []common.Reading {
	out := make([]common.Reading, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SensorID != out[j].SensorID {
			return out[i].SensorID < out[j].SensorID
		}
		return out[i].Metric < out[j].Metric
	})

	return out
}
