package readings

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/config"
)

const fieldSeparator = "_"

// MetricRegistry holds the known metric prefixes. Field names are matched against the longest prefix first.
type MetricRegistry struct {
	metrics  []config.MetricConfig
	byPrefix map[string]config.MetricConfig
	byLower  map[string]string
	ordered  []string
}

// NewMetricRegistry creates the registry from the configured metrics
func NewMetricRegistry(metrics []config.MetricConfig) (*MetricRegistry, error) {
	if len(metrics) == 0 {
		return nil, errors.New("empty metric registry")
	}

	reg := &MetricRegistry{
		metrics:  make([]config.MetricConfig, 0, len(metrics)),
		byPrefix: make(map[string]config.MetricConfig, len(metrics)),
		byLower:  make(map[string]string, len(metrics)),
		ordered:  make([]string, 0, len(metrics)),
	}
	for _, m := range metrics {
		if len(m.Prefix) == 0 || strings.Contains(m.Prefix, fieldSeparator) {
			return nil, fmt.Errorf("invalid metric prefix %q", m.Prefix)
		}
		if _, found := reg.byPrefix[m.Prefix]; found {
			return nil, fmt.Errorf("duplicated metric prefix %q", m.Prefix)
		}

		reg.metrics = append(reg.metrics, m)
		reg.byPrefix[m.Prefix] = m
		reg.byLower[strings.ToLower(m.Prefix)] = m.Prefix
		reg.ordered = append(reg.ordered, m.Prefix)
	}

	sort.SliceStable(reg.ordered, func(i, j int) bool {
		return len(reg.ordered[i]) > len(reg.ordered[j])
	})

	return reg, nil
}

// SplitField decodes a <Metric>_<SensorId> field name
func (reg *MetricRegistry) SplitField(field string) (metric string, sensorID string, ok bool) {
	for _, prefix := range reg.ordered {
		if !strings.HasPrefix(field, prefix+fieldSeparator) {
			continue
		}

		sensorID = field[len(prefix)+len(fieldSeparator):]
		if len(sensorID) == 0 {
			return "", "", false
		}

		return prefix, sensorID, true
	}

	return "", "", false
}

// Lookup returns the canonical metric name for a case-insensitive column name
func (reg *MetricRegistry) Lookup(name string) (string, bool) {
	metric, ok := reg.byLower[strings.ToLower(name)]
	return metric, ok
}

// Has returns true if the metric prefix is registered
func (reg *MetricRegistry) Has(metric string) bool {
	_, ok := reg.byPrefix[metric]
	return ok
}

// Metrics returns the registered metrics in configuration order
func (reg *MetricRegistry) Metrics() []config.MetricConfig {
	out := make([]config.MetricConfig, len(reg.metrics))
	copy(out, reg.metrics)
	return out
}

// IsInterfaceNil returns true if the value under the interface is nil
func (reg *MetricRegistry) IsInterfaceNil() bool {
	return reg == nil
}
