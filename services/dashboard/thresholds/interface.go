package thresholds

import "github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/config"

// MetricVocabulary defines the registered metrics thresholds may be configured for
type MetricVocabulary interface {
	Has(metric string) bool
	Metrics() []config.MetricConfig
	IsInterfaceNil() bool
}
