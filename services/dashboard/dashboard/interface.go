package dashboard

import (
	"context"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/readings"
)

// StreamBuilder turns raw documents into a filtered reading stream
type StreamBuilder interface {
	Build(docs []common.RawDocument, filter readings.Filter) (*common.Stream, error)
	IsInterfaceNil() bool
}

// ThresholdsLoader returns the configured sensors
type ThresholdsLoader interface {
	Load(ctx context.Context) (map[string]common.ThresholdConfig, error)
	IsInterfaceNil() bool
}

// LatestSource returns the latest reading of every (sensor, metric) series, whatever the ingestion shape
type LatestSource interface {
	Latest(ctx context.Context) (*common.Stream, error)
	IsInterfaceNil() bool
}
