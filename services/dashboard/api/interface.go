package api

import (
	"context"
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/thresholds"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/users"
)

// Dashboard defines the read side served to the frontend
type Dashboard interface {
	// LiveView returns the evaluated latest reading of every series
	LiveView(ctx context.Context) (*common.LiveView, error)

	// History returns the readings matching the raw query
	History(ctx context.Context, query common.HistoryQuery) (*common.Stream, error)

	// Location returns the display time zone
	Location() *time.Location

	IsInterfaceNil() bool
}

// ThresholdsHandler defines the threshold configuration operations exposed to the device managers
type ThresholdsHandler interface {
	Load(ctx context.Context) (map[string]common.ThresholdConfig, error)
	Add(ctx context.Context, sensorID string, name string) error
	Save(ctx context.Context, sensorID string, patch common.ThresholdPatch) error
	Remove(ctx context.Context, sensorID string) error
	Vocabulary() thresholds.MetricVocabulary
	IsInterfaceNil() bool
}

// UserDirectory defines the account operations
type UserDirectory interface {
	Authenticate(ctx context.Context, username string, password string) (*common.User, error)
	List(ctx context.Context, viewer common.User) ([]common.User, error)
	Add(ctx context.Context, newUser users.NewUser) error
	Remove(ctx context.Context, username string) error
	IsInterfaceNil() bool
}
