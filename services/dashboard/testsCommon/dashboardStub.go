package testsCommon

import (
	"context"
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
)

// DashboardStub -
type DashboardStub struct {
	LiveViewHandler func(ctx context.Context) (*common.LiveView, error)
	HistoryHandler  func(ctx context.Context, query common.HistoryQuery) (*common.Stream, error)
	LocationHandler func() *time.Location
}

// LiveView -
func (stub *DashboardStub) LiveView(ctx context.Context) (*common.LiveView, error) {
	if stub.LiveViewHandler != nil {
		return stub.LiveViewHandler(ctx)
	}

	return &common.LiveView{Rows: make([]common.LiveRow, 0)}, nil
}

// History -
func (stub *DashboardStub) History(ctx context.Context, query common.HistoryQuery) (*common.Stream, error) {
	if stub.HistoryHandler != nil {
		return stub.HistoryHandler(ctx, query)
	}

	return &common.Stream{Readings: make([]common.Reading, 0)}, nil
}

// Location -
func (stub *DashboardStub) Location() *time.Location {
	if stub.LocationHandler != nil {
		return stub.LocationHandler()
	}

	return time.UTC
}

// IsInterfaceNil -
func (stub *DashboardStub) IsInterfaceNil() bool {
	return stub == nil
}
