package factory

import (
	"context"
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
)

// Server defines the operation of an entity able to serve requests
type Server interface {
	Start()
	Address() string
	Close() error
}

// DashboardHandler defines the read side of the dashboard used by the command line tools
type DashboardHandler interface {
	LiveView(ctx context.Context) (*common.LiveView, error)
	History(ctx context.Context, query common.HistoryQuery) (*common.Stream, error)
	Location() *time.Location
	IsInterfaceNil() bool
}

// ComponentsHandler defines the wired dashboard service
type ComponentsHandler interface {
	GetStore() common.DocumentStore
	GetDashboard() DashboardHandler
	GetServer() Server
	Start()
	Close()
}
