package factory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/api"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/config"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/dashboard"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/readings"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/storage"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/thresholds"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/users"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const inMemoryPath = ":memory:"

var log = logger.GetOrCreate("factory")

// ArgsComponentsHandler defines the components handler arguments
type ArgsComponentsHandler struct {
	Config        config.Config
	WorkingDir    string
	ServiceKeyApi string
	AdminUsername string
	AdminPassword string
	// BcryptCost defaults to bcrypt.DefaultCost when zero
	BcryptCost int
}

type componentsHandler struct {
	store     common.DocumentStore
	dashboard DashboardHandler
	server    Server
}

// NewComponentsHandler creates every component of the dashboard service and wires them together
func NewComponentsHandler(args ArgsComponentsHandler) (*componentsHandler, error) {
	cfg := args.Config
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if len(args.AdminUsername) == 0 || len(args.AdminPassword) == 0 {
		return nil, errors.New("empty admin credentials")
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg.Store, args.WorkingDir)
	if err != nil {
		return nil, err
	}

	ch, err := createComponents(args, store, loc)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	log.Debug("components created", "store", cfg.Store.Type, "readings mode", cfg.Readings.Mode, "timezone", loc.String())

	return ch, nil
}

func createStore(cfg config.StoreConfig, workingDir string) (common.DocumentStore, error) {
	path := cfg.Path
	if path != inMemoryPath && !filepath.IsAbs(path) {
		path = filepath.Join(workingDir, path)
	}

	switch cfg.Type {
	case config.StoreTypeSQLite:
		return storage.NewSQLiteStorage(path)
	case config.StoreTypeBadger:
		return storage.NewBadgerStorage(path, cfg.CompressionLevel)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

func createComponents(args ArgsComponentsHandler, store common.DocumentStore, loc *time.Location) (*componentsHandler, error) {
	cfg := args.Config
	registry, err := readings.NewMetricRegistry(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	parser, err := readings.NewParser(readings.ArgsParser{
		Registry:       registry,
		TimestampField: cfg.Readings.TimestampField,
		SensorIDField:  cfg.Readings.SensorIDField,
		Location:       loc,
	})
	if err != nil {
		return nil, err
	}

	builder, err := readings.NewStreamBuilder(parser)
	if err != nil {
		return nil, err
	}

	thresholdsStore, err := thresholds.NewThresholdsStore(thresholds.ArgsThresholdsStore{
		Store:      store,
		Collection: cfg.Collections.Thresholds,
		Vocabulary: registry,
	})
	if err != nil {
		return nil, err
	}

	source, err := createLatestSource(cfg.Readings, store, builder)
	if err != nil {
		return nil, err
	}

	dash, err := dashboard.NewDashboard(dashboard.ArgsDashboard{
		Store:             store,
		Source:            source,
		Builder:           builder,
		Thresholds:        thresholdsStore,
		Metrics:           cfg.Metrics,
		HistoryCollection: cfg.Readings.HistoryCollection,
		StalenessCutoff:   cfg.StalenessCutoff.Duration(),
		InclusiveDateEnd:  cfg.InclusiveDateEnd,
		Location:          loc,
	})
	if err != nil {
		return nil, err
	}

	directory, err := users.NewUserDirectory(users.ArgsUserDirectory{
		Store:      store,
		Collection: cfg.Collections.Users,
		BcryptCost: args.BcryptCost,
	})
	if err != nil {
		return nil, err
	}

	err = directory.EnsureUser(context.Background(), users.NewUser{
		Username: args.AdminUsername,
		Password: args.AdminPassword,
		Role:     common.RoleSuperAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("%w while creating the admin account", err)
	}

	server, err := api.NewServer(api.ArgsWebServer{
		ServiceKeyApi:   args.ServiceKeyApi,
		ListenAddress:   cfg.ListenAddress,
		StaticDir:       cfg.StaticDir,
		SessionLifetime: cfg.SessionLifetime.Duration(),
		PublicConfig:    publicConfig(cfg),
		Dashboard:       dash,
		Thresholds:      thresholdsStore,
		Users:           directory,
		GeneralHandler:  api.CORSMiddleware,
	})
	if err != nil {
		return nil, err
	}

	return &componentsHandler{
		store:     store,
		dashboard: dash,
		server:    server,
	}, nil
}

func createLatestSource(cfg config.ReadingsConfig, store common.DocumentStore, builder dashboard.StreamBuilder) (dashboard.LatestSource, error) {
	args := dashboard.ArgsLatestSource{
		Store:      store,
		Builder:    builder,
		Collection: cfg.HistoryCollection,
	}

	if cfg.Mode == config.ReadingsModeSnapshot {
		args.Collection = cfg.SnapshotCollection
		args.DocumentID = cfg.SnapshotDocument
		return dashboard.NewSnapshotSource(args)
	}

	return dashboard.NewHistorySource(args)
}

func publicConfig(cfg config.Config) api.PublicConfig {
	cutoff, _ := cfg.StalenessCutoff.MarshalText()

	metrics := make([]api.MetricInfo, 0, len(cfg.Metrics))
	for _, m := range cfg.Metrics {
		metrics = append(metrics, api.MetricInfo{
			Prefix: m.Prefix,
			Label:  m.Label,
			Unit:   m.Unit,
		})
	}

	return api.PublicConfig{
		RefreshIntervalInSeconds: cfg.RefreshIntervalInSeconds,
		StalenessCutoff:          string(cutoff),
		Timezone:                 cfg.Timezone,
		Metrics:                  metrics,
	}
}

// GetStore returns the document store component
func (ch *componentsHandler) GetStore() common.DocumentStore {
	return ch.store
}

// GetDashboard returns the dashboard component
func (ch *componentsHandler) GetDashboard() DashboardHandler {
	return ch.dashboard
}

// GetServer returns the server component
func (ch *componentsHandler) GetServer() Server {
	return ch.server
}

// Start starts the inner components
func (ch *componentsHandler) Start() {
	ch.server.Start()
}

// Close closes the inner components
func (ch *componentsHandler) Close() {
	err := ch.server.Close()
	if err != nil {
		log.Warn("error closing the server", "error", err)
	}

	err = ch.store.Close()
	if err != nil {
		log.Warn("error closing the document store", "error", err)
	}
}
