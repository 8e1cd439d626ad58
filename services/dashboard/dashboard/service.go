package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/alerting"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/config"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/readings"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("dashboard")

// ArgsDashboard defines the dashboard service arguments
type ArgsDashboard struct {
	Store             common.DocumentStore
	Source            LatestSource
	Builder           StreamBuilder
	Thresholds        ThresholdsLoader
	Metrics           []config.MetricConfig
	HistoryCollection string
	StalenessCutoff   time.Duration
	InclusiveDateEnd  bool
	Location          *time.Location
	Clock             func() time.Time
}

type dashboard struct {
	store             common.DocumentStore
	source            LatestSource
	builder           StreamBuilder
	thresholds        ThresholdsLoader
	units             map[string]string
	historyCollection string
	stalenessCutoff   time.Duration
	inclusiveDateEnd  bool
	location          *time.Location
	clock             func() time.Time
}

// NewDashboard creates the read-transform service behind the live view and the history pages
func NewDashboard(args ArgsDashboard) (*dashboard, error) {
	if check.IfNil(args.Store) {
		return nil, errors.New("nil document store")
	}
	if check.IfNil(args.Source) {
		return nil, errors.New("nil latest source")
	}
	if check.IfNil(args.Builder) {
		return nil, errors.New("nil stream builder")
	}
	if check.IfNil(args.Thresholds) {
		return nil, errors.New("nil thresholds loader")
	}
	if len(args.HistoryCollection) == 0 {
		return nil, errors.New("empty history collection")
	}
	if args.StalenessCutoff <= 0 {
		return nil, fmt.Errorf("invalid staleness cutoff %v", args.StalenessCutoff)
	}
	if args.Location == nil {
		return nil, errors.New("nil location")
	}

	clock := args.Clock
	if clock == nil {
		clock = time.Now
	}

	units := make(map[string]string, len(args.Metrics))
	for _, m := range args.Metrics {
		units[m.Prefix] = m.Unit
	}

	return &dashboard{
		store:             args.Store,
		source:            args.Source,
		builder:           args.Builder,
		thresholds:        args.Thresholds,
		units:             units,
		historyCollection: args.HistoryCollection,
		stalenessCutoff:   args.StalenessCutoff,
		inclusiveDateEnd:  args.InclusiveDateEnd,
		location:          args.Location,
		clock:             clock,
	}, nil
}

// LiveView evaluates the latest reading of every series against the configured thresholds.
// Configured sensors without any reading get a single no-data row.
func (d *dashboard) LiveView(ctx context.Context) (*common.LiveView, error) {
	configs, err := d.thresholds.Load(ctx)
	if err != nil {
		return nil, err
	}

	stream, err := d.source.Latest(ctx)
	if err != nil {
		return nil, err
	}

	now := d.clock().In(d.location)
	view := &common.LiveView{
		GeneratedAt: now,
		Rows:        make([]common.LiveRow, 0, len(stream.Readings)+len(configs)),
		ParseErrors: len(stream.ParseErrors),
	}

	withData := make(map[string]struct{})
	for i := range stream.Readings {
		r := stream.Readings[i]
		withData[r.SensorID] = struct{}{}

		var cfg *common.ThresholdConfig
		stored, found := configs[r.SensorID]
		if found {
			cfg = &stored
		}

		view.Rows = append(view.Rows, d.liveRow(r, cfg, now))
	}

	for sensorID, cfg := range configs {
		if _, found := withData[sensorID]; found {
			continue
		}

		view.Rows = append(view.Rows, common.LiveRow{
			SensorID:   sensorID,
			SensorName: cfg.Name,
			Evaluation: alerting.Evaluate(nil, &cfg, now, d.stalenessCutoff),
		})
	}

	sort.SliceStable(view.Rows, func(i, j int) bool {
		if view.Rows[i].SensorID != view.Rows[j].SensorID {
			return view.Rows[i].SensorID < view.Rows[j].SensorID
		}
		return view.Rows[i].Metric < view.Rows[j].Metric
	})

	log.Trace("live view generated", "rows", len(view.Rows), "parse errors", view.ParseErrors)

	return view, nil
}

func (d *dashboard) liveRow(r common.Reading, cfg *common.ThresholdConfig, now time.Time) common.LiveRow {
	value := r.Value
	ts := r.Timestamp.In(d.location)

	row := common.LiveRow{
		SensorID:   r.SensorID,
		Metric:     r.Metric,
		Value:      &value,
		Timestamp:  &ts,
		Display:    d.display(r),
		Evaluation: alerting.Evaluate(&r, cfg, now, d.stalenessCutoff),
	}
	if cfg != nil {
		row.SensorName = cfg.Name
		bounds, _ := cfg.BoundsFor(r.Metric)
		row.Min = bounds.Min
		row.Max = bounds.Max
		row.Misconfigured = cfg.Misconfigured(r.Metric)
	}

	return row
}

func (d *dashboard) display(r common.Reading) string {
	value := strconv.FormatFloat(r.Value, 'f', -1, 64)
	unit := d.units[r.Metric]
	if len(unit) == 0 {
		return value
	}

	return value + " " + unit
}

// History returns the readings matching the query, in document order. Inverted ranges are rejected
// before the store is read.
func (d *dashboard) History(ctx context.Context, query common.HistoryQuery) (*common.Stream, error) {
	filter, err := d.filter(query)
	if err != nil {
		return nil, err
	}

	docs, err := d.store.GetCollection(ctx, d.historyCollection)
	if err != nil {
		return nil, err
	}

	return d.builder.Build(docs, filter)
}

func (d *dashboard) filter(query common.HistoryQuery) (readings.Filter, error) {
	from, err := readings.ParseBound(query.From, false, d.inclusiveDateEnd, d.location)
	if err != nil {
		return readings.Filter{}, fmt.Errorf("%w: from: %v", common.ErrInvalidRange, err)
	}
	to, err := readings.ParseBound(query.To, true, d.inclusiveDateEnd, d.location)
	if err != nil {
		return readings.Filter{}, fmt.Errorf("%w: to: %v", common.ErrInvalidRange, err)
	}

	filter := readings.Filter{
		SensorID: query.SensorID,
		From:     from,
		To:       to,
	}

	return filter, filter.Validate()
}

// Location returns the display time zone
func (d *dashboard) Location() *time.Location {
	return d.location
}

// IsInterfaceNil returns true if the value under the interface is nil
func (d *dashboard) IsInterfaceNil() bool {
	return d == nil
}
