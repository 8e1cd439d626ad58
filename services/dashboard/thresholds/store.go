package thresholds

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/tidwall/gjson"
)

var log = logger.GetOrCreate("thresholds")

// ArgsThresholdsStore defines the threshold configuration accessor arguments
type ArgsThresholdsStore struct {
	Store      common.DocumentStore
	Collection string
	Vocabulary MetricVocabulary
}

type thresholdsStore struct {
	store      common.DocumentStore
	collection string
	vocabulary MetricVocabulary
}

// NewThresholdsStore creates the threshold configuration accessor. Mutations are not transactional across
// calls: concurrent edits race per document and the last write wins.
func NewThresholdsStore(args ArgsThresholdsStore) (*thresholdsStore, error) {
	if check.IfNil(args.Store) {
		return nil, errors.New("nil document store")
	}
	if len(args.Collection) == 0 {
		return nil, errors.New("empty thresholds collection")
	}
	if check.IfNil(args.Vocabulary) {
		return nil, errors.New("nil metric vocabulary")
	}

	return &thresholdsStore{
		store:      args.Store,
		collection: args.Collection,
		vocabulary: args.Vocabulary,
	}, nil
}

// Load returns every configured sensor keyed by sensor id
func (ts *thresholdsStore) Load(ctx context.Context) (map[string]common.ThresholdConfig, error) {
	docs, err := ts.store.GetCollection(ctx, ts.collection)
	if err != nil {
		return nil, err
	}

	configs := make(map[string]common.ThresholdConfig, len(docs))
	for _, doc := range docs {
		configs[doc.ID] = ts.decode(doc)
	}

	return configs, nil
}

// Get returns one sensor configuration or ErrSensorNotFound
func (ts *thresholdsStore) Get(ctx context.Context, sensorID string) (*common.ThresholdConfig, error) {
	doc, err := ts.store.GetDocument(ctx, ts.collection, sensorID)
	if errors.Is(err, common.ErrDocumentNotFound) {
		return nil, fmt.Errorf("%w: %s", common.ErrSensorNotFound, sensorID)
	}
	if err != nil {
		return nil, err
	}

	cfg := ts.decode(*doc)
	return &cfg, nil
}

// Add registers a new sensor with no thresholds
func (ts *thresholdsStore) Add(ctx context.Context, sensorID string, name string) error {
	sensorID = strings.TrimSpace(sensorID)
	if len(sensorID) == 0 {
		return fmt.Errorf("%w: empty sensor id", common.ErrInvalidThreshold)
	}

	_, err := ts.Get(ctx, sensorID)
	if err == nil {
		return fmt.Errorf("%w: %s", common.ErrSensorAlreadyExists, sensorID)
	}
	if !errors.Is(err, common.ErrSensorNotFound) {
		return err
	}

	err = ts.store.SetDocument(ctx, ts.collection, sensorID, map[string]interface{}{
		nameField: name,
	}, false)
	if err != nil {
		return err
	}

	log.Debug("sensor added", "sensor", sensorID, "name", name)
	return nil
}

// Save merges the supplied fields into the stored configuration, absent fields keep their values
func (ts *thresholdsStore) Save(ctx context.Context, sensorID string, patch common.ThresholdPatch) error {
	err := validatePatch(patch, ts.vocabulary)
	if err != nil {
		return err
	}

	existing, err := ts.Get(ctx, sensorID)
	if err != nil {
		return err
	}

	err = ts.store.SetDocument(ctx, ts.collection, sensorID, patchFields(patch), true)
	if err != nil {
		return err
	}

	applyPatch(existing, patch)
	for metric := range existing.Bounds {
		if existing.Misconfigured(metric) {
			b := existing.Bounds[metric]
			log.Warn("threshold min is above max, above-max alerts take precedence",
				"sensor", sensorID, "metric", metric, "min", *b.Min, "max", *b.Max)
		}
	}

	log.Debug("thresholds saved", "sensor", sensorID)
	return nil
}

// Remove deletes a sensor configuration or returns ErrSensorNotFound
func (ts *thresholdsStore) Remove(ctx context.Context, sensorID string) error {
	_, err := ts.Get(ctx, sensorID)
	if err != nil {
		return err
	}

	err = ts.store.DeleteDocument(ctx, ts.collection, sensorID)
	if err != nil {
		return err
	}

	log.Debug("sensor removed", "sensor", sensorID)
	return nil
}

// Vocabulary returns the metrics thresholds can be configured for
func (ts *thresholdsStore) Vocabulary() MetricVocabulary {
	return ts.vocabulary
}

func (ts *thresholdsStore) decode(doc common.RawDocument) common.ThresholdConfig {
	body := gjson.ParseBytes(doc.Body)
	cfg := common.ThresholdConfig{
		SensorID: doc.ID,
		Name:     body.Get(nameField).String(),
		Bounds:   make(map[string]common.Bounds),
	}

	for _, m := range ts.vocabulary.Metrics() {
		b := common.Bounds{
			Min: ts.bound(doc.ID, body, MinField(m.Prefix)),
			Max: ts.bound(doc.ID, body, MaxField(m.Prefix)),
		}
		if b.Min != nil || b.Max != nil {
			cfg.Bounds[m.Prefix] = b
		}
	}

	return cfg
}

func (ts *thresholdsStore) bound(sensorID string, body gjson.Result, field string) *float64 {
	value := body.Get(field)
	switch value.Type {
	case gjson.Null:
		return nil
	case gjson.Number:
		v := value.Num
		return &v
	default:
		log.Warn("ignoring non numeric threshold", "sensor", sensorID, "field", field, "value", value.Raw)
		return nil
	}
}

// IsInterfaceNil returns true if the value under the interface is nil
func (ts *thresholdsStore) IsInterfaceNil() bool {
	return ts == nil
}
