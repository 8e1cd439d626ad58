package thresholds

import (
	"fmt"
	"math"
	"strings"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/tidwall/gjson"
)

const (
	nameField    = "name"
	minSuffix    = "_min_threshold"
	maxSuffix    = "_max_threshold"
	boundMinKind = "min"
	boundMaxKind = "max"
)

// MinField returns the stored field name of the metric's min threshold
func MinField(metric string) string {
	return metric + minSuffix
}

// MaxField returns the stored field name of the metric's max threshold
func MaxField(metric string) string {
	return metric + maxSuffix
}

func splitThresholdField(field string) (metric string, kind string, ok bool) {
	switch {
	case strings.HasSuffix(field, minSuffix):
		return strings.TrimSuffix(field, minSuffix), boundMinKind, true
	case strings.HasSuffix(field, maxSuffix):
		return strings.TrimSuffix(field, maxSuffix), boundMaxKind, true
	default:
		return "", "", false
	}
}

// ParsePatch decodes the flat, column-sparse JSON object sent by the threshold table editor, for example
// {"name": "Boiler", "Temp_max_threshold": 80}
func ParsePatch(body []byte, vocabulary MetricVocabulary) (common.ThresholdPatch, error) {
	patch := common.ThresholdPatch{}
	if !gjson.ValidBytes(body) {
		return patch, fmt.Errorf("%w: malformed JSON", common.ErrInvalidThreshold)
	}

	obj := gjson.ParseBytes(body)
	if !obj.IsObject() {
		return patch, fmt.Errorf("%w: expected a JSON object", common.ErrInvalidThreshold)
	}

	var err error
	obj.ForEach(func(key, value gjson.Result) bool {
		field := key.String()
		if field == nameField {
			if value.Type != gjson.String {
				err = fmt.Errorf("%w: name must be a string", common.ErrInvalidThreshold)
				return false
			}
			name := value.Str
			patch.Name = &name
			return true
		}

		metric, kind, ok := splitThresholdField(field)
		if !ok || !vocabulary.Has(metric) {
			err = fmt.Errorf("%w: unknown field %q", common.ErrInvalidThreshold, field)
			return false
		}
		if value.Type != gjson.Number {
			err = fmt.Errorf("%w: %s must be a number", common.ErrInvalidThreshold, field)
			return false
		}

		if kind == boundMinKind {
			if patch.Min == nil {
				patch.Min = make(map[string]float64)
			}
			patch.Min[metric] = value.Num
		} else {
			if patch.Max == nil {
				patch.Max = make(map[string]float64)
			}
			patch.Max[metric] = value.Num
		}
		return true
	})

	return patch, err
}

func validatePatch(patch common.ThresholdPatch, vocabulary MetricVocabulary) error {
	if patch.IsEmpty() {
		return fmt.Errorf("%w: empty update", common.ErrInvalidThreshold)
	}

	for _, bounds := range []map[string]float64{patch.Min, patch.Max} {
		for metric, v := range bounds {
			if !vocabulary.Has(metric) {
				return fmt.Errorf("%w: unknown metric %q", common.ErrInvalidThreshold, metric)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s threshold is not finite", common.ErrInvalidThreshold, metric)
			}
		}
	}

	return nil
}

func patchFields(patch common.ThresholdPatch) map[string]interface{} {
	fields := make(map[string]interface{}, len(patch.Min)+len(patch.Max)+1)
	if patch.Name != nil {
		fields[nameField] = *patch.Name
	}
	for metric, v := range patch.Min {
		fields[MinField(metric)] = v
	}
	for metric, v := range patch.Max {
		fields[MaxField(metric)] = v
	}

	return fields
}

func applyPatch(cfg *common.ThresholdConfig, patch common.ThresholdPatch) {
	if patch.Name != nil {
		cfg.Name = *patch.Name
	}
	if cfg.Bounds == nil {
		cfg.Bounds = make(map[string]common.Bounds)
	}
	for metric, v := range patch.Min {
		v := v
		b := cfg.Bounds[metric]
		b.Min = &v
		cfg.Bounds[metric] = b
	}
	for metric, v := range patch.Max {
		v := v
		b := cfg.Bounds[metric]
		b.Max = &v
		cfg.Bounds[metric] = b
	}
}
