package readings

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	"github.com/tidwall/gjson"
)

// ParseResult holds the readings decoded from one document and the fields that could not be decoded
type ParseResult struct {
	Readings []common.Reading
	Errors   []*common.ParseError
}

// ArgsParser defines the parser arguments
type ArgsParser struct {
	Registry       *MetricRegistry
	TimestampField string
	SensorIDField  string
	Location       *time.Location
}

type parser struct {
	registry       *MetricRegistry
	timestampField string
	sensorIDField  string
	location       *time.Location
}

// NewParser creates a document parser
func NewParser(args ArgsParser) (*parser, error) {
	if check.IfNil(args.Registry) {
		return nil, errors.New("nil metric registry")
	}
	if len(args.TimestampField) == 0 {
		return nil, errors.New("empty timestamp field")
	}
	if args.Location == nil {
		return nil, errors.New("nil location")
	}

	return &parser{
		registry:       args.Registry,
		timestampField: args.TimestampField,
		sensorIDField:  args.SensorIDField,
		location:       args.Location,
	}, nil
}

// Parse decodes one raw document into canonical readings. Wide fields named <Metric>_<SensorId> are
// always decoded; when the document carries the sensor id field, plain metric columns are decoded too.
// Unparseable values are skipped and reported in the result, they never abort the document.
func (p *parser) Parse(doc common.RawDocument) ParseResult {
	result := ParseResult{}

	body := gjson.ParseBytes(doc.Body)
	if !body.IsObject() {
		result.Errors = append(result.Errors, &common.ParseError{
			DocumentID: doc.ID,
			Raw:        "document is not a JSON object",
		})
		return result
	}

	ts, err := ParseTimestamp(body.Get(common.JSONPath(p.timestampField)), p.location)
	if err != nil {
		result.Errors = append(result.Errors, &common.ParseError{
			DocumentID: doc.ID,
			Field:      p.timestampField,
			Raw:        err.Error(),
		})
		return result
	}

	rowSensorID := p.rowSensorID(body)

	body.ForEach(func(key, value gjson.Result) bool {
		field := key.String()
		if field == p.timestampField || (len(p.sensorIDField) > 0 && field == p.sensorIDField) {
			return true
		}

		metric, sensorID, ok := p.registry.SplitField(field)
		if !ok && len(rowSensorID) > 0 {
			metric, ok = p.registry.Lookup(field)
			sensorID = rowSensorID
		}
		if !ok {
			return true
		}

		v, ok := coerceValue(value)
		if !ok {
			result.Errors = append(result.Errors, &common.ParseError{
				DocumentID: doc.ID,
				Field:      field,
				Raw:        value.Raw,
			})
			return true
		}

		result.Readings = append(result.Readings, common.Reading{
			SensorID:  sensorID,
			Metric:    metric,
			Value:     v,
			Timestamp: ts,
		})
		return true
	})

	return result
}

func (p *parser) rowSensorID(body gjson.Result) string {
	if len(p.sensorIDField) == 0 {
		return ""
	}

	v := body.Get(common.JSONPath(p.sensorIDField))
	switch v.Type {
	case gjson.String, gjson.Number:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

// IsInterfaceNil returns true if the value under the interface is nil
func (p *parser) IsInterfaceNil() bool {
	return p == nil
}

func coerceValue(value gjson.Result) (float64, bool) {
	var v float64
	switch value.Type {
	case gjson.Number:
		v = value.Num
	case gjson.String:
		var err error
		v, err = strconv.ParseFloat(strings.TrimSpace(value.Str), 64)
		if err != nil {
			return 0, false
		}
	default:
		return 0, false
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}
