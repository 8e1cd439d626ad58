package readings

import (
	"errors"
	"fmt"
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("readings")

// Filter restricts a stream to one sensor and/or an inclusive time window. Zero values mean unbounded.
type Filter struct {
	SensorID string
	From     time.Time
	To       time.Time
}

// Validate returns ErrInvalidRange if both bounds are set and from is after to
func (f Filter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return fmt.Errorf("%w: %s > %s", common.ErrInvalidRange, f.From.Format(time.RFC3339Nano), f.To.Format(time.RFC3339Nano))
	}

	return nil
}

// Match returns true if the reading survives the filter
func (f Filter) Match(r common.Reading) bool {
	if len(f.SensorID) > 0 && r.SensorID != f.SensorID {
		return false
	}
	if !f.From.IsZero() && r.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Timestamp.After(f.To) {
		return false
	}

	return true
}

type streamBuilder struct {
	parser DocumentParser
}

// NewStreamBuilder creates a stream builder on top of the provided parser
func NewStreamBuilder(parser DocumentParser) (*streamBuilder, error) {
	if check.IfNil(parser) {
		return nil, errors.New("nil document parser")
	}

	return &streamBuilder{
		parser: parser,
	}, nil
}

// Build parses every document in order and keeps the readings that match the filter
func (sb *streamBuilder) Build(docs []common.RawDocument, filter Filter) (*common.Stream, error) {
	err := filter.Validate()
	if err != nil {
		return nil, err
	}

	stream := &common.Stream{
		Readings: make([]common.Reading, 0, len(docs)),
	}
	for _, doc := range docs {
		res := sb.parser.Parse(doc)
		stream.ParseErrors = append(stream.ParseErrors, res.Errors...)

		for _, r := range res.Readings {
			if filter.Match(r) {
				stream.Readings = append(stream.Readings, r)
			}
		}
	}

	if len(stream.ParseErrors) > 0 {
		first := stream.ParseErrors[0]
		log.Warn("skipped unparseable fields", "count", len(stream.ParseErrors),
			"first document", first.DocumentID, "first field", first.Field)
	}
	log.Trace("stream built", "documents", len(docs), "readings", len(stream.Readings))

	return stream, nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (sb *streamBuilder) IsInterfaceNil() bool {
	return sb == nil
}
