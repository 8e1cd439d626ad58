package dashboard

import (
	"context"
	"errors"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/readings"
	"github.com/multiversx/mx-chain-core-go/core/check"
)

// ArgsLatestSource defines the arguments of the latest readings sources
type ArgsLatestSource struct {
	Store      common.DocumentStore
	Builder    StreamBuilder
	Collection string
	// DocumentID names the rolling current-state document, snapshot mode only. Empty means the whole
	// collection holds one rolling document per sensor.
	DocumentID string
}

type latestSource struct {
	store      common.DocumentStore
	builder    StreamBuilder
	collection string
	fetch      func(ctx context.Context) ([]common.RawDocument, error)
}

func newLatestSource(args ArgsLatestSource) (*latestSource, error) {
	if check.IfNil(args.Store) {
		return nil, errors.New("nil document store")
	}
	if check.IfNil(args.Builder) {
		return nil, errors.New("nil stream builder")
	}
	if len(args.Collection) == 0 {
		return nil, errors.New("empty readings collection")
	}

	return &latestSource{
		store:      args.Store,
		builder:    args.Builder,
		collection: args.Collection,
	}, nil
}

// NewHistorySource creates a source that scans the full history collection
func NewHistorySource(args ArgsLatestSource) (*latestSource, error) {
	ls, err := newLatestSource(args)
	if err != nil {
		return nil, err
	}
	ls.fetch = ls.scanCollection

	return ls, nil
}

// NewSnapshotSource creates a source that reads the gateway's rolling current-state document(s)
func NewSnapshotSource(args ArgsLatestSource) (*latestSource, error) {
	ls, err := newLatestSource(args)
	if err != nil {
		return nil, err
	}

	ls.fetch = ls.scanCollection
	if len(args.DocumentID) > 0 {
		documentID := args.DocumentID
		ls.fetch = func(ctx context.Context) ([]common.RawDocument, error) {
			return ls.readDocument(ctx, documentID)
		}
	}

	return ls, nil
}

// Latest returns the latest readings ordered by sensor id then metric
func (ls *latestSource) Latest(ctx context.Context) (*common.Stream, error) {
	docs, err := ls.fetch(ctx)
	if err != nil {
		return nil, err
	}

	stream, err := ls.builder.Build(docs, readings.Filter{})
	if err != nil {
		return nil, err
	}
	stream.Readings = readings.Sorted(readings.Latest(stream.Readings))

	return stream, nil
}

func (ls *latestSource) scanCollection(ctx context.Context) ([]common.RawDocument, error) {
	return ls.store.GetCollection(ctx, ls.collection)
}

func (ls *latestSource) readDocument(ctx context.Context, documentID string) ([]common.RawDocument, error) {
	doc, err := ls.store.GetDocument(ctx, ls.collection, documentID)
	if errors.Is(err, common.ErrDocumentNotFound) {
		log.Debug("snapshot document not written yet", "collection", ls.collection, "document", documentID)
		return make([]common.RawDocument, 0), nil
	}
	if err != nil {
		return nil, err
	}

	return []common.RawDocument{*doc}, nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (ls *latestSource) IsInterfaceNil() bool {
	return ls == nil
}
