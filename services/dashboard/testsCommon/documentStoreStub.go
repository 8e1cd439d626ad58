package testsCommon

import (
	"context"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
)

// DocumentStoreStub -
type DocumentStoreStub struct {
	GetCollectionHandler  func(ctx context.Context, collection string) ([]common.RawDocument, error)
	GetDocumentHandler    func(ctx context.Context, collection string, id string) (*common.RawDocument, error)
	SetDocumentHandler    func(ctx context.Context, collection string, id string, fields map[string]interface{}, merge bool) error
	DeleteDocumentHandler func(ctx context.Context, collection string, id string) error
	CloseHandler          func() error
}

// GetCollection -
func (stub *DocumentStoreStub) GetCollection(ctx context.Context, collection string) ([]common.RawDocument, error) {
	if stub.GetCollectionHandler != nil {
		return stub.GetCollectionHandler(ctx, collection)
	}

	return make([]common.RawDocument, 0), nil
}

// GetDocument -
func (stub *DocumentStoreStub) GetDocument(ctx context.Context, collection string, id string) (*common.RawDocument, error) {
	if stub.GetDocumentHandler != nil {
		return stub.GetDocumentHandler(ctx, collection, id)
	}

	return nil, common.ErrDocumentNotFound
}

// SetDocument -
func (stub *DocumentStoreStub) SetDocument(ctx context.Context, collection string, id string, fields map[string]interface{}, merge bool) error {
	if stub.SetDocumentHandler != nil {
		return stub.SetDocumentHandler(ctx, collection, id, fields, merge)
	}

	return nil
}

// DeleteDocument -
func (stub *DocumentStoreStub) DeleteDocument(ctx context.Context, collection string, id string) error {
	if stub.DeleteDocumentHandler != nil {
		return stub.DeleteDocumentHandler(ctx, collection, id)
	}

	return nil
}

// Close -
func (stub *DocumentStoreStub) Close() error {
	if stub.CloseHandler != nil {
		return stub.CloseHandler()
	}

	return nil
}

// IsInterfaceNil -
func (stub *DocumentStoreStub) IsInterfaceNil() bool {
	return stub == nil
}
