package common

import "context"

// DocumentStore defines the key-document store the dashboard reads gateway documents from and keeps
// its own configuration in
type DocumentStore interface {
	// GetCollection returns every document of the collection in insertion order
	GetCollection(ctx context.Context, collection string) ([]RawDocument, error)

	// GetDocument returns one document or ErrDocumentNotFound
	GetDocument(ctx context.Context, collection string, id string) (*RawDocument, error)

	// SetDocument writes the fields. With merge set, fields not provided keep their stored values.
	SetDocument(ctx context.Context, collection string, id string, fields map[string]interface{}, merge bool) error

	// DeleteDocument removes the document. Deleting a missing document is not an error.
	DeleteDocument(ctx context.Context, collection string, id string) error

	// Close releases the underlying database
	Close() error

	IsInterfaceNil() bool
}
