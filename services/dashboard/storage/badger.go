package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
)

const seqBandwidth = 100

var seqKey = []byte{keySeparator, 's', 'e', 'q'}

// badgerStorage is the badger implementation of the document store. Values are zstd packed and carry
// an insertion sequence so collection scans come back in insertion order.
type badgerStorage struct {
	db         *badger.DB
	seq        *badger.Sequence
	compressor *compressor
}

// NewBadgerStorage opens the badger database in dir, or an in-memory one for ":memory:"
func NewBadgerStorage(dir string, compressionLevel int) (*badgerStorage, error) {
	opts := badger.DefaultOptions(dir)
	if dir == inMemoryPath {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(&badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	seq, err := db.GetSequence(seqKey, seqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sequence: %w", err)
	}

	comp, err := newCompressor(compressionLevel)
	if err != nil {
		_ = seq.Release()
		_ = db.Close()
		return nil, err
	}

	log.Debug("badger document store opened", "dir", dir)

	return &badgerStorage{
		db:         db,
		seq:        seq,
		compressor: comp,
	}, nil
}

func documentKey(collection string, id string) []byte {
	key := make([]byte, 0, len(collection)+len(id)+1)
	key = append(key, collection...)
	key = append(key, keySeparator)
	return append(key, id...)
}

func collectionPrefix(collection string) []byte {
	return append([]byte(collection), keySeparator)
}

type sequencedDocument struct {
	seq uint64
	doc common.RawDocument
}

// GetCollection returns the collection documents in insertion order
func (s *badgerStorage) GetCollection(_ context.Context, collection string) ([]common.RawDocument, error) {
	if len(collection) == 0 {
		return nil, common.ErrInvalidCollection
	}

	prefix := collectionPrefix(collection)
	found := make([]sequencedDocument, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			value, errCopy := item.ValueCopy(nil)
			if errCopy != nil {
				return errCopy
			}

			seq, body, errUnpack := s.compressor.unpack(value)
			if errUnpack != nil {
				return errUnpack
			}

			found = append(found, sequencedDocument{
				seq: seq,
				doc: common.RawDocument{
					ID:   string(item.Key()[len(prefix):]),
					Body: body,
				},
			})
		}

		return nil
	})
	if err != nil {
		return nil, unavailable("scan collection", err)
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].seq < found[j].seq
	})

	docs := make([]common.RawDocument, 0, len(found))
	for _, f := range found {
		docs = append(docs, f.doc)
	}

	return docs, nil
}

// GetDocument returns a single document
func (s *badgerStorage) GetDocument(_ context.Context, collection string, id string) (*common.RawDocument, error) {
	err := checkKey(collection, id)
	if err != nil {
		return nil, err
	}

	var body []byte
	err = s.db.View(func(txn *badger.Txn) error {
		_, body, err = s.get(txn, collection, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &common.RawDocument{
		ID:   id,
		Body: body,
	}, nil
}

func (s *badgerStorage) get(txn *badger.Txn, collection string, id string) (uint64, []byte, error) {
	item, err := txn.Get(documentKey(collection, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil, fmt.Errorf("%w: %s/%s", common.ErrDocumentNotFound, collection, id)
	}
	if err != nil {
		return 0, nil, unavailable("get document", err)
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return 0, nil, unavailable("read document", err)
	}

	seq, body, err := s.compressor.unpack(value)
	if err != nil {
		return 0, nil, unavailable("unpack document", err)
	}

	return seq, body, nil
}

// SetDocument writes the document, merging on top of the stored fields if required
func (s *badgerStorage) SetDocument(_ context.Context, collection string, id string, fields map[string]interface{}, merge bool) error {
	err := checkKey(collection, id)
	if err != nil {
		return err
	}

	nextSeq, err := s.seq.Next()
	if err != nil {
		return unavailable("next sequence", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		seq, existing, errGet := s.get(txn, collection, id)
		switch {
		case errGet == nil:
			if !merge {
				existing = nil
			}
		case errors.Is(errGet, common.ErrDocumentNotFound):
			seq = nextSeq
		default:
			return errGet
		}

		body, errApply := applyFields(existing, fields)
		if errApply != nil {
			return errApply
		}

		return txn.Set(documentKey(collection, id), s.compressor.pack(seq, body))
	})
	if err != nil && !errors.Is(err, common.ErrStoreUnavailable) {
		return unavailable("set document", err)
	}

	return err
}

// DeleteDocument removes a document
func (s *badgerStorage) DeleteDocument(_ context.Context, collection string, id string) error {
	err := checkKey(collection, id)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(documentKey(collection, id))
	})
	if err != nil {
		return unavailable("delete document", err)
	}

	return nil
}

// Close releases the sequence and closes the database
func (s *badgerStorage) Close() error {
	errRelease := s.seq.Release()
	s.compressor.close()
	errClose := s.db.Close()

	return errors.Join(errRelease, errClose)
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *badgerStorage) IsInterfaceNil() bool {
	return s == nil
}

// badgerLogger routes badger's own logs into the storage logger
type badgerLogger struct{}

// Errorf -
func (bl *badgerLogger) Errorf(format string, args ...interface{}) {
	log.Error("badger: " + fmt.Sprintf(format, args...))
}

// Warningf -
func (bl *badgerLogger) Warningf(format string, args ...interface{}) {
	log.Warn("badger: " + fmt.Sprintf(format, args...))
}

// Infof -
func (bl *badgerLogger) Infof(format string, args ...interface{}) {
	log.Debug("badger: " + fmt.Sprintf(format, args...))
}

// Debugf -
func (bl *badgerLogger) Debugf(format string, args ...interface{}) {
	log.Trace("badger: " + fmt.Sprintf(format, args...))
}
