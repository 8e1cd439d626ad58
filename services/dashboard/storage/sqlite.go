package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const inMemoryPath = ":memory:"

var log = logger.GetOrCreate("storage")

// sqliteStorage is the sqlite implementation of the document store
type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database file and its schema
func NewSQLiteStorage(dbPath string) (*sqliteStorage, error) {
	dsn := inMemoryPath
	if dbPath != inMemoryPath {
		err := prepareDirectories(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create the database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == inMemoryPath {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	err = createSchema(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debug("sqlite document store opened", "path", dbPath)

	return &sqliteStorage{
		db: db,
	}, nil
}

func prepareDirectories(dbPath string) error {
	return os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT    NOT NULL,
		id         TEXT    NOT NULL,
		body       TEXT    NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// GetCollection returns the collection documents in insertion order. Upserts keep the original position.
func (s *sqliteStorage) GetCollection(ctx context.Context, collection string) ([]common.RawDocument, error) {
	if len(collection) == 0 {
		return nil, common.ErrInvalidCollection
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body
		FROM documents
		WHERE collection = ?
		ORDER BY rowid
	`, collection)
	if err != nil {
		return nil, unavailable("query collection", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := make([]common.RawDocument, 0)
	for rows.Next() {
		var doc common.RawDocument
		var body string

		err = rows.Scan(&doc.ID, &body)
		if err != nil {
			return nil, unavailable("scan collection", err)
		}

		doc.Body = []byte(body)
		docs = append(docs, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, unavailable("iterate collection", err)
	}

	return docs, nil
}

// GetDocument returns a single document
func (s *sqliteStorage) GetDocument(ctx context.Context, collection string, id string) (*common.RawDocument, error) {
	err := checkKey(collection, id)
	if err != nil {
		return nil, err
	}

	body, err := getBody(ctx, s.db, collection, id)
	if err != nil {
		return nil, err
	}

	return &common.RawDocument{
		ID:   id,
		Body: body,
	}, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getBody(ctx context.Context, q queryRower, collection string, id string) ([]byte, error) {
	var body string
	err := q.QueryRowContext(ctx, "SELECT body FROM documents WHERE collection = ? AND id = ?", collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", common.ErrDocumentNotFound, collection, id)
	}
	if err != nil {
		return nil, unavailable("get document", err)
	}

	return []byte(body), nil
}

// SetDocument writes the document, merging on top of the stored fields if required
func (s *sqliteStorage) SetDocument(ctx context.Context, collection string, id string, fields map[string]interface{}, merge bool) error {
	err := checkKey(collection, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing []byte
	if merge {
		existing, err = getBody(ctx, tx, collection, id)
		if err != nil && !errors.Is(err, common.ErrDocumentNotFound) {
			return err
		}
	}

	body, err := applyFields(existing, fields)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			body=excluded.body,
			updated_at=excluded.updated_at
	`, collection, id, string(body), time.Now().UnixMilli())
	if err != nil {
		return unavailable("upsert document", err)
	}

	err = tx.Commit()
	if err != nil {
		return unavailable("commit", err)
	}

	return nil
}

// DeleteDocument removes a document
func (s *sqliteStorage) DeleteDocument(ctx context.Context, collection string, id string) error {
	err := checkKey(collection, id)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return unavailable("delete document", err)
	}

	return nil
}

// Close closes the database
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *sqliteStorage) IsInterfaceNil() bool {
	return s == nil
}
