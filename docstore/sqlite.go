package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/viant/sqlite-kb/document"
)

// lookupChunk bounds the number of bound parameters per IN (...) query.
const lookupChunk = 500

const documentsSchema = `CREATE TABLE IF NOT EXISTS kb_documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    fields TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (collection, id)
)`

// IDFunc mints a new document identity.
type IDFunc func() document.ID

// NewUUID mints a random UUID v4 identity.
func NewUUID() document.ID { return document.ID(uuid.NewString()) }

type options struct {
	logger *zap.Logger
	newID  IDFunc
}

// Option configures a document store.
type Option func(*options)

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithIDFunc replaces the UUID identity generator.
func WithIDFunc(fn IDFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: zap.NewNop(), newID: NewUUID}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SQLite stores documents of one collection in the kb_documents table.
type SQLite struct {
	db         *sql.DB
	collection string
	*options
}

// NewSQLite ensures the documents table exists and binds a store to collection.
func NewSQLite(ctx context.Context, db *sql.DB, collection string, opts ...Option) (*SQLite, error) {
	if db == nil {
		return nil, errors.New("docstore: db is nil")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("docstore: collection is required")
	}
	if _, err := db.ExecContext(ctx, documentsSchema); err != nil {
		return nil, fmt.Errorf("docstore: ensure schema: %w", err)
	}
	o := newOptions(opts)
	o.logger = o.logger.With(zap.String("collection", collection))
	return &SQLite{db: db, collection: collection, options: o}, nil
}

// CollectionName returns the bound collection name.
func (s *SQLite) CollectionName() string { return s.collection }

// InsertDocument stores doc under a newly minted identity.
func (s *SQLite) InsertDocument(ctx context.Context, doc document.Document) (document.ID, error) {
	ids, err := s.InsertDocuments(ctx, []document.Document{doc})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// InsertDocuments stores docs in one transaction and returns their
// identities in input order.
func (s *SQLite) InsertDocuments(ctx context.Context, docs []document.Document) ([]document.ID, error) {
	if len(docs) == 0 {
		return []document.ID{}, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO kb_documents(collection, id, fields, created_at) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("docstore: prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	ids := make([]document.ID, len(docs))
	for i, doc := range docs {
		fields, err := marshalFields(doc.Fields)
		if err != nil {
			return nil, fmt.Errorf("docstore: document %d: %w", i, err)
		}
		id := s.newID()
		if _, err := stmt.ExecContext(ctx, s.collection, id.String(), fields, now); err != nil {
			return nil, fmt.Errorf("docstore: insert document %d: %w", i, err)
		}
		ids[i] = id
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("docstore: commit: %w", err)
	}
	s.logger.Debug("documents inserted", zap.Int("count", len(ids)))
	return ids, nil
}

// FindDocumentsByIDs returns the documents for ids in input order; unknown
// identities are omitted.
func (s *SQLite) FindDocumentsByIDs(ctx context.Context, ids []document.ID) ([]document.Document, error) {
	if len(ids) == 0 {
		return []document.Document{}, nil
	}
	found := make(map[document.ID]document.Fields, len(ids))
	for start := 0; start < len(ids); start += lookupChunk {
		end := start + lookupChunk
		if end > len(ids) {
			end = len(ids)
		}
		if err := s.lookup(ctx, ids[start:end], found); err != nil {
			return nil, err
		}
	}
	ret := make([]document.Document, 0, len(ids))
	for _, id := range ids {
		if fields, ok := found[id]; ok {
			ret = append(ret, document.Document{ID: id, Fields: fields})
		}
	}
	return ret, nil
}

func (s *SQLite) lookup(ctx context.Context, ids []document.ID, found map[document.ID]document.Fields) error {
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, s.collection)
	for _, id := range ids {
		args = append(args, id.String())
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	q := `SELECT id, fields FROM kb_documents WHERE collection = ? AND id IN (` + placeholders + `)`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("docstore: find documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return err
		}
		fields, err := unmarshalFields(raw)
		if err != nil {
			return fmt.Errorf("docstore: document %s: %w", id, err)
		}
		found[document.ID(id)] = fields
	}
	return rows.Err()
}

func marshalFields(fields document.Fields) (string, error) {
	if fields == nil {
		return "{}", nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

func unmarshalFields(raw string) (document.Fields, error) {
	fields := document.Fields{}
	if raw == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return fields, nil
}
