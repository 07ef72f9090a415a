package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/viant/sqlite-kb/document"
)

const insertBatchSize = 500

// DocumentStore persists documents of one collection as JSONB rows.
type DocumentStore struct {
	db         *gorm.DB
	collection string
	logger     *zap.Logger
}

// NewDocumentStore binds a store to collection.
func NewDocumentStore(db *gorm.DB, collection string, log *zap.Logger) *DocumentStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentStore{db: db, collection: collection, logger: log.With(zap.String("collection", collection))}
}

// CollectionName returns the bound collection name.
func (s *DocumentStore) CollectionName() string { return s.collection }

// InsertDocument stores doc under a new UUID.
func (s *DocumentStore) InsertDocument(ctx context.Context, doc document.Document) (document.ID, error) {
	ids, err := s.InsertDocuments(ctx, []document.Document{doc})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// InsertDocuments stores docs in one transaction and returns their
// identities in input order.
func (s *DocumentStore) InsertDocuments(ctx context.Context, docs []document.Document) ([]document.ID, error) {
	if len(docs) == 0 {
		return []document.ID{}, nil
	}
	records := make([]*documentRecord, len(docs))
	ids := make([]document.ID, len(docs))
	for i, doc := range docs {
		id := uuid.New()
		records[i] = newDocumentRecord(s.collection, id, doc)
		ids[i] = document.ID(id.String())
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(records, insertBatchSize).Error
	})
	if err != nil {
		return nil, fmt.Errorf("pg: insert documents: %w", err)
	}
	s.logger.Debug("documents inserted", zap.Int("count", len(ids)))
	return ids, nil
}

// FindDocumentsByIDs returns the documents for ids in input order; unknown
// or malformed identities are omitted.
func (s *DocumentStore) FindDocumentsByIDs(ctx context.Context, ids []document.ID) ([]document.Document, error) {
	keys := parseIDs(ids)
	if len(keys) == 0 {
		return []document.Document{}, nil
	}
	var records []documentRecord
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id IN ?", s.collection, keys).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("pg: find documents: %w", err)
	}
	return orderRecords(ids, records), nil
}

func parseIDs(ids []document.ID) []uuid.UUID {
	keys := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		key, err := uuid.Parse(id.String())
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func orderRecords(ids []document.ID, records []documentRecord) []document.Document {
	byID := make(map[document.ID]document.Document, len(records))
	for i := range records {
		doc := records[i].toDocument()
		byID[doc.ID] = doc
	}
	ret := make([]document.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			ret = append(ret, doc)
		}
	}
	return ret
}
