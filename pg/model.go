package pg

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"github.com/viant/sqlite-kb/document"
)

type documentRecord struct {
	Collection string            `gorm:"type:text;primaryKey"`
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Fields     datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"autoCreateTime"`
}

func (documentRecord) TableName() string {
	return "kb_documents"
}

func (r *documentRecord) toDocument() document.Document {
	fields := document.Fields{}
	for k, v := range r.Fields {
		fields[k] = v
	}
	return document.Document{ID: document.ID(r.ID.String()), Fields: fields}
}

func newDocumentRecord(collection string, id uuid.UUID, doc document.Document) *documentRecord {
	fields := datatypes.JSONMap{}
	for k, v := range doc.Fields {
		fields[k] = v
	}
	return &documentRecord{Collection: collection, ID: id, Fields: fields}
}

// vectorRecord keeps an untyped vector column so collections of different
// dimensions share one table.
type vectorRecord struct {
	Collection string          `gorm:"type:text;primaryKey"`
	DocumentID string          `gorm:"type:text;primaryKey"`
	Embedding  pgvector.Vector `gorm:"type:vector"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime"`
}

func (vectorRecord) TableName() string {
	return "kb_vectors"
}
