package docstore

import (
	"context"
	"sync"

	"github.com/viant/sqlite-kb/document"
)

// Memory is an in-memory document store.
type Memory struct {
	mu         sync.RWMutex
	collection string
	docs       map[document.ID]document.Fields
	*options
}

// NewMemory creates an empty in-memory store for collection.
func NewMemory(collection string, opts ...Option) *Memory {
	return &Memory{
		collection: collection,
		docs:       make(map[document.ID]document.Fields),
		options:    newOptions(opts),
	}
}

// CollectionName returns the bound collection name.
func (m *Memory) CollectionName() string { return m.collection }

// InsertDocument stores a copy of doc's fields under a newly minted identity.
func (m *Memory) InsertDocument(ctx context.Context, doc document.Document) (document.ID, error) {
	ids, err := m.InsertDocuments(ctx, []document.Document{doc})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// InsertDocuments stores docs and returns their identities in input order.
func (m *Memory) InsertDocuments(ctx context.Context, docs []document.Document) ([]document.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]document.ID, len(docs))
	for i, doc := range docs {
		id := m.newID()
		m.docs[id] = copyFields(doc.Fields)
		ids[i] = id
	}
	return ids, nil
}

// FindDocumentsByIDs returns the documents for ids in input order; unknown
// identities are omitted.
func (m *Memory) FindDocumentsByIDs(ctx context.Context, ids []document.ID) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := make([]document.Document, 0, len(ids))
	for _, id := range ids {
		if fields, ok := m.docs[id]; ok {
			ret = append(ret, document.Document{ID: id, Fields: copyFields(fields)})
		}
	}
	return ret, nil
}

// Len returns the number of stored documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func copyFields(fields document.Fields) document.Fields {
	out := make(document.Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
