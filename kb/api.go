// Package kb coordinates a document store and a vector store: documents are
// persisted first to obtain an identity, optionally embedded second, and
// retrieved by similarity with hydration from the document store.
package kb

import (
	"context"
	"errors"

	"github.com/viant/sqlite-kb/document"
)

// ErrBatchSizeMismatch is returned when a document store returns a different
// number of identities than documents it was given.
var ErrBatchSizeMismatch = errors.New("kb: document store returned mismatched identity count")

// DocumentStore persists documents and mints their identities.
type DocumentStore interface {
	CollectionName() string
	InsertDocument(ctx context.Context, doc document.Document) (document.ID, error)
	// InsertDocuments returns identities positionally aligned with docs.
	InsertDocuments(ctx context.Context, docs []document.Document) ([]document.ID, error)
	FindDocumentsByIDs(ctx context.Context, ids []document.ID) ([]document.Document, error)
}

// VectorStore embeds identified documents and ranks them by similarity.
type VectorStore interface {
	CollectionName() string
	InsertDocument(ctx context.Context, doc document.Document) error
	InsertDocuments(ctx context.Context, docs []document.Document) error
	// RetrieveSimilarDocumentIDs returns up to n identities, most similar first.
	RetrieveSimilarDocumentIDs(ctx context.Context, query string, n int) ([]document.ID, error)
}
