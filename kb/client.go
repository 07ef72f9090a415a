package kb

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/viant/sqlite-kb/document"
)

// Client is the knowledge-base orchestrator.
type Client struct {
	docs   DocumentStore
	vecs   VectorStore
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type insertOptions struct {
	embed bool
}

// InsertOption configures a single insert call.
type InsertOption func(*insertOptions)

// WithEmbedding also indexes the inserted documents in the vector store.
func WithEmbedding() InsertOption {
	return func(o *insertOptions) { o.embed = true }
}

// New creates a Client over a document store and a vector store.
func New(docs DocumentStore, vecs VectorStore, opts ...Option) *Client {
	c := &Client{docs: docs, vecs: vecs, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DocumentCollectionName returns the document store collection name.
func (c *Client) DocumentCollectionName() string { return c.docs.CollectionName() }

// VectorCollectionName returns the vector store collection name.
func (c *Client) VectorCollectionName() string { return c.vecs.CollectionName() }

// InsertDocument persists doc and returns a copy carrying the minted
// identity. With WithEmbedding the copy is then indexed; if indexing fails
// the identified copy is returned together with the error.
func (c *Client) InsertDocument(ctx context.Context, doc document.Document, opts ...InsertOption) (document.Document, error) {
	o := newInsertOptions(opts)
	id, err := c.docs.InsertDocument(ctx, doc)
	if err != nil {
		return doc, fmt.Errorf("kb: insert into %s: %w", c.docs.CollectionName(), err)
	}
	stored := doc.WithID(id)
	if !o.embed {
		return stored, nil
	}
	if err := c.vecs.InsertDocument(ctx, stored); err != nil {
		c.logger.Warn("document stored but not indexed",
			zap.String("id", id.String()),
			zap.Error(err))
		return stored, fmt.Errorf("kb: index into %s: %w", c.vecs.CollectionName(), err)
	}
	return stored, nil
}

// InsertDocuments persists docs and returns identified copies aligned with
// the input. A store returning a different number of identities fails with
// ErrBatchSizeMismatch and no identities are assigned.
func (c *Client) InsertDocuments(ctx context.Context, docs []document.Document, opts ...InsertOption) ([]document.Document, error) {
	if len(docs) == 0 {
		return []document.Document{}, nil
	}
	o := newInsertOptions(opts)
	ids, err := c.docs.InsertDocuments(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("kb: insert into %s: %w", c.docs.CollectionName(), err)
	}
	if len(ids) != len(docs) {
		return nil, fmt.Errorf("%w: got %d identities for %d documents", ErrBatchSizeMismatch, len(ids), len(docs))
	}
	stored := make([]document.Document, len(docs))
	for i := range docs {
		stored[i] = docs[i].WithID(ids[i])
	}
	if !o.embed {
		return stored, nil
	}
	if err := c.vecs.InsertDocuments(ctx, stored); err != nil {
		c.logger.Warn("documents stored but not indexed",
			zap.Int("count", len(stored)),
			zap.Error(err))
		return stored, fmt.Errorf("kb: index into %s: %w", c.vecs.CollectionName(), err)
	}
	return stored, nil
}

// RetrieveSimilarDocuments returns up to n documents most similar to query,
// most similar first. Identities the document store cannot resolve are dropped.
func (c *Client) RetrieveSimilarDocuments(ctx context.Context, query string, n int) ([]document.Document, error) {
	if n <= 0 {
		return []document.Document{}, nil
	}
	ids, err := c.vecs.RetrieveSimilarDocumentIDs(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("kb: search %s: %w", c.vecs.CollectionName(), err)
	}
	if len(ids) == 0 {
		return []document.Document{}, nil
	}
	found, err := c.docs.FindDocumentsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("kb: hydrate from %s: %w", c.docs.CollectionName(), err)
	}
	ranked := rank(ids, found)
	if missing := len(ids) - len(ranked); missing > 0 {
		c.logger.Debug("similar documents not found in document store", zap.Int("missing", missing))
	}
	return ranked, nil
}

// rank orders docs by the position of their identity in ids.
func rank(ids []document.ID, docs []document.Document) []document.Document {
	byID := make(map[document.ID]document.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}
	ret := make([]document.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			ret = append(ret, doc)
			delete(byID, id)
		}
	}
	return ret
}

func newInsertOptions(opts []InsertOption) *insertOptions {
	o := &insertOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
