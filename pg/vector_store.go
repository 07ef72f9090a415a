package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viant/sqlite-kb/document"
	"github.com/viant/sqlite-kb/embed"
	"github.com/viant/sqlite-kb/extract"
	"github.com/viant/sqlite-kb/vector"
)

// VectorStore keeps pgvector embeddings of one collection.
type VectorStore struct {
	db        *gorm.DB
	info      vector.CollectionInfo
	embed     embed.Func
	extractor *extract.Extractor
	logger    *zap.Logger
}

// VectorOption configures a VectorStore.
type VectorOption func(*VectorStore)

// WithExtractor sets the text extractor; the default reads the "text" field.
func WithExtractor(extractor *extract.Extractor) VectorOption {
	return func(s *VectorStore) {
		if extractor != nil {
			s.extractor = extractor
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(log *zap.Logger) VectorOption {
	return func(s *VectorStore) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewVectorStore binds a store to the collection described by info.
func NewVectorStore(db *gorm.DB, info vector.CollectionInfo, fn embed.Func, opts ...VectorOption) (*VectorStore, error) {
	if fn == nil {
		return nil, errors.New("pg: embedding function is required")
	}
	spec := vector.CollectionSpec{Name: info.Name, Dimension: info.Dimension, Metric: info.Metric}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	info.Metric = spec.Metric
	s := &VectorStore{db: db, info: info, embed: fn, extractor: extract.New(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("collection", info.Name))
	return s, nil
}

// CollectionName returns the bound collection name.
func (s *VectorStore) CollectionName() string { return s.info.Name }

// InsertDocument embeds the document text and upserts it; a document
// without text is skipped.
func (s *VectorStore) InsertDocument(ctx context.Context, doc document.Document) error {
	return s.InsertDocuments(ctx, []document.Document{doc})
}

// InsertDocuments embeds and upserts every document with text. Any document
// without an ID fails the call before anything is written.
func (s *VectorStore) InsertDocuments(ctx context.Context, docs []document.Document) error {
	for i := range docs {
		if err := docs[i].RequireID(); err != nil {
			return fmt.Errorf("pg: insert into %s: document %d: %w", s.info.Name, i, err)
		}
	}
	batch := s.extractor.Batch(docs)
	if skipped := len(batch.Skipped); skipped > 0 {
		s.logger.Debug("documents have no text, skipped",
			zap.Int("count", skipped),
			zap.Strings("ids", document.Strings(batch.Skipped)))
	}
	if batch.Len() == 0 {
		return nil
	}
	// one statement may not upsert the same row twice
	positions := lastByID(batch.IDs)
	records := make([]*vectorRecord, len(positions))
	now := time.Now()
	for i, pos := range positions {
		vec, err := s.embedText(ctx, batch.Texts[pos])
		if err != nil {
			return fmt.Errorf("pg: document %s: %w", batch.IDs[pos], err)
		}
		records[i] = &vectorRecord{
			Collection: s.info.Name,
			DocumentID: batch.IDs[pos].String(),
			Embedding:  pgvector.NewVector(vec),
			UpdatedAt:  now,
		}
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"embedding", "updated_at"}),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("pg: upsert vectors: %w", err)
	}
	return nil
}

// RetrieveSimilarDocumentIDs returns up to n document IDs most similar to
// query, most similar first.
func (s *VectorStore) RetrieveSimilarDocumentIDs(ctx context.Context, query string, n int) ([]document.ID, error) {
	if n <= 0 {
		return []document.ID{}, nil
	}
	vec, err := s.embedText(ctx, query)
	if err != nil {
		return nil, err
	}
	order, err := orderExpression(s.info.Metric)
	if err != nil {
		return nil, err
	}
	var ids []string
	err = s.db.WithContext(ctx).
		Model(&vectorRecord{}).
		Where("collection = ?", s.info.Name).
		Order(gorm.Expr(order, pgvector.NewVector(vec))).
		Order("document_id").
		Limit(n).
		Pluck("document_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("pg: search %s: %w", s.info.Name, err)
	}
	return document.FromStrings(ids), nil
}

func (s *VectorStore) embedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("pg: embed: %w", err)
	}
	if len(vec) != s.info.Dimension {
		return nil, fmt.Errorf("%w: %s got %d, want %d", vector.ErrDimensionMismatch, s.info.Name, len(vec), s.info.Dimension)
	}
	return vec, nil
}

// orderExpression returns the ascending sort key for metric. Cosine distance
// involving a zero vector is NaN in pgvector; it is mapped to 1, a similarity
// of 0, the same score the SQLite store gives it.
func orderExpression(metric vector.Metric) (string, error) {
	op, err := distanceOperator(metric)
	if err != nil {
		return "", err
	}
	if metric == vector.Cosine {
		return "COALESCE(NULLIF(embedding " + op + " ?, 'NaN'::float8), 1)", nil
	}
	return "embedding " + op + " ?", nil
}

// lastByID returns, in first-seen order, the position of the last
// occurrence of every ID.
func lastByID(ids []document.ID) []int {
	last := make(map[document.ID]int, len(ids))
	var order []document.ID
	for i, id := range ids {
		if _, ok := last[id]; !ok {
			order = append(order, id)
		}
		last[id] = i
	}
	ret := make([]int, len(order))
	for i, id := range order {
		ret[i] = last[id]
	}
	return ret
}

// distanceOperator returns the pgvector operator ordering rows from most to
// least similar under metric.
func distanceOperator(metric vector.Metric) (string, error) {
	switch metric {
	case vector.Cosine:
		return "<=>", nil
	case vector.Euclidean:
		return "<->", nil
	case vector.Dot:
		// <#> is the negative inner product
		return "<#>", nil
	}
	return "", fmt.Errorf("%w: %q", vector.ErrUnsupportedMetric, metric)
}
