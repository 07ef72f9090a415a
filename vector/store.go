package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/viant/sqlite-kb/document"
	"github.com/viant/sqlite-kb/embed"
	"github.com/viant/sqlite-kb/engine"
	"github.com/viant/sqlite-kb/extract"
	"github.com/viant/sqlite-kb/index"
	"github.com/viant/sqlite-kb/index/vptree"
)

// Store embeds document text and answers similarity queries for one collection.
// Collection metadata is re-read on every operation, so a Store keeps working
// after the collection is recreated with another dimension or metric.
type Store struct {
	db        *sql.DB
	name      string
	mu        sync.RWMutex
	info      CollectionInfo
	embed     embed.Func
	extractor *extract.Extractor
	kind      IndexKind
	logger    *zap.Logger
	cache     *indexCache
}

// Option configures a Store.
type Option func(*Store)

// WithExtractor sets the text extractor; the default reads the "text" field.
func WithExtractor(extractor *extract.Extractor) Option {
	return func(s *Store) {
		if extractor != nil {
			s.extractor = extractor
		}
	}
}

// WithIndexKind selects how queries are answered; the default is IndexAuto.
func WithIndexKind(kind IndexKind) Option {
	return func(s *Store) { s.kind = kind }
}

// WithStoreLogger overrides the logger inherited from the Admin.
func WithStoreLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func newStore(a *Admin, info CollectionInfo, fn embed.Func, opts ...Option) (*Store, error) {
	s := &Store{
		db:        a.db,
		name:      info.Name,
		info:      info,
		embed:     fn,
		extractor: extract.New(),
		kind:      IndexAuto,
		logger:    a.logger,
		cache:     a.cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	kind, err := ParseIndexKind(string(s.kind))
	if err != nil {
		return nil, err
	}
	if kind == IndexVPTree && !vptree.Supports(info.Metric) {
		return nil, fmt.Errorf("%w: %s index does not support %s", ErrUnsupportedMetric, kind, info.Metric)
	}
	s.kind = kind
	s.logger = s.logger.With(zap.String("collection", info.Name))
	return s, nil
}

// CollectionName returns the bound collection name.
func (s *Store) CollectionName() string { return s.name }

// Info returns the collection metadata as of the last operation.
func (s *Store) Info() CollectionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// refresh re-reads the collection row and returns its metadata and current
// generation.
func (s *Store) refresh(ctx context.Context) (CollectionInfo, int64, error) {
	info := CollectionInfo{Name: s.name}
	var generation int64
	err := s.db.QueryRowContext(ctx, `SELECT dimension, metric, generation FROM kb_collections WHERE name = ?`, s.name).
		Scan(&info.Dimension, &info.Metric, &generation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return info, 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, s.name)
		}
		return info, 0, fmt.Errorf("vector: read collection %s: %w", s.name, err)
	}
	s.mu.Lock()
	if s.info != info {
		s.logger.Debug("collection metadata changed",
			zap.Int("dimension", info.Dimension),
			zap.String("metric", string(info.Metric)))
		s.info = info
	}
	s.mu.Unlock()
	return info, generation, nil
}

// InsertDocument embeds the document text and upserts it keyed by the
// document ID. A document without text is skipped.
func (s *Store) InsertDocument(ctx context.Context, doc document.Document) error {
	if err := doc.RequireID(); err != nil {
		return fmt.Errorf("vector: insert into %s: %w", s.name, err)
	}
	text, ok, err := s.extractor.Text(doc)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Debug("document has no text, skipped", zap.String("id", doc.ID.String()))
		return nil
	}
	info, _, err := s.refresh(ctx)
	if err != nil {
		return err
	}
	vec, err := s.embedText(ctx, info, text)
	if err != nil {
		return err
	}
	return s.upsert(ctx, info, []document.ID{doc.ID}, [][]float32{vec})
}

// InsertDocuments embeds and upserts every document with text. Any document
// without an ID fails the call before anything is written.
func (s *Store) InsertDocuments(ctx context.Context, docs []document.Document) error {
	for i := range docs {
		if err := docs[i].RequireID(); err != nil {
			return fmt.Errorf("vector: insert into %s: document %d: %w", s.name, i, err)
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
	info, _, err := s.refresh(ctx)
	if err != nil {
		return err
	}
	vecs := make([][]float32, batch.Len())
	for i, text := range batch.Texts {
		vec, err := s.embedText(ctx, info, text)
		if err != nil {
			return fmt.Errorf("vector: document %s: %w", batch.IDs[i], err)
		}
		vecs[i] = vec
	}
	return s.upsert(ctx, info, batch.IDs, vecs)
}

// RetrieveSimilarDocumentIDs returns up to n document IDs most similar to
// query, most similar first.
func (s *Store) RetrieveSimilarDocumentIDs(ctx context.Context, query string, n int) ([]document.ID, error) {
	matches, err := s.Search(ctx, query, n)
	if err != nil {
		return nil, err
	}
	ids := make([]document.ID, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids, nil
}

// Search returns up to n scored matches for query; n <= 0 returns no
// matches without embedding the query.
func (s *Store) Search(ctx context.Context, query string, n int) ([]Match, error) {
	if n <= 0 {
		return []Match{}, nil
	}
	info, generation, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}
	vec, err := s.embedText(ctx, info, query)
	if err != nil {
		return nil, err
	}
	if s.kind == IndexSQL {
		return s.searchSQL(ctx, info, vec, n)
	}
	idx, err := s.ensureIndex(ctx, generation)
	if err != nil {
		return nil, err
	}
	ids, scores, err := idx.Query(vec, n)
	if err != nil {
		return nil, fmt.Errorf("vector: query %s: %w", s.name, err)
	}
	ret := make([]Match, len(ids))
	for i := range ids {
		ret[i] = Match{ID: document.ID(ids[i]), Score: scores[i]}
	}
	return ret, nil
}

func (s *Store) searchSQL(ctx context.Context, info CollectionInfo, vec []float32, n int) ([]Match, error) {
	fn, order := engine.FuncCosine, "DESC"
	switch info.Metric {
	case Euclidean:
		fn, order = engine.FuncL2, "ASC"
	case Dot:
		fn = engine.FuncDot
	}
	blob, err := EncodeEmbedding(vec)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT document_id, %s(embedding, ?) AS score FROM kb_vectors
WHERE collection = ? ORDER BY score %s, document_id LIMIT ?`, fn, order)
	rows, err := s.db.QueryContext(ctx, q, blob, s.name, n)
	if err != nil {
		return nil, fmt.Errorf("vector: sql search %s: %w", s.name, err)
	}
	defer rows.Close()
	ret := make([]Match, 0, n)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Score); err != nil {
			return nil, err
		}
		if info.Metric == Euclidean {
			m.Score = -m.Score
		}
		ret = append(ret, m)
	}
	return ret, rows.Err()
}

// ensureIndex returns the cached index when it covers generation, the
// persisted one for the current generation, or builds and persists a new one.
func (s *Store) ensureIndex(ctx context.Context, generation int64) (index.Index, error) {
	entry := s.cache.entry(s.name, s.kind)
	var version uint64
	for {
		if idx := entry.get(generation); idx != nil {
			return idx, nil
		}
		v, ok := entry.startBuild(generation)
		if ok {
			version = v
			break
		}
		entry.waitForBuild()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	var built index.Index
	var builtGeneration int64
	defer func() { entry.finishBuild(built, version, builtGeneration) }()

	idx, persisted, err := loadPersistedIndex(ctx, s.db, s.name, s.kind)
	if err != nil {
		return nil, err
	}
	if idx != nil && persisted == generation {
		s.logger.Debug("loaded persisted index", zap.Int("vectors", idx.Len()))
		built, builtGeneration = idx, persisted
		return idx, nil
	}
	started := time.Now()
	idx, kind, scanned, err := buildIndex(ctx, s.db, s.name, s.kind)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("built index",
		zap.String("kind", string(kind)),
		zap.Int("vectors", idx.Len()),
		zap.Int64("generation", scanned),
		zap.Duration("elapsed", time.Since(started)))
	built, builtGeneration = idx, scanned
	return idx, nil
}

func (s *Store) embedText(ctx context.Context, info CollectionInfo, text string) ([]float32, error) {
	vec, err := s.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("vector: embed: %w", err)
	}
	if len(vec) != info.Dimension {
		return nil, fmt.Errorf("%w: %s got %d, want %d", ErrDimensionMismatch, s.name, len(vec), info.Dimension)
	}
	return vec, nil
}

// upsert writes vectors in one transaction, bumps the collection generation
// and drops the persisted and cached indexes. The write is refused when the
// collection was recreated with another dimension since info was read.
func (s *Store) upsert(ctx context.Context, info CollectionInfo, ids []document.ID, vecs [][]float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var dimension int
	err = tx.QueryRowContext(ctx, `SELECT dimension FROM kb_collections WHERE name = ?`, s.name).Scan(&dimension)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, s.name)
		}
		return fmt.Errorf("vector: upsert %s: %w", s.name, err)
	}
	if dimension != info.Dimension {
		return fmt.Errorf("%w: %s is now %d, embedded %d", ErrDimensionMismatch, s.name, dimension, info.Dimension)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE kb_collections SET generation = generation + 1 WHERE name = ?`, s.name); err != nil {
		return fmt.Errorf("vector: upsert %s: %w", s.name, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO kb_vectors(collection, document_id, embedding, updated_at) VALUES(?, ?, ?, ?)
ON CONFLICT(collection, document_id) DO UPDATE SET embedding = excluded.embedding, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	now := time.Now().Unix()
	for i, id := range ids {
		blob, err := EncodeEmbedding(vecs[i])
		if err != nil {
			return fmt.Errorf("vector: document %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx, s.name, id.String(), blob, now); err != nil {
			return fmt.Errorf("vector: upsert %s/%s: %w", s.name, id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM kb_vector_storage WHERE collection = ?`, s.name); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.cache.invalidate(s.name)
	s.logger.Debug("vectors upserted", zap.Int("count", len(ids)))
	return nil
}
