package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/viant/sqlite-kb/index"
	"github.com/viant/sqlite-kb/index/bruteforce"
	"github.com/viant/sqlite-kb/index/vptree"
)

const (
	autoVPTreeMinDocs            = 4000
	autoVPTreeMinDim             = 64
	autoVPTreeMinDensity float64 = 16
)

// resolveIndexKind maps a requested kind to the concrete index to build.
func resolveIndexKind(want IndexKind, metric Metric, docCount, dim int) IndexKind {
	switch want {
	case IndexBrute:
		return IndexBrute
	case IndexVPTree:
		if vptree.Supports(metric) {
			return IndexVPTree
		}
		return IndexBrute
	}
	if !vptree.Supports(metric) {
		return IndexBrute
	}
	if docCount >= autoVPTreeMinDocs && dim >= autoVPTreeMinDim {
		density := float64(docCount) / float64(dim)
		if density >= autoVPTreeMinDensity {
			return IndexVPTree
		}
	}
	return IndexBrute
}

func newIndex(kind IndexKind, metric Metric) index.Index {
	switch kind {
	case IndexBrute:
		return bruteforce.New(metric)
	case IndexVPTree:
		if vptree.Supports(metric) {
			return vptree.New(metric)
		}
	}
	return nil
}

// loadPersistedIndex returns the index stored for the current generation of
// the collection together with that generation, or nil when none is usable
// for want.
func loadPersistedIndex(ctx context.Context, db *sql.DB, collection string, want IndexKind) (index.Index, int64, error) {
	var kind string
	var metric Metric
	var generation int64
	var blob []byte
	err := db.QueryRowContext(ctx, `SELECT s.kind, c.metric, s.generation, s."index" FROM kb_vector_storage s
JOIN kb_collections c ON c.name = s.collection
WHERE s.collection = ? AND s.generation = c.generation`, collection).Scan(&kind, &metric, &generation, &blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("vector: load index %s: %w", collection, err)
	}
	if len(blob) == 0 {
		return nil, 0, nil
	}
	if want != IndexAuto && IndexKind(kind) != want {
		return nil, 0, nil
	}
	idx := newIndex(IndexKind(kind), metric)
	if idx == nil {
		return nil, 0, nil
	}
	if err := idx.UnmarshalBinary(blob); err != nil {
		return nil, 0, nil
	}
	return idx, generation, nil
}

type snapshot struct {
	info       CollectionInfo
	generation int64
	ids        []string
	vectors    [][]float32
}

// loadSnapshot reads the collection metadata and every vector of a
// collection together with the generation they belong to, in a single read
// transaction.
func loadSnapshot(ctx context.Context, db *sql.DB, collection string) (*snapshot, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ret := &snapshot{info: CollectionInfo{Name: collection}}
	err = tx.QueryRowContext(ctx, `SELECT dimension, metric, generation FROM kb_collections WHERE name = ?`, collection).
		Scan(&ret.info.Dimension, &ret.info.Metric, &ret.generation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return nil, err
	}
	rows, err := tx.QueryContext(ctx, `SELECT document_id, embedding FROM kb_vectors WHERE collection = ? ORDER BY document_id`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var emb []byte
		if err := rows.Scan(&id, &emb); err != nil {
			return nil, err
		}
		v, err := DecodeEmbedding(emb)
		if err != nil {
			return nil, fmt.Errorf("vector: %s/%s: %w", collection, id, err)
		}
		if len(v) != ret.info.Dimension {
			return nil, fmt.Errorf("%w: %s/%s has %d, want %d", ErrDimensionMismatch, collection, id, len(v), ret.info.Dimension)
		}
		ret.ids = append(ret.ids, id)
		ret.vectors = append(ret.vectors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, tx.Commit()
}

// buildIndex scans the collection, builds the resolved index kind and
// persists it for the scanned generation, which it returns.
func buildIndex(ctx context.Context, db *sql.DB, collection string, want IndexKind) (index.Index, IndexKind, int64, error) {
	snap, err := loadSnapshot(ctx, db, collection)
	if err != nil {
		return nil, "", 0, err
	}
	info := snap.info
	kind := resolveIndexKind(want, info.Metric, len(snap.ids), info.Dimension)
	idx := newIndex(kind, info.Metric)
	if err := idx.Build(snap.ids, snap.vectors); err != nil {
		return nil, "", 0, fmt.Errorf("vector: build %s index for %s: %w", kind, collection, err)
	}
	data, err := idx.MarshalBinary()
	if err != nil {
		return nil, "", 0, err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO kb_vector_storage(collection, kind, generation, "index", built_at) VALUES(?, ?, ?, ?, ?)
ON CONFLICT(collection) DO UPDATE SET kind = excluded.kind, generation = excluded.generation, "index" = excluded."index", built_at = excluded.built_at`,
		collection, string(kind), snap.generation, data, time.Now().Unix())
	if err != nil {
		return nil, "", 0, fmt.Errorf("vector: persist index %s: %w", collection, err)
	}
	return idx, kind, snap.generation, nil
}
