package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/viant/sqlite-kb/embed"
	"github.com/viant/sqlite-kb/engine"
)

// Admin provisions and inspects vector collections stored in SQLite.
// Stores opened by the same Admin share one index cache.
type Admin struct {
	db     *sql.DB
	logger *zap.Logger
	cache  *indexCache
}

// AdminOption configures an Admin.
type AdminOption func(*Admin)

// WithLogger sets the logger used by the Admin and the stores it opens.
func WithLogger(logger *zap.Logger) AdminOption {
	return func(a *Admin) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdmin ensures the vector schema exists on db and returns an Admin.
func NewAdmin(ctx context.Context, db *sql.DB, opts ...AdminOption) (*Admin, error) {
	if db == nil {
		return nil, errors.New("vector: nil db")
	}
	if err := engine.RegisterVectorFunctions(); err != nil {
		return nil, err
	}
	a := &Admin{db: db, logger: zap.NewNop(), cache: newIndexCache()}
	for _, opt := range opts {
		opt(a)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateCollection creates a collection. An existing collection is left
// untouched unless spec.Recreate is set, in which case its vectors and
// persisted index are dropped and its metadata rewritten.
func (a *Admin) CreateCollection(ctx context.Context, spec CollectionSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var existing CollectionInfo
	err = tx.QueryRowContext(ctx, `SELECT name, dimension, metric FROM kb_collections WHERE name = ?`, spec.Name).
		Scan(&existing.Name, &existing.Dimension, &existing.Metric)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("vector: lookup collection %s: %w", spec.Name, err)
	}
	now := time.Now().Unix()
	switch {
	case exists && !spec.Recreate:
		if spec.WarnOnExists {
			a.logger.Warn("collection already exists",
				zap.String("collection", spec.Name),
				zap.Int("dimension", existing.Dimension),
				zap.String("metric", string(existing.Metric)))
		}
		return nil
	case exists:
		for _, stmt := range []string{
			`DELETE FROM kb_vectors WHERE collection = ?`,
			`DELETE FROM kb_vector_storage WHERE collection = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, spec.Name); err != nil {
				return fmt.Errorf("vector: recreate collection %s: %w", spec.Name, err)
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE kb_collections SET dimension = ?, metric = ?, generation = generation + 1, created_at = ? WHERE name = ?`,
			spec.Dimension, string(spec.Metric), now, spec.Name)
	default:
		// generations must not repeat across drop and create
		_, err = tx.ExecContext(ctx, `INSERT INTO kb_collections(name, dimension, metric, generation, created_at) VALUES(?, ?, ?, ?, ?)`,
			spec.Name, spec.Dimension, string(spec.Metric), time.Now().UnixNano(), now)
	}
	if err != nil {
		return fmt.Errorf("vector: create collection %s: %w", spec.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	a.cache.invalidate(spec.Name)
	a.logger.Info("collection created",
		zap.String("collection", spec.Name),
		zap.Int("dimension", spec.Dimension),
		zap.String("metric", string(spec.Metric)),
		zap.Bool("recreated", exists))
	return nil
}

// CollectionExists reports whether name exists.
func (a *Admin) CollectionExists(ctx context.Context, name string) (bool, error) {
	info, err := a.CollectionInfo(ctx, name)
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

// CollectionInfo returns the collection metadata, or nil when it does not exist.
func (a *Admin) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	info := &CollectionInfo{}
	err := a.db.QueryRowContext(ctx, `SELECT name, dimension, metric FROM kb_collections WHERE name = ?`, name).
		Scan(&info.Name, &info.Dimension, &info.Metric)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("vector: collection info %s: %w", name, err)
	}
	return info, nil
}

// Collections lists every collection ordered by name.
func (a *Admin) Collections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT name, dimension, metric FROM kb_collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("vector: list collections: %w", err)
	}
	defer rows.Close()
	var ret []CollectionInfo
	for rows.Next() {
		var info CollectionInfo
		if err := rows.Scan(&info.Name, &info.Dimension, &info.Metric); err != nil {
			return nil, err
		}
		ret = append(ret, info)
	}
	return ret, rows.Err()
}

// DropCollection removes a collection with its vectors and persisted index.
func (a *Admin) DropCollection(ctx context.Context, name string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.ExecContext(ctx, `DELETE FROM kb_collections WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("vector: drop collection %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	for _, stmt := range []string{
		`DELETE FROM kb_vectors WHERE collection = ?`,
		`DELETE FROM kb_vector_storage WHERE collection = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, name); err != nil {
			return fmt.Errorf("vector: drop collection %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	a.cache.invalidate(name)
	a.logger.Info("collection dropped", zap.String("collection", name))
	return nil
}

// Count returns the number of vectors stored in a collection.
func (a *Admin) Count(ctx context.Context, name string) (int, error) {
	info, err := a.requireCollection(ctx, name)
	if err != nil {
		return 0, err
	}
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kb_vectors WHERE collection = ?`, info.Name).Scan(&n); err != nil {
		return 0, fmt.Errorf("vector: count %s: %w", name, err)
	}
	return n, nil
}

// Reindex rebuilds and persists the index of a collection and returns the
// number of indexed vectors.
func (a *Admin) Reindex(ctx context.Context, name string) (int, error) {
	info, err := a.requireCollection(ctx, name)
	if err != nil {
		return 0, err
	}
	a.cache.invalidate(name)
	idx, kind, _, err := buildIndex(ctx, a.db, info.Name, IndexAuto)
	if err != nil {
		return 0, err
	}
	a.logger.Info("collection reindexed",
		zap.String("collection", name),
		zap.String("kind", string(kind)),
		zap.Int("vectors", idx.Len()))
	return idx.Len(), nil
}

// OpenCollection returns a Store bound to an existing collection.
func (a *Admin) OpenCollection(ctx context.Context, name string, fn embed.Func, opts ...Option) (*Store, error) {
	if fn == nil {
		return nil, errors.New("vector: embedding function is required")
	}
	info, err := a.requireCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	return newStore(a, *info, fn, opts...)
}

func (a *Admin) requireCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	info, err := a.CollectionInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return info, nil
}
