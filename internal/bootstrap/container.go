// Package bootstrap wires configuration, logging and the selected storage
// backend into a knowledge-base client.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/viant/sqlite-kb/config"
	"github.com/viant/sqlite-kb/docstore"
	"github.com/viant/sqlite-kb/embed"
	"github.com/viant/sqlite-kb/engine"
	"github.com/viant/sqlite-kb/extract"
	"github.com/viant/sqlite-kb/kb"
	"github.com/viant/sqlite-kb/pg"
	"github.com/viant/sqlite-kb/vector"
)

// ErrUnsupported is returned for operations the configured backend lacks.
var ErrUnsupported = errors.New("bootstrap: operation not supported by backend")

// Container holds the wired dependencies of one kb invocation.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	sqlDB  *sql.DB
	gormDB *gorm.DB
	admin  *vector.Admin
	embed  embed.Func
}

// NewContainer opens the configured backend.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fn, err := NewEmbedder(cfg.Embedder, cfg.Collection.Dimension)
	if err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, Logger: logger, embed: fn}
	switch cfg.Backend {
	case config.BackendPostgres:
		if c.gormDB, err = pg.Open(cfg.PostgresDSN, logger.Named("gorm")); err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx, c.gormDB); err != nil {
			_ = c.Close()
			return nil, err
		}
	default:
		if c.sqlDB, err = engine.Open(cfg.Database, engine.WithWAL()); err != nil {
			return nil, err
		}
		if c.admin, err = vector.NewAdmin(ctx, c.sqlDB, vector.WithLogger(logger.Named("vector"))); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	logger.Debug("backend opened",
		zap.String("backend", cfg.Backend),
		zap.String("collection", cfg.Collection.Name))
	return c, nil
}

// NewEmbedder builds the configured embedding function, memoised when
// CacheSize is positive.
func NewEmbedder(cfg config.Embedder, dimension int) (embed.Func, error) {
	var fn embed.Func
	switch cfg.Kind {
	case config.EmbedderOllama:
		fn = embed.NewOllama(cfg.URL, cfg.Model)
	case config.EmbedderHashing, "":
		var err error
		if fn, err = embed.NewHashing(dimension); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("bootstrap: unsupported embedder %q", cfg.Kind)
	}
	if cfg.CacheSize > 0 {
		return embed.Cached(fn, cfg.CacheSize)
	}
	return fn, nil
}

// Admin returns the SQLite collection admin.
func (c *Container) Admin() (*vector.Admin, error) {
	if c.admin == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, c.Config.Backend)
	}
	return c.admin, nil
}

// Client builds the knowledge-base client over the configured collection,
// creating the SQLite collection when it does not exist yet.
func (c *Container) Client(ctx context.Context) (*kb.Client, error) {
	cfg := c.Config
	extractor := extract.New(extract.WithField(cfg.Collection.TextField))
	var docs kb.DocumentStore
	var vecs kb.VectorStore
	switch {
	case c.gormDB != nil:
		docs = pg.NewDocumentStore(c.gormDB, cfg.Collection.Name, c.Logger.Named("docstore"))
		info := vector.CollectionInfo{Name: cfg.Collection.Name, Dimension: cfg.Collection.Dimension, Metric: vector.Metric(cfg.Collection.Metric)}
		store, err := pg.NewVectorStore(c.gormDB, info, c.embed, pg.WithExtractor(extractor), pg.WithLogger(c.Logger.Named("vector")))
		if err != nil {
			return nil, err
		}
		vecs = store
	default:
		store, err := docstore.NewSQLite(ctx, c.sqlDB, cfg.Collection.Name, docstore.WithLogger(c.Logger.Named("docstore")))
		if err != nil {
			return nil, err
		}
		docs = store
		if err := c.admin.CreateCollection(ctx, cfg.CollectionSpec()); err != nil {
			return nil, err
		}
		kind, err := vector.ParseIndexKind(cfg.Collection.Index)
		if err != nil {
			return nil, err
		}
		vstore, err := c.admin.OpenCollection(ctx, cfg.Collection.Name, c.embed,
			vector.WithExtractor(extractor),
			vector.WithIndexKind(kind))
		if err != nil {
			return nil, err
		}
		if dim := vstore.Info().Dimension; dim != cfg.Collection.Dimension {
			return nil, fmt.Errorf("%w: collection %s has %d, configured %d", vector.ErrDimensionMismatch, cfg.Collection.Name, dim, cfg.Collection.Dimension)
		}
		vecs = vstore
	}
	return kb.New(docs, vecs, kb.WithLogger(c.Logger.Named("kb"))), nil
}

// Close releases the database handles.
func (c *Container) Close() error {
	var errs []error
	if c.sqlDB != nil {
		errs = append(errs, c.sqlDB.Close())
	}
	if c.gormDB != nil {
		if sqlDB, err := c.gormDB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
