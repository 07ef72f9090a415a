// Package pg implements the document and vector store capabilities on
// PostgreSQL with gorm and the pgvector extension.
package pg

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to PostgreSQL and routes gorm logs through log.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("pg: open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Migrate enables the vector extension and creates the store tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("pg: enable vector extension: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&documentRecord{}, &vectorRecord{}); err != nil {
		return fmt.Errorf("pg: migrate: %w", err)
	}
	return nil
}

// zapWriter adapts a zap logger to the gorm logger writer.
type zapWriter struct {
	log *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.log.Debugf(format, args...)
}

func newGormLogger(log *zap.Logger) logger.Interface {
	return logger.New(zapWriter{log: log.Sugar()}, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
}
