package vector

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	collectionsTable = "kb_collections"
	vectorsTable     = "kb_vectors"
	storageTable     = "kb_vector_storage"
)

// generation is bumped on every write to a collection; a persisted index is
// only valid for the generation it was built from.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS kb_collections (
    name TEXT PRIMARY KEY,
    dimension INTEGER NOT NULL,
    metric TEXT NOT NULL,
    generation INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS kb_vectors (
    collection TEXT NOT NULL,
    document_id TEXT NOT NULL,
    embedding BLOB NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (collection, document_id)
)`,
	`CREATE TABLE IF NOT EXISTS kb_vector_storage (
    collection TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    generation INTEGER NOT NULL,
    "index" BLOB NOT NULL,
    built_at INTEGER NOT NULL
)`,
}

// EnsureSchema creates the collection metadata, vector and persisted index
// tables if they do not already exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("vector: ensure schema: %w", err)
		}
	}
	return nil
}
