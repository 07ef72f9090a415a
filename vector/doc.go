// Package vector implements a SQLite-backed vector store bound to a named
// collection. It includes:
//   - Admin: collection provisioning (create/recreate, info, drop, reindex)
//   - Store: text extraction, embedding, upsert and kNN retrieval
//   - an index cache with persisted index blobs in kb_vector_storage
//   - embedding encoding (BLOB) and distance functions
package vector
