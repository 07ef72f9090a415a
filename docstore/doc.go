// Package docstore provides document stores that mint identities on insert:
// a SQLite store persisting fields as JSON and an in-memory store.
package docstore
