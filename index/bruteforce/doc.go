// Package bruteforce provides a vector index that answers kNN queries by
// scoring every stored vector under the configured metric. It persists using
// the shared index codec.
package bruteforce
