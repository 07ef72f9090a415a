// Package engine provides helpers for working with the modernc.org/sqlite
// driver in this module: opening connections with the pragmas the stores
// expect, and registering SQL scalar functions for vector distance. It keeps
// a thin surface so the document and vector stores share one driver.
package engine
