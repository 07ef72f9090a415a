package engine

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// DefaultBusyTimeoutMs is applied to every connection opened with Open.
const DefaultBusyTimeoutMs = 5000

// Options control connection setup.
type Options struct {
	// WAL enables write-ahead logging (file databases only).
	WAL bool
	// BusyTimeoutMs sets PRAGMA busy_timeout; zero uses DefaultBusyTimeoutMs.
	BusyTimeoutMs int
	// MaxOpenConns limits the pool; in-memory databases are always pinned
	// to a single connection so every statement sees the same database.
	MaxOpenConns int
}

// Option mutates Options.
type Option func(*Options)

// WithWAL enables journal_mode=WAL.
func WithWAL() Option { return func(o *Options) { o.WAL = true } }

// WithBusyTimeout sets the busy timeout in milliseconds.
func WithBusyTimeout(ms int) Option { return func(o *Options) { o.BusyTimeoutMs = ms } }

// WithMaxOpenConns sets the connection pool limit.
func WithMaxOpenConns(n int) Option { return func(o *Options) { o.MaxOpenConns = n } }

// Open opens a SQLite database using the modernc.org/sqlite driver and
// registers the vector scalar functions beforehand.
//
// For file-based databases, pass a path like "./kb.sqlite". For in-memory
// databases, pass ":memory:".
func Open(dsn string, opts ...Option) (*sql.DB, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if err := RegisterVectorFunctions(); err != nil {
		return nil, err
	}
	timeout := options.BusyTimeoutMs
	if timeout <= 0 {
		timeout = DefaultBusyTimeoutMs
	}
	if isMemory(dsn) {
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", timeout)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("engine: apply pragmas: %w", err)
		}
		return db, nil
	}
	// _pragma parameters are applied by the driver to every new connection.
	pragmas := []string{fmt.Sprintf("_pragma=busy_timeout(%d)", timeout)}
	if options.WAL {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dsn+sep+strings.Join(pragmas, "&"))
	if err != nil {
		return nil, err
	}
	if options.MaxOpenConns > 0 {
		db.SetMaxOpenConns(options.MaxOpenConns)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("engine: open %s: %w", dsn, err)
	}
	return db, nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
