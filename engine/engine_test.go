package engine

import (
	"path/filepath"
	"testing"
)

// TestOpenInMemory verifies that we can open an in-memory SQLite database
// using the modernc.org/sqlite driver and execute a trivial statement.
func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE t(x INTEGER)"); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO t(x) VALUES (1),(2),(3)"); err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM t").Scan(&n); err != nil {
		t.Fatalf("COUNT failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("COUNT = %d, want 3", n)
	}
}

// TestOpenFileWAL verifies pragmas are applied to file databases.
func TestOpenFileWAL(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "kb.sqlite"), WithWAL(), WithBusyTimeout(1000), WithMaxOpenConns(2))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode failed: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("PRAGMA busy_timeout failed: %v", err)
	}
	if timeout != 1000 {
		t.Fatalf("busy_timeout = %d, want 1000", timeout)
	}
}
