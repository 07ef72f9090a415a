package engine

import (
	"encoding/binary"
	"math"
	"testing"
)

func blob(vec ...float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func TestVectorFunctions(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	// RegisterVectorFunctions is idempotent.
	if err := RegisterVectorFunctions(); err != nil {
		t.Fatalf("RegisterVectorFunctions failed: %v", err)
	}

	var testCases = []struct {
		description string
		query       string
		a, b        []byte
		expect      float64
	}{
		{description: "cosine orthogonal", query: `SELECT kb_cosine(?, ?)`, a: blob(1, 0), b: blob(0, 1), expect: 0},
		{description: "cosine identical", query: `SELECT kb_cosine(?, ?)`, a: blob(1, 0), b: blob(1, 0), expect: 1},
		{description: "cosine zero magnitude", query: `SELECT kb_cosine(?, ?)`, a: blob(0, 0), b: blob(1, 0), expect: 0},
		{description: "l2", query: `SELECT kb_l2(?, ?)`, a: blob(0, 0), b: blob(3, 4), expect: 5},
		{description: "dot", query: `SELECT kb_dot(?, ?)`, a: blob(1, 2), b: blob(3, 4), expect: 11},
	}
	for _, testCase := range testCases {
		var got float64
		if err := db.QueryRow(testCase.query, testCase.a, testCase.b).Scan(&got); err != nil {
			t.Fatalf("%s: query failed: %v", testCase.description, err)
		}
		if math.Abs(got-testCase.expect) > 1e-9 {
			t.Fatalf("%s: got %v, want %v", testCase.description, got, testCase.expect)
		}
	}
}

func TestVectorFunctions_Errors(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	var v float64
	if err := db.QueryRow(`SELECT kb_l2(?, ?)`, blob(1, 2), blob(1)).Scan(&v); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
	if err := db.QueryRow(`SELECT kb_cosine(?, ?)`, "text", blob(1)).Scan(&v); err == nil {
		t.Fatalf("expected unsupported argument error")
	}
	var null *float64
	if err := db.QueryRow(`SELECT kb_cosine(NULL, ?)`, blob(1)).Scan(&null); err != nil {
		t.Fatalf("NULL argument failed: %v", err)
	}
	if null != nil {
		t.Fatalf("expected NULL result, got %v", *null)
	}
}
