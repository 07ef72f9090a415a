package docstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-kb/document"
	"github.com/viant/sqlite-kb/engine"
)

type store interface {
	CollectionName() string
	InsertDocument(ctx context.Context, doc document.Document) (document.ID, error)
	InsertDocuments(ctx context.Context, docs []document.Document) ([]document.ID, error)
	FindDocumentsByIDs(ctx context.Context, ids []document.ID) ([]document.Document, error)
}

func sequence() IDFunc {
	n := 0
	return func() document.ID {
		n++
		return document.ID(fmt.Sprintf("doc-%d", n))
	}
}

func stores(t *testing.T, opts ...Option) map[string]store {
	t.Helper()
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sqlite, err := NewSQLite(context.Background(), db, "notes", opts...)
	require.NoError(t, err)
	return map[string]store{
		"sqlite": sqlite,
		"memory": NewMemory("notes", opts...),
	}
}

func TestStores_InsertAndFind(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.Equal(t, "notes", s.CollectionName())

			id, err := s.InsertDocument(ctx, document.NewText("alpha"))
			require.NoError(t, err)
			assert.False(t, id.IsZero())

			ids, err := s.InsertDocuments(ctx, []document.Document{
				document.NewText("beta"),
				document.New(document.Fields{"text": "gamma", "rank": 3}),
				document.New(nil),
			})
			require.NoError(t, err)
			require.Len(t, ids, 3)
			assert.NotEqual(t, ids[0], ids[1])

			found, err := s.FindDocumentsByIDs(ctx, []document.ID{ids[1], "missing", id, ids[0], ids[2]})
			require.NoError(t, err)
			require.Len(t, found, 4)
			assert.Equal(t, []document.ID{ids[1], id, ids[0], ids[2]}, document.IDs(found))
			text, _ := found[1].Get("text")
			assert.Equal(t, "alpha", text)
			rank, _ := found[0].Get("rank")
			assert.EqualValues(t, 3, rank)
			assert.Empty(t, found[3].Fields)

			empty, err := s.FindDocumentsByIDs(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStores_IDFunc(t *testing.T) {
	for name := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := stores(t, WithIDFunc(sequence()))[name]
			ids, err := s.InsertDocuments(context.Background(), []document.Document{document.NewText("a"), document.NewText("b")})
			require.NoError(t, err)
			assert.Equal(t, []document.ID{"doc-1", "doc-2"}, ids)
		})
	}
}

func TestSQLite_BatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	s, err := NewSQLite(ctx, db, "notes", WithIDFunc(func() document.ID { return "same" }))
	require.NoError(t, err)

	_, err = s.InsertDocuments(ctx, []document.Document{document.NewText("a"), document.NewText("b")})
	assert.Error(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kb_documents`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestSQLite_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	a, err := NewSQLite(ctx, db, "a")
	require.NoError(t, err)
	b, err := NewSQLite(ctx, db, "b")
	require.NoError(t, err)

	id, err := a.InsertDocument(ctx, document.NewText("x"))
	require.NoError(t, err)
	found, err := b.FindDocumentsByIDs(ctx, []document.ID{id})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSQLite_LookupChunks(t *testing.T) {
	ctx := context.Background()
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	s, err := NewSQLite(ctx, db, "notes")
	require.NoError(t, err)

	docs := make([]document.Document, lookupChunk+10)
	for i := range docs {
		docs[i] = document.NewText(fmt.Sprintf("doc %d", i))
	}
	ids, err := s.InsertDocuments(ctx, docs)
	require.NoError(t, err)
	found, err := s.FindDocumentsByIDs(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, ids, document.IDs(found))
}

func TestMemory_CopiesFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("notes")
	fields := document.Fields{"text": "a"}
	id, err := m.InsertDocument(ctx, document.New(fields))
	require.NoError(t, err)
	fields["text"] = "changed"

	found, err := m.FindDocumentsByIDs(ctx, []document.ID{id})
	require.NoError(t, err)
	require.Len(t, found, 1)
	text, _ := found[0].Get("text")
	assert.Equal(t, "a", text)
	assert.Equal(t, 1, m.Len())
}
