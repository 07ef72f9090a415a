package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/viant/sqlite-kb/document"
	"github.com/viant/sqlite-kb/engine"
)

func TestAdmin_CreateCollection(t *testing.T) {
	ctx := context.Background()
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	core, logs := observer.New(zapcore.WarnLevel)
	admin, err := NewAdmin(ctx, db, WithLogger(zap.New(core)))
	require.NoError(t, err)

	info, err := admin.CollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Nil(t, info)

	require.NoError(t, admin.CreateCollection(ctx, CollectionSpec{Name: "docs", Dimension: 2}))
	info, err = admin.CollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, &CollectionInfo{Name: "docs", Dimension: 2, Metric: Cosine}, info)

	// existing collection is kept and a warning is logged
	require.NoError(t, admin.CreateCollection(ctx, CollectionSpec{Name: "docs", Dimension: 8, Metric: "l2", WarnOnExists: true}))
	info, err = admin.CollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Dimension)
	assert.Equal(t, 1, logs.FilterMessage("collection already exists").Len())

	emb := compassEmbedder()
	store, err := admin.OpenCollection(ctx, "docs", emb.embed)
	require.NoError(t, err)
	require.NoError(t, store.InsertDocument(ctx, textDoc("e", "east")))

	require.NoError(t, admin.CreateCollection(ctx, CollectionSpec{Name: "docs", Dimension: 3, Metric: "l2", Recreate: true}))
	info, err = admin.CollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, &CollectionInfo{Name: "docs", Dimension: 3, Metric: Euclidean}, info)
	count, err := admin.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAdmin_CreateCollection_Invalid(t *testing.T) {
	admin := newAdmin(t)
	ctx := context.Background()
	assert.Error(t, admin.CreateCollection(ctx, CollectionSpec{Dimension: 2}))
	assert.Error(t, admin.CreateCollection(ctx, CollectionSpec{Name: "x"}))
	err := admin.CreateCollection(ctx, CollectionSpec{Name: "x", Dimension: 2, Metric: "manhattan"})
	assert.True(t, errors.Is(err, ErrUnsupportedMetric))
}

func TestAdmin_CollectionsAndDrop(t *testing.T) {
	ctx := context.Background()
	admin := newAdmin(t)
	require.NoError(t, admin.CreateCollection(ctx, CollectionSpec{Name: "b", Dimension: 4, Metric: Dot}))
	require.NoError(t, admin.CreateCollection(ctx, CollectionSpec{Name: "a", Dimension: 2}))

	list, err := admin.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []CollectionInfo{
		{Name: "a", Dimension: 2, Metric: Cosine},
		{Name: "b", Dimension: 4, Metric: Dot},
	}, list)

	require.NoError(t, admin.DropCollection(ctx, "a"))
	exists, err := admin.CollectionExists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)

	err = admin.DropCollection(ctx, "a")
	assert.True(t, errors.Is(err, ErrCollectionNotFound))
	_, err = admin.OpenCollection(ctx, "a", compassEmbedder().embed)
	assert.True(t, errors.Is(err, ErrCollectionNotFound))
	_, err = admin.Reindex(ctx, "a")
	assert.True(t, errors.Is(err, ErrCollectionNotFound))
}

func TestAdmin_OpenCollection_UnsupportedIndex(t *testing.T) {
	ctx := context.Background()
	admin := newAdmin(t)
	require.NoError(t, admin.CreateCollection(ctx, CollectionSpec{Name: "docs", Dimension: 2, Metric: Dot}))
	_, err := admin.OpenCollection(ctx, "docs", compassEmbedder().embed, WithIndexKind(IndexVPTree))
	assert.True(t, errors.Is(err, ErrUnsupportedMetric))
	_, err = admin.OpenCollection(ctx, "docs", compassEmbedder().embed, WithIndexKind("hnsw"))
	assert.Error(t, err)
	_, err = admin.OpenCollection(ctx, "docs", nil)
	assert.Error(t, err)
}

func TestAdmin_Reindex(t *testing.T) {
	ctx := context.Background()
	admin := newAdmin(t)
	emb := compassEmbedder()
	store := openStore(t, admin, Cosine, emb.embed)
	require.NoError(t, store.InsertDocuments(ctx, []document.Document{
		textDoc("e", "east"),
		textDoc("n", "north"),
		textDoc("w", "west"),
	}))

	n, err := admin.Reindex(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	idx, _, err := loadPersistedIndex(ctx, admin.db, "docs", IndexAuto)
	require.NoError(t, err)
	require.NotNil(t, idx)
	assert.Equal(t, 3, idx.Len())

	ids, err := store.RetrieveSimilarDocumentIDs(ctx, "east", 1)
	require.NoError(t, err)
	assert.Equal(t, []document.ID{"e"}, ids)
}
