package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/notebookrag/internal/model"
	"github.com/xxxsen/notebookrag/internal/repo"
	"github.com/xxxsen/notebookrag/internal/testutil"
)

func TestEmbeddingCacheRepo(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	cache := repo.NewEmbeddingCacheRepo(conn)
	hash := uuid.NewString()

	_, ok, err := cache.Get(ctx, "m", "RETRIEVAL_QUERY", hash)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Save(ctx, &model.EmbeddingCache{ModelName: "m", TaskType: "RETRIEVAL_QUERY", ContentHash: hash, Embedding: []float32{1, 2}, Ctime: 100}))
	require.NoError(t, cache.Save(ctx, &model.EmbeddingCache{ModelName: "m", TaskType: "RETRIEVAL_QUERY", ContentHash: hash, Embedding: []float32{1, 2, 3}, Ctime: 200}))
	got, ok, err := cache.Get(ctx, "m", "RETRIEVAL_QUERY", hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{1, 2, 3}, got)

	_, ok, err = cache.Get(ctx, "m", "RETRIEVAL_DOCUMENT", hash)
	require.NoError(t, err)
	require.False(t, ok)

	require.Error(t, cache.Save(ctx, &model.EmbeddingCache{ModelName: "m", TaskType: "RETRIEVAL_QUERY", ContentHash: hash}))

	_, err = cache.DeleteBefore(ctx, 201)
	require.NoError(t, err)
	_, ok, err = cache.Get(ctx, "m", "RETRIEVAL_QUERY", hash)
	require.NoError(t, err)
	require.False(t, ok)
}
