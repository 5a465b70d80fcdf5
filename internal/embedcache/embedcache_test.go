package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/notebookrag/internal/model"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text, taskType string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string { return "m" }

type memStore struct {
	items   map[string]*model.EmbeddingCache
	getErr  error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{items: map[string]*model.EmbeddingCache{}}
}

func (m *memStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	item, ok := m.items[modelName+taskType+contentHash]
	if !ok {
		return nil, false, nil
	}
	return item.Embedding, true, nil
}

func (m *memStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[item.ModelName+item.TaskType+item.ContentHash] = item
	return nil
}

func TestLRUCachesPerTaskType(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLRU(next, 10, time.Minute)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "hello", "Q")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "hello", "Q")
	require.NoError(t, err)
	require.Equal(t, v1, v2)
	require.Equal(t, 1, next.calls)

	_, err = e.Embed(ctx, "hello", "D")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
	require.Equal(t, "m", e.ModelName())
}

func TestLRUReturnsCopies(t *testing.T) {
	e := WrapLRU(&countingEmbedder{}, 10, time.Minute)
	v1, err := e.Embed(context.Background(), "x", "Q")
	require.NoError(t, err)
	v1[0] = 99
	v2, err := e.Embed(context.Background(), "x", "Q")
	require.NoError(t, err)
	require.Equal(t, float32(1), v2[0])
}

func TestLRUDisabled(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, WrapLRU(next, 0, time.Minute))
}

func TestStoreEmbedder(t *testing.T) {
	next := &countingEmbedder{}
	store := newMemStore()
	e := WrapStore(next, store)
	ctx := context.Background()

	_, err := e.Embed(ctx, "abc", "Q")
	require.NoError(t, err)
	vec, err := e.Embed(ctx, "abc", "Q")
	require.NoError(t, err)
	require.Equal(t, []float32{3, 1}, vec)
	require.Equal(t, 1, next.calls)
	require.Len(t, store.items, 1)
}

func TestStoreEmbedderToleratesStoreFailures(t *testing.T) {
	next := &countingEmbedder{}
	store := newMemStore()
	store.getErr = errors.New("db down")
	store.saveErr = errors.New("db down")
	e := WrapStore(next, store)

	vec, err := e.Embed(context.Background(), "abc", "Q")
	require.NoError(t, err)
	require.Equal(t, []float32{3, 1}, vec)
}

func TestStoreEmbedderPropagatesProviderError(t *testing.T) {
	e := WrapStore(&countingEmbedder{err: errors.New("quota")}, newMemStore())
	_, err := e.Embed(context.Background(), "abc", "Q")
	require.EqualError(t, err, "quota")
}
