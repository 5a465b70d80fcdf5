package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/notebookrag/internal/model"
	"github.com/xxxsen/notebookrag/internal/pkg/dbutil"
)

// EmbeddingCacheRepo stores provider embeddings keyed by model, task type
// and content hash. Each row records its vector dimension so a model whose
// output size changed is never served a stale vector.
type EmbeddingCacheRepo struct {
	db *sql.DB
}

func NewEmbeddingCacheRepo(db *sql.DB) *EmbeddingCacheRepo {
	return &EmbeddingCacheRepo{db: db}
}

func (r *EmbeddingCacheRepo) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	where := map[string]interface{}{
		"model_name":   modelName,
		"task_type":    taskType,
		"content_hash": contentHash,
		"_limit":       []uint{0, 1},
	}
	rows, err := dbutil.Select(ctx, r.db, "embedding_cache", where, []string{"embedding", "dims"})
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, false, rows.Err()
	}
	var (
		embedding pgvector.Vector
		dims      int
	)
	if err := rows.Scan(&embedding, &dims); err != nil {
		return nil, false, err
	}
	values := embedding.Slice()
	if len(values) == 0 || len(values) != dims {
		return nil, false, nil
	}
	return values, true, nil
}

// Save upserts the embedding, replacing any earlier vector of a different
// dimension for the same key.
func (r *EmbeddingCacheRepo) Save(ctx context.Context, item *model.EmbeddingCache) error {
	if len(item.Embedding) == 0 {
		return fmt.Errorf("embedding cache %s: empty vector", item.ContentHash)
	}
	const query = `
		INSERT INTO embedding_cache (model_name, task_type, content_hash, embedding, dims, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (model_name, task_type, content_hash) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			dims = EXCLUDED.dims,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ModelName,
		item.TaskType,
		item.ContentHash,
		pgvector.NewVector(item.Embedding),
		len(item.Embedding),
		item.Ctime,
	)
	return err
}

// DeleteBefore removes cache rows written before cutoff (unix seconds).
func (r *EmbeddingCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	return dbutil.Delete(ctx, r.db, "embedding_cache", map[string]interface{}{"ctime <": cutoff})
}
