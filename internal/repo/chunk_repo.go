package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/notebookrag/internal/model"
	"github.com/xxxsen/notebookrag/internal/pkg/dbutil"
)

// retrieveSQL narrows to the scoped rows of the query's dimension before any
// distance is computed. MATERIALIZED keeps the planner from pushing the
// similarity filter below the dimension filter, where <=> would fail on
// vectors of another size.
const retrieveSQL = `
	WITH scoped AS MATERIALIZED (
		SELECT id, content, file_name, seq, embedding
		FROM chunks
		WHERE owner_id = $2 AND collection_id = $3 AND dims = $4
	), scored AS (
		SELECT id, content, file_name, seq, GREATEST(0, 1 - (embedding <=> $1)) AS similarity
		FROM scoped
	)
	SELECT id, content, file_name, similarity
	FROM scored
	WHERE similarity > $5
	ORDER BY similarity DESC, seq ASC
	LIMIT $6
`

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Insert writes chunks in slice order inside one transaction so their
// sequence numbers follow ingestion order.
func (r *ChunkRepo) Insert(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return dbutil.InTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, chunk := range chunks {
			if len(chunk.Embedding) == 0 {
				return fmt.Errorf("chunk %s has no embedding", chunk.ID)
			}
			if err := dbutil.Insert(ctx, tx, "chunks", map[string]interface{}{
				"id":            chunk.ID,
				"owner_id":      chunk.OwnerID,
				"collection_id": chunk.CollectionID,
				"content":       chunk.Content,
				"embedding":     pgvector.NewVector(chunk.Embedding),
				"dims":          len(chunk.Embedding),
				"file_name":     chunk.Metadata.FileName,
				"ctime":         chunk.Ctime,
			}); err != nil {
				return fmt.Errorf("chunk %s: %w", chunk.ID, err)
			}
		}
		return nil
	})
}

// Retrieve ranks the chunks of one owner's collection by cosine similarity,
// clamped to [0,1]. Only scores strictly above threshold are kept and ties
// go to the earliest ingested chunk. Chunks embedded with another dimension
// are never candidates.
func (r *ChunkRepo) Retrieve(ctx context.Context, query []float32, ownerID, collectionID string, k int, threshold float64) ([]model.RetrievedSource, error) {
	if k <= 0 || len(query) == 0 {
		return []model.RetrievedSource{}, nil
	}
	rows, err := r.db.QueryContext(ctx, retrieveSQL, pgvector.NewVector(query), ownerID, collectionID, len(query), threshold, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make([]model.RetrievedSource, 0, k)
	for rows.Next() {
		var item model.RetrievedSource
		if err := rows.Scan(&item.ChunkID, &item.Content, &item.FileName, &item.Similarity); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func (r *ChunkRepo) CountByCollection(ctx context.Context, ownerID, collectionID string) (int, error) {
	const query = `SELECT COUNT(1) FROM chunks WHERE owner_id = $1 AND collection_id = $2`
	var n int
	if err := r.db.QueryRowContext(ctx, query, ownerID, collectionID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
