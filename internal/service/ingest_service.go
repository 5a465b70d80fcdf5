package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/notebookrag/internal/access"
	"github.com/xxxsen/notebookrag/internal/ai"
	"github.com/xxxsen/notebookrag/internal/model"
	appErr "github.com/xxxsen/notebookrag/internal/pkg/errors"
	"github.com/xxxsen/notebookrag/internal/pkg/timeutil"
	"github.com/xxxsen/notebookrag/internal/rag"
	"github.com/xxxsen/notebookrag/internal/sourcestore"
)

const maxSourceBytes = 16 << 20

type ChunkStore interface {
	Insert(ctx context.Context, chunks []*model.Chunk) error
	CountByCollection(ctx context.Context, ownerID, collectionID string) (int, error)
}

// IngestService loads pre-extracted text, cuts it into passages and stores
// them with their document embeddings.
type IngestService struct {
	collections access.CollectionLookup
	sources     sourcestore.Store
	chunker     *rag.Chunker
	embedder    ai.IEmbedder
	chunks      ChunkStore
}

func NewIngestService(collections access.CollectionLookup, sources sourcestore.Store, chunker *rag.Chunker, embedder ai.IEmbedder, chunks ChunkStore) *IngestService {
	return &IngestService{collections: collections, sources: sources, chunker: chunker, embedder: embedder, chunks: chunks}
}

// IngestRequest is issued by UserID, which may be the collection owner or a
// member. Stored chunks always belong to the collection owner.
type IngestRequest struct {
	UserID       string
	CollectionID string
	Key          string
	FileName     string
}

type IngestResult struct {
	Stored int
	Total  int
}

func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.UserID == "" || req.CollectionID == "" || req.Key == "" {
		return nil, appErr.ErrInvalid
	}
	coll, err := s.collections.GetAccessible(ctx, req.UserID, req.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", req.CollectionID, err)
	}
	fileName := req.FileName
	if fileName == "" {
		fileName = path.Base(req.Key)
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("collection_id", coll.ID),
		zap.String("owner_id", coll.OwnerID),
		zap.String("file_name", fileName),
	)

	data, err := sourcestore.ReadAll(ctx, s.sources, req.Key, maxSourceBytes)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("source %s is not utf-8 text: %w", req.Key, appErr.ErrInvalid)
	}
	text := strings.ReplaceAll(string(data), "\x00", "")
	pieces := s.chunker.Chunk(ctx, text)
	res := &IngestResult{}
	if len(pieces) == 0 {
		logger.Info("source has no text, skipped")
	} else {
		now := timeutil.NowUnix()
		chunks := make([]*model.Chunk, 0, len(pieces))
		for _, piece := range pieces {
			vec, err := s.embedder.Embed(ctx, piece.Content, ai.TaskTypeRetrievalDocument)
			if err != nil {
				return nil, fmt.Errorf("embed piece %d: %w", piece.Position, err)
			}
			chunks = append(chunks, &model.Chunk{
				ID:           newID(),
				OwnerID:      coll.OwnerID,
				CollectionID: coll.ID,
				Content:      piece.Content,
				Embedding:    vec,
				Metadata:     model.ChunkMetadata{FileName: fileName},
				Ctime:        now,
			})
		}
		if err := s.chunks.Insert(ctx, chunks); err != nil {
			return nil, fmt.Errorf("insert chunks: %w", err)
		}
		res.Stored = len(chunks)
	}
	if res.Total, err = s.chunks.CountByCollection(ctx, coll.OwnerID, coll.ID); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	logger.Info("source ingested", zap.Int("stored", res.Stored), zap.Int("total", res.Total))
	return res, nil
}
