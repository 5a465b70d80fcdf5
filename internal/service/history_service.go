package service

import (
	"context"

	"github.com/xxxsen/notebookrag/internal/access"
	"github.com/xxxsen/notebookrag/internal/model"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type MessageLister interface {
	ListByCollection(ctx context.Context, collectionID, ownerID string, limit, offset uint) ([]model.Message, error)
}

type HistoryService struct {
	messages MessageLister
}

func NewHistoryService(messages MessageLister) *HistoryService {
	return &HistoryService{messages: messages}
}

// List returns the message log the caller authored in the scoped collection,
// oldest first.
func (s *HistoryService) List(ctx context.Context, scope *access.Scope, limit, offset uint) ([]model.Message, error) {
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.messages.ListByCollection(ctx, scope.CollectionID, scope.ActorID, limit, offset)
}
