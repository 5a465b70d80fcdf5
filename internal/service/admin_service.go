package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/notebookrag/internal/model"
	appErr "github.com/xxxsen/notebookrag/internal/pkg/errors"
	"github.com/xxxsen/notebookrag/internal/pkg/timeutil"
	"github.com/xxxsen/notebookrag/internal/repo"
)

type CollectionStore interface {
	Create(ctx context.Context, item *model.Collection) error
	AddMember(ctx context.Context, member *model.CollectionMember) error
	GetAccessible(ctx context.Context, userID, collectionID string) (*model.Collection, error)
}

type ShareStore interface {
	Create(ctx context.Context, share *model.ShareLink) error
	Revoke(ctx context.Context, ownerID, shareID string, mtime int64) error
}

// AdminService manages collections and their share links.
type AdminService struct {
	collections CollectionStore
	shares      ShareStore
}

func NewAdminService(collections CollectionStore, shares ShareStore) *AdminService {
	return &AdminService{collections: collections, shares: shares}
}

func (s *AdminService) CreateCollection(ctx context.Context, ownerID, name string) (*model.Collection, error) {
	name = strings.TrimSpace(name)
	if ownerID == "" || name == "" {
		return nil, appErr.ErrInvalid
	}
	now := timeutil.NowUnix()
	item := &model.Collection{
		ID:      newID(),
		OwnerID: ownerID,
		Name:    name,
		State:   repo.CollectionStateNormal,
		Ctime:   now,
		Mtime:   now,
	}
	if err := s.collections.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// AddMember lets userID chat against a collection owned by ownerID.
func (s *AdminService) AddMember(ctx context.Context, ownerID, collectionID, userID string) error {
	coll, err := s.collections.GetAccessible(ctx, ownerID, collectionID)
	if err != nil {
		return err
	}
	if coll.OwnerID != ownerID {
		return appErr.ErrNotFound
	}
	return s.collections.AddMember(ctx, &model.CollectionMember{
		CollectionID: collectionID,
		UserID:       userID,
		Ctime:        timeutil.NowUnix(),
	})
}

// CreateShare issues a share token for collectionID. A zero ttl never expires.
func (s *AdminService) CreateShare(ctx context.Context, ownerID, collectionID, permission string, ttl time.Duration) (*model.ShareLink, error) {
	if permission != model.SharePermissionView && permission != model.SharePermissionChat {
		return nil, fmt.Errorf("permission %q: %w", permission, appErr.ErrInvalid)
	}
	coll, err := s.collections.GetAccessible(ctx, ownerID, collectionID)
	if err != nil {
		return nil, err
	}
	if coll.OwnerID != ownerID {
		return nil, appErr.ErrNotFound
	}
	now := timeutil.NowUnix()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now + int64(ttl/time.Second)
	}
	share := &model.ShareLink{
		ID:           newID(),
		Token:        newToken(),
		CollectionID: collectionID,
		OwnerID:      ownerID,
		Permission:   permission,
		State:        repo.ShareStateActive,
		ExpiresAt:    expiresAt,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.shares.Create(ctx, share); err != nil {
		return nil, err
	}
	return share, nil
}

func (s *AdminService) RevokeShare(ctx context.Context, ownerID, shareID string) error {
	return s.shares.Revoke(ctx, ownerID, shareID, timeutil.NowUnix())
}
