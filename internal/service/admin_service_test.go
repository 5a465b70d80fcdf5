package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/notebookrag/internal/model"
	appErr "github.com/xxxsen/notebookrag/internal/pkg/errors"
)

type memCollections struct {
	items   map[string]*model.Collection
	members []*model.CollectionMember
}

func (m *memCollections) Create(ctx context.Context, item *model.Collection) error {
	m.items[item.ID] = item
	return nil
}

func (m *memCollections) AddMember(ctx context.Context, member *model.CollectionMember) error {
	m.members = append(m.members, member)
	return nil
}

func (m *memCollections) GetAccessible(ctx context.Context, userID, collectionID string) (*model.Collection, error) {
	c, ok := m.items[collectionID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	if c.OwnerID == userID {
		return c, nil
	}
	for _, mb := range m.members {
		if mb.CollectionID == collectionID && mb.UserID == userID {
			return c, nil
		}
	}
	return nil, appErr.ErrNotFound
}

type memShares struct {
	items []*model.ShareLink
}

func (m *memShares) Create(ctx context.Context, share *model.ShareLink) error {
	m.items = append(m.items, share)
	return nil
}

func (m *memShares) Revoke(ctx context.Context, ownerID, shareID string, mtime int64) error {
	return nil
}

func TestAdminServiceCollectionsAndShares(t *testing.T) {
	colls := &memCollections{items: map[string]*model.Collection{}}
	shares := &memShares{}
	svc := NewAdminService(colls, shares)
	ctx := context.Background()

	coll, err := svc.CreateCollection(ctx, "u1", " Research ")
	require.NoError(t, err)
	require.Equal(t, "Research", coll.Name)
	require.Len(t, coll.ID, 36)

	require.NoError(t, svc.AddMember(ctx, "u1", coll.ID, "u2"))
	// members cannot manage the collection
	require.ErrorIs(t, svc.AddMember(ctx, "u2", coll.ID, "u3"), appErr.ErrNotFound)

	share, err := svc.CreateShare(ctx, "u1", coll.ID, model.SharePermissionChat, time.Hour)
	require.NoError(t, err)
	require.Len(t, share.Token, 40)
	require.Greater(t, share.ExpiresAt, share.Ctime)

	forever, err := svc.CreateShare(ctx, "u1", coll.ID, model.SharePermissionView, 0)
	require.NoError(t, err)
	require.Zero(t, forever.ExpiresAt)

	_, err = svc.CreateShare(ctx, "u1", coll.ID, "edit", 0)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.CreateShare(ctx, "u9", coll.ID, model.SharePermissionChat, 0)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	_, err = svc.CreateCollection(ctx, "u1", "")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}
