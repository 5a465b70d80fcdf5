package repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/notebookrag/internal/model"
)

func TestValidateShare(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	base := model.ShareLink{
		ID:           "share-1",
		Token:        "tok",
		CollectionID: "col-1",
		OwnerID:      "owner-1",
		Permission:   model.SharePermissionChat,
		State:        ShareStateActive,
	}

	active := base
	got := validateShare(&active, now)
	require.True(t, got.IsValid)
	require.Equal(t, "owner-1", got.OwnerID)
	require.Equal(t, "col-1", got.CollectionID)
	require.Equal(t, model.SharePermissionChat, got.Permission)

	future := base
	future.ExpiresAt = now.Unix() + 60
	require.True(t, validateShare(&future, now).IsValid)

	expired := base
	expired.ExpiresAt = now.Unix()
	require.Equal(t, &model.ShareValidation{}, validateShare(&expired, now))

	revoked := base
	revoked.State = ShareStateRevoked
	require.Equal(t, &model.ShareValidation{}, validateShare(&revoked, now))
}
