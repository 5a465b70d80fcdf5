package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/xxxsen/notebookrag/internal/model"
	"github.com/xxxsen/notebookrag/internal/pkg/dbutil"
	appErr "github.com/xxxsen/notebookrag/internal/pkg/errors"
)

const (
	ShareStateActive  = 1
	ShareStateRevoked = 2
)

var shareFields = []string{"id", "token", "collection_id", "owner_id", "permission", "state", "expires_at", "ctime", "mtime"}

type ShareRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewShareRepo(db *sql.DB) *ShareRepo {
	return &ShareRepo{db: db, now: time.Now}
}

func (r *ShareRepo) Create(ctx context.Context, share *model.ShareLink) error {
	return dbutil.Insert(ctx, r.db, "share_links", map[string]interface{}{
		"id":            share.ID,
		"token":         share.Token,
		"collection_id": share.CollectionID,
		"owner_id":      share.OwnerID,
		"permission":    share.Permission,
		"state":         share.State,
		"expires_at":    share.ExpiresAt,
		"ctime":         share.Ctime,
		"mtime":         share.Mtime,
	})
}

// Revoke only touches active links of ownerID; anything else is ErrNotFound.
func (r *ShareRepo) Revoke(ctx context.Context, ownerID, shareID string, mtime int64) error {
	where := map[string]interface{}{"id": shareID, "owner_id": ownerID, "state": ShareStateActive}
	update := map[string]interface{}{"state": ShareStateRevoked, "mtime": mtime}
	affected, err := dbutil.Update(ctx, r.db, "share_links", where, update)
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *ShareRepo) GetByToken(ctx context.Context, token string) (*model.ShareLink, error) {
	rows, err := dbutil.Select(ctx, r.db, "share_links", map[string]interface{}{"token": token, "_limit": []uint{0, 1}}, shareFields)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	var share model.ShareLink
	if err := rows.Scan(&share.ID, &share.Token, &share.CollectionID, &share.OwnerID, &share.Permission, &share.State, &share.ExpiresAt, &share.Ctime, &share.Mtime); err != nil {
		return nil, err
	}
	return &share, nil
}

// ValidateShareToken never reports why a token is unusable: unknown,
// revoked and expired tokens all come back as IsValid=false.
func (r *ShareRepo) ValidateShareToken(ctx context.Context, token string) (*model.ShareValidation, error) {
	share, err := r.GetByToken(ctx, token)
	if err != nil {
		if appErr.IsNotFound(err) {
			return &model.ShareValidation{}, nil
		}
		return nil, err
	}
	return validateShare(share, r.now()), nil
}

func validateShare(share *model.ShareLink, now time.Time) *model.ShareValidation {
	if share.State != ShareStateActive {
		return &model.ShareValidation{}
	}
	if share.ExpiresAt > 0 && share.ExpiresAt <= now.Unix() {
		return &model.ShareValidation{}
	}
	return &model.ShareValidation{
		IsValid:      true,
		ShareID:      share.ID,
		CollectionID: share.CollectionID,
		OwnerID:      share.OwnerID,
		Permission:   share.Permission,
	}
}
