package repo

import (
	"context"
	"database/sql"

	"github.com/xxxsen/notebookrag/internal/model"
	"github.com/xxxsen/notebookrag/internal/pkg/dbutil"
	appErr "github.com/xxxsen/notebookrag/internal/pkg/errors"
)

const (
	CollectionStateNormal  = 1
	CollectionStateDeleted = 2
)

type CollectionRepo struct {
	db *sql.DB
}

func NewCollectionRepo(db *sql.DB) *CollectionRepo {
	return &CollectionRepo{db: db}
}

func (r *CollectionRepo) Create(ctx context.Context, item *model.Collection) error {
	return dbutil.Insert(ctx, r.db, "collections", map[string]interface{}{
		"id":       item.ID,
		"owner_id": item.OwnerID,
		"name":     item.Name,
		"state":    item.State,
		"ctime":    item.Ctime,
		"mtime":    item.Mtime,
	})
}

// AddMember reports ErrConflict when the user is already a member.
func (r *CollectionRepo) AddMember(ctx context.Context, member *model.CollectionMember) error {
	return dbutil.Insert(ctx, r.db, "collection_members", map[string]interface{}{
		"collection_id": member.CollectionID,
		"user_id":       member.UserID,
		"ctime":         member.Ctime,
	})
}

// GetAccessible returns the collection when userID owns it or is a member.
// Any other case, including a missing collection, is ErrNotFound.
func (r *CollectionRepo) GetAccessible(ctx context.Context, userID, collectionID string) (*model.Collection, error) {
	sqlStr := `
		SELECT c.id, c.owner_id, c.name, c.state, c.ctime, c.mtime
		FROM collections c
		LEFT JOIN collection_members m ON m.collection_id = c.id AND m.user_id = ?
		WHERE c.id = ? AND c.state = ? AND (c.owner_id = ? OR m.user_id IS NOT NULL)
		LIMIT 1
	`
	sqlStr, args := dbutil.Finalize(sqlStr, []interface{}{userID, collectionID, CollectionStateNormal, userID})
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var item model.Collection
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &item.State, &item.Ctime, &item.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}
