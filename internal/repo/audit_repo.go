package repo

import (
	"context"
	"database/sql"

	"github.com/xxxsen/notebookrag/internal/model"
	"github.com/xxxsen/notebookrag/internal/pkg/dbutil"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Record(ctx context.Context, item *model.ChatAudit) error {
	return dbutil.Insert(ctx, r.db, "chat_audit", map[string]interface{}{
		"id":            item.ID,
		"share_id":      item.ShareID,
		"collection_id": item.CollectionID,
		"client_hash":   item.ClientHash,
		"ctime":         item.Ctime,
	})
}

// DeleteBefore removes audit rows older than cutoff (unix ms).
func (r *AuditRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	return dbutil.Delete(ctx, r.db, "chat_audit", map[string]interface{}{"ctime <": cutoff})
}
