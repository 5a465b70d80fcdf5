package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/xxxsen/notebookrag/internal/model"
	"github.com/xxxsen/notebookrag/internal/pkg/dbutil"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendExchange stores the messages of one exchange atomically.
func (r *MessageRepo) AppendExchange(ctx context.Context, msgs []*model.Message) error {
	rows := make([]map[string]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		sources, err := encodeSources(msg.Sources)
		if err != nil {
			return err
		}
		rows = append(rows, map[string]interface{}{
			"id":            msg.ID,
			"collection_id": msg.CollectionID,
			"owner_id":      msg.OwnerID,
			"role":          msg.Role,
			"content":       msg.Content,
			"sources":       sources,
			"ctime":         msg.Ctime,
		})
	}
	return dbutil.InTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, row := range rows {
			if err := dbutil.Insert(ctx, tx, "messages", row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *MessageRepo) ListByCollection(ctx context.Context, collectionID, ownerID string, limit, offset uint) ([]model.Message, error) {
	where := map[string]interface{}{
		"collection_id": collectionID,
		"owner_id":      ownerID,
		"_orderby":      "ctime asc, id asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	rows, err := dbutil.Select(ctx, r.db, "messages", where, []string{"id", "collection_id", "owner_id", "role", "content", "sources", "ctime"})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Message, 0)
	for rows.Next() {
		var item model.Message
		var sources []byte
		if err := rows.Scan(&item.ID, &item.CollectionID, &item.OwnerID, &item.Role, &item.Content, &sources, &item.Ctime); err != nil {
			return nil, err
		}
		if item.Sources, err = decodeSources(sources); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// encodeSources maps an empty list to SQL NULL.
func encodeSources(sources []model.RetrievedSource) (interface{}, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeSources(raw []byte) ([]model.RetrievedSource, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var sources []model.RetrievedSource
	if err := json.Unmarshal(raw, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}
