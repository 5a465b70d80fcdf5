package dbutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/notebookrag/internal/pkg/errors"
)

type recordingExec struct {
	query string
	args  []interface{}
	err   error
}

func (r *recordingExec) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	r.query = query
	r.args = args
	if r.err != nil {
		return nil, r.err
	}
	return driverResult(3), nil
}

type driverResult int64

func (d driverResult) LastInsertId() (int64, error) { return 0, nil }
func (d driverResult) RowsAffected() (int64, error) { return int64(d), nil }

func TestFinalizeRebindsPlaceholders(t *testing.T) {
	query, args := Finalize("SELECT id FROM messages WHERE collection_id = ? AND owner_id = ?", []interface{}{"c", "o"})
	require.Equal(t, "SELECT id FROM messages WHERE collection_id = $1 AND owner_id = $2", query)
	require.Equal(t, []interface{}{"c", "o"}, args)
}

func TestFinalizeRewritesOffsetLimit(t *testing.T) {
	in := []interface{}{"o", 10, 20}
	query, args := Finalize("SELECT id FROM messages WHERE owner_id = ? ORDER BY ctime LIMIT ?,?", in)
	require.Equal(t, "SELECT id FROM messages WHERE owner_id = $1 ORDER BY ctime LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{"o", 20, 10}, args)
	require.Equal(t, []interface{}{"o", 10, 20}, in)
}

func TestInsertMapsUniqueViolation(t *testing.T) {
	ex := &recordingExec{err: &pq.Error{Code: "23505"}}
	err := Insert(context.Background(), ex, "share_links", map[string]interface{}{"id": "s1"})
	require.ErrorIs(t, err, appErr.ErrConflict)
	require.True(t, strings.HasPrefix(ex.query, "INSERT INTO share_links"))
	require.Contains(t, ex.query, "$1")
	require.NotContains(t, ex.query, "?")

	ex = &recordingExec{err: errors.New("boom")}
	err = Insert(context.Background(), ex, "share_links", map[string]interface{}{"id": "s1"})
	require.Error(t, err)
	require.NotErrorIs(t, err, appErr.ErrConflict)

	require.NoError(t, Insert(context.Background(), &recordingExec{}, "share_links"))
}

func TestDeleteReportsAffectedRows(t *testing.T) {
	ex := &recordingExec{}
	n, err := Delete(context.Background(), ex, "chat_audit", map[string]interface{}{"ctime <": int64(100)})
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.True(t, strings.HasPrefix(ex.query, "DELETE FROM chat_audit WHERE"))
	require.Contains(t, ex.query, "$1")
	require.Equal(t, []interface{}{int64(100)}, ex.args)
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.True(t, IsConflict(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	require.False(t, IsConflict(&pq.Error{Code: "23503"}))
	require.False(t, IsConflict(errors.New("boom")))
}
