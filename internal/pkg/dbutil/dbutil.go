package dbutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	appErr "github.com/xxxsen/notebookrag/internal/pkg/errors"
)

const pqUniqueViolation = "23505"

// gendry renders _limit as the mysql "LIMIT offset,count" form.
var offsetLimit = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Finalize turns gendry output into postgres SQL: "?" becomes "$n" and
// "LIMIT offset,count" becomes "LIMIT count OFFSET offset". args is not
// modified.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	out := append([]interface{}(nil), args...)
	if loc := offsetLimit.FindStringIndex(query); loc != nil {
		at := strings.Count(query[:loc[0]], "?")
		if at+1 < len(out) {
			out[at], out[at+1] = out[at+1], out[at]
			query = query[:loc[0]] + "LIMIT ? OFFSET ?" + query[loc[1]:]
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), out
}

// Insert writes rows into table. A unique violation is reported as
// ErrConflict.
func Insert(ctx context.Context, ex Execer, table string, rows ...map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	sqlStr, args, err := builder.BuildInsert(table, rows)
	if err != nil {
		return fmt.Errorf("build insert %s: %w", table, err)
	}
	sqlStr, args = Finalize(sqlStr, args)
	if _, err := ex.ExecContext(ctx, sqlStr, args...); err != nil {
		if IsConflict(err) {
			return fmt.Errorf("insert %s: %w", table, appErr.ErrConflict)
		}
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// Update returns the number of rows changed.
func Update(ctx context.Context, ex Execer, table string, where, update map[string]interface{}) (int64, error) {
	sqlStr, args, err := builder.BuildUpdate(table, where, update)
	if err != nil {
		return 0, fmt.Errorf("build update %s: %w", table, err)
	}
	return exec(ctx, ex, sqlStr, args)
}

// Delete returns the number of rows removed.
func Delete(ctx context.Context, ex Execer, table string, where map[string]interface{}) (int64, error) {
	sqlStr, args, err := builder.BuildDelete(table, where)
	if err != nil {
		return 0, fmt.Errorf("build delete %s: %w", table, err)
	}
	return exec(ctx, ex, sqlStr, args)
}

// Select runs a gendry select. The caller closes the rows.
func Select(ctx context.Context, q Querier, table string, where map[string]interface{}, fields []string) (*sql.Rows, error) {
	sqlStr, args, err := builder.BuildSelect(table, where, fields)
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", table, err)
	}
	sqlStr, args = Finalize(sqlStr, args)
	return q.QueryContext(ctx, sqlStr, args...)
}

// InTx runs fn in a transaction, committing only when fn succeeds.
func InTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func IsConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func exec(ctx context.Context, ex Execer, sqlStr string, args []interface{}) (int64, error) {
	sqlStr, args = Finalize(sqlStr, args)
	res, err := ex.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
