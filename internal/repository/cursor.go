package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
)

// parseCursor splits a compound "id:millis" cursor. IDs may themselves
// contain colons, so the last one is the separator.
func parseCursor(cursor string) (string, int64, error) {
	i := strings.LastIndex(cursor, ":")
	if i <= 0 || i == len(cursor)-1 {
		return "", 0, model.ErrInvalidCursor
	}
	ts, err := strconv.ParseInt(cursor[i+1:], 10, 64)
	if err != nil {
		return "", 0, model.ErrInvalidCursor
	}
	return cursor[:i], ts, nil
}

func formatCursor(id string, millis int64) string {
	return fmt.Sprintf("%s:%d", id, millis)
}

// expandIn expands slice arguments for IN (?) and rebinds for the driver.
func expandIn(q database.Querier, query string, args ...any) (string, []any, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return q.Rebind(query), args, nil
}

// rowsChanged reports whether an exec touched at least one row.
func rowsChanged(res interface{ RowsAffected() (int64, error) }) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}
