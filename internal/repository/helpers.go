package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// ErrNotFound is returned by writes that matched no row
var ErrNotFound = errors.New("record not found")

type QueryType string

const (
	QueryTypeSelect QueryType = "select"
	QueryTypeCount  QueryType = "count"
)

// Queries are built with ? placeholders; database.DB rewrites them per dialect.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// now returns the timestamp stored in created_at/updated_at columns.
// Second precision in UTC keeps SQLite's text timestamps comparable.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func checkAffected(result sql.Result, what string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s: %w", what, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// prefixColumns qualifies a comma separated column list with a table alias
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
