package database

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// Dialect hides what differs between the supported engines. Queries are
// written with ? placeholders and rebound per engine before they run.
type Dialect interface {
	DriverName() string
	DSN(params ConnParams) string

	// Rebind turns ? placeholders into the engine's bind syntax.
	Rebind(query string) string

	// NeedsReturning is true when inserted ids come back through
	// RETURNING rather than sql.Result.LastInsertId.
	NeedsReturning() bool

	// Tune sets pool limits and per-connection pragmas right after open.
	Tune(db *sql.DB) error

	// Name picks the migrations directory, e.g. migrations/postgres.
	Name() string
	MigrationsTableDDL() string

	// CaseInsensitiveLike is the operator used by member search.
	CaseInsensitiveLike() string

	// ResetSequenceQuery realigns the id sequence of table after a
	// restore that kept ids. Empty when the engine needs nothing.
	ResetSequenceQuery(table string) string
}

// ConnParams carries either a file path (sqlite) or a URL (postgres, mysql)
type ConnParams struct {
	Path string
	URL  string
}

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = time.Minute
)

func applyPoolLimits(db *sql.DB) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)
}

func execAll(db *sql.DB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// questionMarks is embedded by engines that take ? as is
type questionMarks struct{}

func (questionMarks) Rebind(query string) string { return sqlx.Rebind(sqlx.QUESTION, query) }
func (questionMarks) NeedsReturning() bool       { return false }
func (questionMarks) ResetSequenceQuery(string) string {
	return ""
}
