package database

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect is the default engine, one file on disk
type SQLiteDialect struct {
	questionMarks
}

func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string { return "sqlite3" }

func (d *SQLiteDialect) DSN(params ConnParams) string { return params.Path }

func (d *SQLiteDialect) Name() string { return "sqlite" }

// Tune turns on WAL and foreign key enforcement, which sqlite leaves off
func (d *SQLiteDialect) Tune(db *sql.DB) error {
	applyPoolLimits(db)
	return execAll(db,
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
	)
}

func (d *SQLiteDialect) MigrationsTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS migrations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT UNIQUE NOT NULL,
	executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`
}

// sqlite LIKE ignores ASCII case
func (d *SQLiteDialect) CaseInsensitiveLike() string { return "LIKE" }
