package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresDialect talks to PostgreSQL through lib/pq
type PostgresDialect struct{}

func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) DriverName() string { return "postgres" }

func (d *PostgresDialect) DSN(params ConnParams) string { return params.URL }

func (d *PostgresDialect) Name() string { return "postgres" }

// Rebind numbers placeholders as $1, $2 and so on
func (d *PostgresDialect) Rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

// lib/pq does not implement LastInsertId
func (d *PostgresDialect) NeedsReturning() bool { return true }

func (d *PostgresDialect) Tune(db *sql.DB) error {
	applyPoolLimits(db)
	return nil
}

func (d *PostgresDialect) MigrationsTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS migrations (
	id BIGSERIAL PRIMARY KEY,
	filename TEXT UNIQUE NOT NULL,
	executed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
);`
}

func (d *PostgresDialect) CaseInsensitiveLike() string { return "ILIKE" }

// ResetSequenceQuery moves the serial past the highest restored id
func (d *PostgresDialect) ResetSequenceQuery(table string) string {
	return fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %[1]s",
		table,
	)
}
