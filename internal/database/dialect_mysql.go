package database

import (
	"database/sql"

	"github.com/go-sql-driver/mysql"
)

// MySQLDialect talks to MySQL or MariaDB
type MySQLDialect struct {
	questionMarks
}

func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) DriverName() string { return "mysql" }

// DSN forces parseTime so DATETIME columns scan into time.Time, and clientFoundRows
// so an UPDATE that matches a row but changes nothing still reports it as affected
func (d *MySQLDialect) DSN(params ConnParams) string {
	cfg, err := mysql.ParseDSN(params.URL)
	if err != nil {
		return params.URL
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

func (d *MySQLDialect) Name() string { return "mysql" }

func (d *MySQLDialect) Tune(db *sql.DB) error {
	applyPoolLimits(db)
	return execAll(db, "SET FOREIGN_KEY_CHECKS = 1;")
}

func (d *MySQLDialect) MigrationsTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS migrations (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	filename VARCHAR(255) UNIQUE NOT NULL,
	executed_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)
);`
}

// default collations compare case-insensitively
func (d *MySQLDialect) CaseInsensitiveLike() string { return "LIKE" }
