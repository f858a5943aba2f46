package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	*sql.DB
}

// NewDB opens and verifies a PostgreSQL connection
func NewDB(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{DB: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	position        SERIAL PRIMARY KEY,
	order_id        TEXT NOT NULL DEFAULT '',
	product_name    TEXT NOT NULL DEFAULT '',
	printing_method TEXT NOT NULL DEFAULT '',
	delivery_date   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS devices (
	id   SERIAL PRIMARY KEY,
	data JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS metrics_snapshots (
	run_id                UUID PRIMARY KEY,
	parser_accuracy       DOUBLE PRECISION NOT NULL,
	changeover_before     INTEGER NOT NULL,
	changeover_after      INTEGER NOT NULL,
	changeover_reduction  DOUBLE PRECISION NOT NULL,
	mobile_dashboard_pass BOOLEAN NOT NULL,
	unit_test_coverage    DOUBLE PRECISION NOT NULL,
	generated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate creates the tables used by PostgresStore
func (db *DB) Migrate() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
