package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Client wraps the SQL connection pool used by the repositories.
type Client struct {
	DB *sql.DB
}

// NewClient opens a connection pool against the given driver and DSN
// and applies the schema migration.
func NewClient(driver, dsn string) (*Client, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed opening database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed pinging database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed applying migrations: %w", err)
	}

	return &Client{DB: db}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.DB.Close()
}

// Ping checks if the database is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Migrate applies the schema. Statements are idempotent so startup can
// run them unconditionally. Column types stay within the subset that
// both Postgres and SQLite (used in tests) interpret the same way.
func Migrate(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'agent',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS buyers (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL,
			city TEXT NOT NULL,
			property_type TEXT NOT NULL,
			bhk TEXT NOT NULL DEFAULT '',
			purpose TEXT NOT NULL,
			budget_min INTEGER,
			budget_max INTEGER,
			timeline TEXT NOT NULL,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			priority TEXT NOT NULL,
			requirements TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			owner_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS buyer_history (
			id TEXT PRIMARY KEY,
			buyer_id TEXT NOT NULL REFERENCES buyers(id) ON DELETE CASCADE,
			changed_by TEXT NOT NULL,
			action TEXT NOT NULL,
			changes TEXT NOT NULL DEFAULT '',
			changed_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_buyers_owner ON buyers(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_buyers_status ON buyers(status)`,
		`CREATE INDEX IF NOT EXISTS idx_buyers_updated_at ON buyers(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_buyer_history_buyer ON buyer_history(buyer_id, changed_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
