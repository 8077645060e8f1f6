package store

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// EnsureSchema creates the tables and indexes the stores depend on.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price       BIGINT NOT NULL CHECK (price >= 0),
			stock       INTEGER NOT NULL CHECK (stock >= 0),
			owner_id    TEXT,
			status      TEXT NOT NULL DEFAULT 'active',
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS carts (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			items      JSONB NOT NULL DEFAULT '[]',
			status     TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS carts_one_active_per_user
			ON carts (user_id) WHERE status = 'active'`,
		`CREATE TABLE IF NOT EXISTS tickets (
			id           TEXT PRIMARY KEY,
			code         TEXT NOT NULL UNIQUE,
			user_id      TEXT NOT NULL,
			email        TEXT NOT NULL,
			items        JSONB NOT NULL,
			failed_items JSONB NOT NULL DEFAULT '[]',
			subtotal     BIGINT NOT NULL CHECK (subtotal >= 0),
			tax          BIGINT NOT NULL CHECK (tax >= 0),
			shipping     BIGINT NOT NULL CHECK (shipping >= 0),
			discount     BIGINT NOT NULL CHECK (discount >= 0),
			total        BIGINT NOT NULL CHECK (total >= 0),
			items_count  INTEGER NOT NULL,
			status       TEXT NOT NULL DEFAULT 'completed',
			purchased_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS tickets_by_user
			ON tickets (user_id, purchased_at DESC)`,
		`CREATE INDEX IF NOT EXISTS tickets_by_date
			ON tickets (purchased_at DESC)`,
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name          TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'user',
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
