package database

import (
	"context"
	"database/sql"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              SERIAL PRIMARY KEY,
		email           TEXT NOT NULL UNIQUE,
		name            TEXT NOT NULL DEFAULT '',
		hashed_password BYTEA NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		body_html    TEXT,
		vendor       TEXT,
		product_type TEXT NOT NULL DEFAULT 'General',
		price        NUMERIC(12, 2) NOT NULL,
		tags         TEXT[] NOT NULL DEFAULT '{}',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

var clickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		event_id   String,
		event_type LowCardinality(String),
		user_id    String,
		product_id Nullable(String),
		timestamp  DateTime64(3, 'UTC')
	) ENGINE = MergeTree
	ORDER BY (timestamp, event_type)`,
}

func MigratePostgres(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, postgresSchema)
}

func MigrateClickHouse(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, clickHouseSchema)
}

func migrate(ctx context.Context, db *sql.DB, statements []string) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
