package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		uid          TEXT PRIMARY KEY,
		email        TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		avatar_url   TEXT NOT NULL DEFAULT '',
		last_login   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS favorites (
		uid      TEXT NOT NULL,
		video_id TEXT NOT NULL,
		title    TEXT NOT NULL DEFAULT '',
		added_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (uid, video_id)
	)`,
	`CREATE TABLE IF NOT EXISTS watch_history (
		id         UUID PRIMARY KEY,
		uid        TEXT NOT NULL,
		video_id   TEXT NOT NULL,
		title      TEXT NOT NULL DEFAULT '',
		watched_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_watch_history_uid_watched_at
		ON watch_history (uid, watched_at DESC)`,
	`CREATE TABLE IF NOT EXISTS progress (
		uid              TEXT NOT NULL,
		video_id         TEXT NOT NULL,
		position_seconds INTEGER NOT NULL DEFAULT 0,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (uid, video_id)
	)`,
}

// EnsureSchema creates the library tables if they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
