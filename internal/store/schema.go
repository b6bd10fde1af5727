package store

import (
	"database/sql"
	"fmt"
)

// Schema migrations, applied in order. user_version tracks the last applied
// migration index.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS stat_entries (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id     INTEGER NOT NULL DEFAULT 0,
		channel_id   INTEGER NOT NULL,
		thread_id    INTEGER NOT NULL DEFAULT 0,
		author_id    INTEGER NOT NULL,
		month        TEXT    NOT NULL,
		messages     INTEGER NOT NULL DEFAULT 0,
		words        INTEGER NOT NULL DEFAULT 0,
		characters   INTEGER NOT NULL DEFAULT 0,
		attachments  INTEGER NOT NULL DEFAULT 0,
		links        INTEGER NOT NULL DEFAULT 0,
		is_bot       INTEGER NOT NULL DEFAULT 0,
		is_private   INTEGER,
		last_updated TEXT    NOT NULL,
		UNIQUE (channel_id, thread_id, author_id, month)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stat_entries_guild ON stat_entries (guild_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stat_entries_channel ON stat_entries (channel_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stat_entries_thread ON stat_entries (thread_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stat_entries_author ON stat_entries (author_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stat_entries_month ON stat_entries (month)`,
	`CREATE INDEX IF NOT EXISTS idx_stat_entries_bot ON stat_entries (is_bot)`,
	`CREATE INDEX IF NOT EXISTS idx_stat_entries_updated ON stat_entries (channel_id, thread_id, last_updated)`,
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("bump schema version: %w", err)
		}
	}
	return nil
}
