// Package store persists monthly StatEntry aggregates in SQLite.
//
// It is the ground truth for all statistics. The live ingest path performs
// increment-only updates; the recalculation engine replaces whole months via
// DeleteMonth followed by BulkInsert. All higher-level serialization (the
// per-channel locks) lives with the callers; the store itself only enforces
// the uniqueness constraint.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/statbot-io/statbot/internal/model"
)

const (
	monthFormat = "2006-01-02"
	timeFormat  = time.RFC3339Nano
)

// Store wraps the SQLite database holding stat_entries.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("statistics store opened")
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

const entryColumns = `id, guild_id, channel_id, thread_id, author_id, month,
	messages, words, characters, attachments, links, is_bot, is_private, last_updated`

// Get returns the entry with the exact key, or nil when absent.
func (s *Store) Get(ctx context.Context, key model.Key) (*model.StatEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM stat_entries
		WHERE channel_id = ? AND thread_id = ? AND author_id = ? AND month = ?`,
		key.ChannelID, key.ThreadID, key.AuthorID, key.Month.Format(monthFormat))

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// Create inserts a new entry. It fails if the key already exists.
func (s *Store) Create(ctx context.Context, e *model.StatEntry) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO stat_entries
			(guild_id, channel_id, thread_id, author_id, month,
			 messages, words, characters, attachments, links, is_bot, is_private, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.GuildID, e.ChannelID, e.ThreadID, e.AuthorID, e.Month.Format(monthFormat),
		e.Messages, e.Words, e.Characters, e.Attachments, e.Links,
		boolToInt(e.IsBot), nullableBool(e.IsPrivate), e.LastUpdated.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// AddCounts increments the counts of an existing entry and refreshes its
// last_updated timestamp. It reports whether a row was updated.
func (s *Store) AddCounts(ctx context.Context, key model.Key, u model.StatsUnit, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE stat_entries
		SET messages = messages + ?,
			words = words + ?,
			characters = characters + ?,
			attachments = attachments + ?,
			links = links + ?,
			last_updated = ?
		WHERE channel_id = ? AND thread_id = ? AND author_id = ? AND month = ?`,
		u.Messages, u.Words, u.Characters, u.Attachments, u.Links,
		now.UTC().Format(timeFormat),
		key.ChannelID, key.ThreadID, key.AuthorID, key.Month.Format(monthFormat))
	if err != nil {
		return false, fmt.Errorf("add counts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add counts: %w", err)
	}
	return n > 0, nil
}

// DeleteMonth removes every entry for the target's month, all authors
// included. Part of the recalculation flush: a month is always replaced as a
// whole so authors that disappeared from history do not leave stale rows.
func (s *Store) DeleteMonth(ctx context.Context, target model.Target, month time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM stat_entries
		WHERE channel_id = ? AND thread_id = ? AND month = ?`,
		target.ChannelID, target.ThreadID, month.Format(monthFormat))
	if err != nil {
		return fmt.Errorf("delete month: %w", err)
	}
	return nil
}

// BulkInsert inserts entries in a single transaction.
func (s *Store) BulkInsert(ctx context.Context, entries []*model.StatEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stat_entries
			(guild_id, channel_id, thread_id, author_id, month,
			 messages, words, characters, attachments, links, is_bot, is_private, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare bulk insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.GuildID, e.ChannelID, e.ThreadID, e.AuthorID, e.Month.Format(monthFormat),
			e.Messages, e.Words, e.Characters, e.Attachments, e.Links,
			boolToInt(e.IsBot), nullableBool(e.IsPrivate), e.LastUpdated.UTC().Format(timeFormat)); err != nil {
			return fmt.Errorf("bulk insert entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// LatestUpdated returns the most recently updated entry for the target, or
// nil when the target has no entries. Used to compute the incremental
// recalculation lower bound.
func (s *Store) LatestUpdated(ctx context.Context, target model.Target) (*model.StatEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM stat_entries
		WHERE channel_id = ? AND thread_id = ?
		ORDER BY last_updated DESC
		LIMIT 1`,
		target.ChannelID, target.ThreadID)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest updated: %w", err)
	}
	return entry, nil
}

// Entries returns all entries for a target ordered by month then author.
// Mostly useful for tests and debugging endpoints.
func (s *Store) Entries(ctx context.Context, target model.Target) ([]*model.StatEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM stat_entries
		WHERE channel_id = ? AND thread_id = ?
		ORDER BY month, author_id`,
		target.ChannelID, target.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.StatEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*model.StatEntry, error) {
	var (
		e         model.StatEntry
		month     string
		updated   string
		isBot     int
		isPrivate sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.GuildID, &e.ChannelID, &e.ThreadID, &e.AuthorID, &month,
		&e.Messages, &e.Words, &e.Characters, &e.Attachments, &e.Links,
		&isBot, &isPrivate, &updated)
	if err != nil {
		return nil, err
	}
	if e.Month, err = time.ParseInLocation(monthFormat, month, time.UTC); err != nil {
		return nil, fmt.Errorf("parse month %q: %w", month, err)
	}
	if e.LastUpdated, err = time.Parse(timeFormat, updated); err != nil {
		return nil, fmt.Errorf("parse last_updated %q: %w", updated, err)
	}
	e.IsBot = isBot != 0
	if isPrivate.Valid {
		v := isPrivate.Int64 != 0
		e.IsPrivate = &v
	}
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolToInt(*b)
}
