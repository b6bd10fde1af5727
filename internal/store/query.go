package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/statbot-io/statbot/internal/model"
)

// Group names a column rows can be grouped by in SumBy.
type Group string

const (
	GroupGuild   Group = "guild_id"
	GroupChannel Group = "channel_id"
	GroupThread  Group = "thread_id"
	GroupAuthor  Group = "author_id"
	GroupBot     Group = "is_bot"
	GroupPrivate Group = "is_private"
)

// Filter restricts the rows considered by SumBy. Nil pointer fields are
// ignored. After/Before bound the month bucket, both inclusive.
type Filter struct {
	GuildID        *int64
	ChannelID      *int64
	ThreadID       *int64
	ThreadIn       []int64
	AuthorID       *int64
	IsBot          *bool
	NoThreads      bool // only channel-level rows (thread_id = 0)
	ExcludePrivate bool // drop rows explicitly flagged private
	After          *time.Time
	Before         *time.Time
}

func statColumn(stat model.Statistic) (string, error) {
	switch stat {
	case model.StatMessages:
		return "messages", nil
	case model.StatWords:
		return "words", nil
	case model.StatCharacters:
		return "characters", nil
	case model.StatAttachments:
		return "attachments", nil
	case model.StatLinks:
		return "links", nil
	}
	return "", fmt.Errorf("unknown statistic %q", stat)
}

// SumBy returns the filtered rows grouped by the given columns, with the
// selected statistic summed per group, ordered by the sum descending.
func (s *Store) SumBy(ctx context.Context, f Filter, stat model.Statistic, groups ...Group) ([]*model.StatRow, error) {
	col, err := statColumn(stat)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("sum query requires at least one group column")
	}

	cols := make([]string, 0, len(groups))
	for _, g := range groups {
		cols = append(cols, string(g))
	}

	var (
		where []string
		args  []any
	)
	addEq := func(column string, v *int64) {
		if v != nil {
			where = append(where, column+" = ?")
			args = append(args, *v)
		}
	}
	addEq("guild_id", f.GuildID)
	addEq("channel_id", f.ChannelID)
	addEq("thread_id", f.ThreadID)
	addEq("author_id", f.AuthorID)
	if len(f.ThreadIn) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.ThreadIn)), ",")
		where = append(where, "thread_id IN ("+placeholders+")")
		for _, id := range f.ThreadIn {
			args = append(args, id)
		}
	}
	if f.IsBot != nil {
		where = append(where, "is_bot = ?")
		args = append(args, boolToInt(*f.IsBot))
	}
	if f.NoThreads {
		where = append(where, "thread_id = 0")
	}
	if f.ExcludePrivate {
		// Channel rows carry NULL; only rows explicitly flagged private drop.
		where = append(where, "(is_private IS NULL OR is_private = 0)")
	}
	if f.After != nil {
		where = append(where, "month >= ?")
		args = append(args, f.After.Format(monthFormat))
	}
	if f.Before != nil {
		where = append(where, "month <= ?")
		args = append(args, f.Before.Format(monthFormat))
	}

	query := "SELECT " + strings.Join(cols, ", ") + ", SUM(" + col + ") AS total FROM stat_entries"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " GROUP BY " + strings.Join(cols, ", ") + " ORDER BY total DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum query: %w", err)
	}
	defer rows.Close()

	var result []*model.StatRow
	for rows.Next() {
		row, err := scanStatRow(rows, groups)
		if err != nil {
			return nil, fmt.Errorf("scan sum row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanStatRow(rows *sql.Rows, groups []Group) (*model.StatRow, error) {
	var (
		row       model.StatRow
		isBot     sql.NullInt64
		isPrivate sql.NullInt64
	)
	dest := make([]any, 0, len(groups)+1)
	for _, g := range groups {
		switch g {
		case GroupGuild:
			dest = append(dest, &row.GuildID)
		case GroupChannel:
			dest = append(dest, &row.ChannelID)
		case GroupThread:
			dest = append(dest, &row.ThreadID)
		case GroupAuthor:
			dest = append(dest, &row.AuthorID)
		case GroupBot:
			dest = append(dest, &isBot)
		case GroupPrivate:
			dest = append(dest, &isPrivate)
		default:
			return nil, fmt.Errorf("unknown group column %q", g)
		}
	}
	dest = append(dest, &row.Sum)
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	row.IsBot = isBot.Valid && isBot.Int64 != 0
	if isPrivate.Valid {
		v := isPrivate.Int64 != 0
		row.IsPrivate = &v
	}
	return &row, nil
}
