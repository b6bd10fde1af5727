package model

import "time"

// StatEntry is one monthly aggregate row: the message activity of a single
// author in a single channel or thread during one calendar month.
//
// The tuple (ChannelID, ThreadID, AuthorID, Month) is unique. ThreadID is 0
// when the entry belongs to the channel itself; when it is set, ChannelID is
// always the thread's parent channel.
type StatEntry struct {
	ID          int64     `json:"id"`
	GuildID     int64     `json:"guild_id"` // 0 for direct messages
	ChannelID   int64     `json:"channel_id"`
	ThreadID    int64     `json:"thread_id"`
	AuthorID    int64     `json:"author_id"`
	Month       time.Time `json:"month"` // first day of the month, UTC midnight
	Messages    int64     `json:"messages"`
	Words       int64     `json:"words"`
	Characters  int64     `json:"characters"`
	Attachments int64     `json:"attachments"`
	Links       int64     `json:"links"`
	IsBot       bool      `json:"is_bot"`
	IsPrivate   *bool     `json:"is_private,omitempty"` // threads only; nil for channel rows
	LastUpdated time.Time `json:"last_updated"`
}

// Key identifies exactly one StatEntry row.
type Key struct {
	GuildID   int64
	ChannelID int64
	ThreadID  int64
	AuthorID  int64
	Month     time.Time
}

// Key returns the unique key of the entry.
func (e *StatEntry) Key() Key {
	return Key{
		GuildID:   e.GuildID,
		ChannelID: e.ChannelID,
		ThreadID:  e.ThreadID,
		AuthorID:  e.AuthorID,
		Month:     e.Month,
	}
}

// TargetID returns the id of the channel or thread the entry describes.
func (e *StatEntry) TargetID() int64 {
	if e.ThreadID != 0 {
		return e.ThreadID
	}
	return e.ChannelID
}

// StatsUnit holds per-message count deltas applied to a StatEntry.
type StatsUnit struct {
	Messages    int64 `json:"messages"`
	Words       int64 `json:"words"`
	Characters  int64 `json:"characters"`
	Attachments int64 `json:"attachments"`
	Links       int64 `json:"links"`
}

// Add accumulates another unit into the receiver.
func (u *StatsUnit) Add(o StatsUnit) {
	u.Messages += o.Messages
	u.Words += o.Words
	u.Characters += o.Characters
	u.Attachments += o.Attachments
	u.Links += o.Links
}

// MonthBucket converts a message timestamp into its aggregation bucket: the
// timestamp is viewed in the reference timezone and truncated to the first
// day of its month. The result is normalized to UTC midnight so buckets
// compare and serialize uniformly regardless of the reference timezone.
func MonthBucket(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// StatRow is one grouped result of an aggregate query. Group-key fields that
// were not part of the grouping are left zero. Sum is the total of the
// selected statistic; AggCount tracks how many extra thread rows were merged
// into this one by thread aggregation (0 when no merging happened).
type StatRow struct {
	GuildID   int64 `json:"guild_id,omitempty"`
	ChannelID int64 `json:"channel_id,omitempty"`
	ThreadID  int64 `json:"thread_id,omitempty"`
	AuthorID  int64 `json:"author_id,omitempty"`
	IsBot     bool  `json:"is_bot,omitempty"`
	IsPrivate *bool `json:"is_private,omitempty"`
	Sum       int64 `json:"sum"`
	AggCount  int   `json:"agg_count,omitempty"`
}

// TargetID returns the id of the channel or thread the row describes.
func (r *StatRow) TargetID() int64 {
	if r.ThreadID != 0 {
		return r.ThreadID
	}
	return r.ChannelID
}
