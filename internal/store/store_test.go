package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statbot-io/statbot/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func entry(guild, channel, thread, author int64, m time.Time) *model.StatEntry {
	return &model.StatEntry{
		GuildID:     guild,
		ChannelID:   channel,
		ThreadID:    thread,
		AuthorID:    author,
		Month:       m,
		Messages:    1,
		LastUpdated: time.Now().UTC(),
	}
}

func TestCreateAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := entry(1, 10, 0, 100, month(2024, time.March))
	e.Words = 2
	e.Characters = 11
	require.NoError(t, s.Create(ctx, e))
	assert.NotZero(t, e.ID)

	got, err := s.Get(ctx, e.Key())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.Messages)
	assert.Equal(t, int64(2), got.Words)
	assert.Equal(t, int64(11), got.Characters)
	assert.Equal(t, month(2024, time.March), got.Month)
	assert.Nil(t, got.IsPrivate)

	missing, err := s.Get(ctx, model.Key{ChannelID: 99, AuthorID: 1, Month: month(2024, time.March)})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUniquenessConstraint(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := month(2024, time.March)
	require.NoError(t, s.Create(ctx, entry(1, 10, 5, 100, m)))
	err := s.Create(ctx, entry(1, 10, 5, 100, m))
	assert.Error(t, err, "duplicate (channel, thread, author, month) must be rejected")

	// Same author and month in a different thread is a distinct row.
	require.NoError(t, s.Create(ctx, entry(1, 10, 6, 100, m)))
}

func TestAddCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := entry(1, 10, 0, 100, month(2024, time.March))
	require.NoError(t, s.Create(ctx, e))

	updated, err := s.AddCounts(ctx, e.Key(), model.StatsUnit{Messages: 1, Words: 3, Characters: 14, Links: 1}, time.Now())
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := s.Get(ctx, e.Key())
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Messages)
	assert.Equal(t, int64(3), got.Words)
	assert.Equal(t, int64(14), got.Characters)
	assert.Equal(t, int64(1), got.Links)

	updated, err = s.AddCounts(ctx, model.Key{ChannelID: 99, Month: e.Month}, model.StatsUnit{Messages: 1}, time.Now())
	require.NoError(t, err)
	assert.False(t, updated, "missing row must not be created by AddCounts")
}

func TestDeleteMonthAndBulkInsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	target := model.Target{GuildID: 1, ChannelID: 10}
	march := month(2024, time.March)
	april := month(2024, time.April)

	require.NoError(t, s.Create(ctx, entry(1, 10, 0, 100, march)))
	require.NoError(t, s.Create(ctx, entry(1, 10, 0, 101, march)))
	require.NoError(t, s.Create(ctx, entry(1, 10, 0, 100, april)))
	// Thread row in the same channel and month must survive a channel flush.
	require.NoError(t, s.Create(ctx, entry(1, 10, 7, 100, march)))

	require.NoError(t, s.DeleteMonth(ctx, target, march))

	entries, err := s.Entries(ctx, target)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, april, entries[0].Month)

	threadEntries, err := s.Entries(ctx, model.Target{GuildID: 1, ChannelID: 10, ThreadID: 7})
	require.NoError(t, err)
	assert.Len(t, threadEntries, 1)

	replacement := []*model.StatEntry{
		entry(1, 10, 0, 100, march),
		entry(1, 10, 0, 102, march),
	}
	require.NoError(t, s.BulkInsert(ctx, replacement))

	entries, err = s.Entries(ctx, target)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestLatestUpdated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	target := model.Target{GuildID: 1, ChannelID: 10}
	old := entry(1, 10, 0, 100, month(2024, time.February))
	old.LastUpdated = time.Date(2024, time.February, 10, 12, 0, 0, 0, time.UTC)
	recent := entry(1, 10, 0, 101, month(2024, time.March))
	recent.LastUpdated = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(ctx, old))
	require.NoError(t, s.Create(ctx, recent))

	got, err := s.LatestUpdated(ctx, target)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(101), got.AuthorID)

	none, err := s.LatestUpdated(ctx, model.Target{ChannelID: 99})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSumByGroupingAndFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	private := true
	march := month(2024, time.March)
	april := month(2024, time.April)

	seed := []*model.StatEntry{
		{GuildID: 1, ChannelID: 10, AuthorID: 100, Month: march, Messages: 5, Words: 20, LastUpdated: time.Now()},
		{GuildID: 1, ChannelID: 10, AuthorID: 101, Month: march, Messages: 3, Words: 9, IsBot: true, LastUpdated: time.Now()},
		{GuildID: 1, ChannelID: 10, ThreadID: 7, AuthorID: 100, Month: march, Messages: 2, Words: 4, IsPrivate: &private, LastUpdated: time.Now()},
		{GuildID: 1, ChannelID: 10, AuthorID: 100, Month: april, Messages: 8, Words: 30, LastUpdated: time.Now()},
		{GuildID: 2, ChannelID: 20, AuthorID: 100, Month: march, Messages: 100, LastUpdated: time.Now()},
	}
	require.NoError(t, s.BulkInsert(ctx, seed))

	guild := int64(1)
	rows, err := s.SumBy(ctx, Filter{GuildID: &guild}, model.StatMessages, GroupAuthor)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Ordered by sum descending: author 100 has 5+2+8=15, author 101 has 3.
	assert.Equal(t, int64(100), rows[0].AuthorID)
	assert.Equal(t, int64(15), rows[0].Sum)
	assert.Equal(t, int64(101), rows[1].AuthorID)
	assert.Equal(t, int64(3), rows[1].Sum)

	// Bot filter.
	bot := true
	rows, err = s.SumBy(ctx, Filter{GuildID: &guild, IsBot: &bot}, model.StatMessages, GroupAuthor)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(101), rows[0].AuthorID)

	// NoThreads drops the thread row.
	rows, err = s.SumBy(ctx, Filter{GuildID: &guild, NoThreads: true}, model.StatMessages, GroupAuthor)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(13), rows[0].Sum)

	// Month range bounds are inclusive.
	rows, err = s.SumBy(ctx, Filter{GuildID: &guild, After: &april, Before: &april}, model.StatMessages, GroupAuthor)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(8), rows[0].Sum)

	// ExcludePrivate keeps channel rows (NULL privacy) but drops the private thread.
	rows, err = s.SumBy(ctx, Filter{GuildID: &guild, ExcludePrivate: true}, model.StatMessages, GroupChannel, GroupThread)
	require.NoError(t, err)
	for _, r := range rows {
		assert.Zero(t, r.ThreadID)
	}

	// Grouping by thread surfaces the privacy flag.
	rows, err = s.SumBy(ctx, Filter{GuildID: &guild}, model.StatWords, GroupChannel, GroupThread, GroupPrivate)
	require.NoError(t, err)
	var threadRow *model.StatRow
	for _, r := range rows {
		if r.ThreadID == 7 {
			threadRow = r
		}
	}
	require.NotNil(t, threadRow)
	require.NotNil(t, threadRow.IsPrivate)
	assert.True(t, *threadRow.IsPrivate)
	assert.Equal(t, int64(4), threadRow.Sum)
}
