package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statbot-io/statbot/internal/directory"
	"github.com/statbot-io/statbot/internal/model"
	"github.com/statbot-io/statbot/internal/store"
)

type fixture struct {
	engine *Engine
	store  *store.Store
	dir    *directory.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	dir := directory.NewMemory()
	return &fixture{engine: New(s, dir, tz), store: s, dir: dir}
}

type entryOpt func(*model.StatEntry)

func asBot() entryOpt {
	return func(e *model.StatEntry) { e.IsBot = true }
}

func private(v bool) entryOpt {
	return func(e *model.StatEntry) { e.IsPrivate = &v }
}

func inMonth(y int, m time.Month) entryOpt {
	return func(e *model.StatEntry) { e.Month = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC) }
}

func (f *fixture) seed(t *testing.T, channel, thread, author, messages int64, opts ...entryOpt) {
	t.Helper()
	e := &model.StatEntry{
		GuildID:     1,
		ChannelID:   channel,
		ThreadID:    thread,
		AuthorID:    author,
		Month:       time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Messages:    messages,
		Words:       messages * 2,
		Characters:  messages * 10,
		LastUpdated: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(e)
	}
	require.NoError(t, f.store.Create(context.Background(), e))
}

func TestAggregateMergesPrivateThreadRows(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 11, 100, 3, private(true))
	f.seed(t, 10, 12, 100, 5, private(true))
	f.seed(t, 10, 13, 100, 2, private(true))

	res, err := f.engine.User(context.Background(), 1, 100, Options{Privacy: PrivacyAggregate})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(10), res.Rows[0].Sum)
	assert.Equal(t, 2, res.Rows[0].AggCount)
	assert.True(t, res.Rows[0].Private)
	assert.Equal(t, int64(10), res.Total)
}

func TestAggregateLeavesPublicThreadsAlone(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 11, 100, 3, private(true))
	f.seed(t, 10, 12, 100, 5, private(true))
	f.seed(t, 10, 13, 100, 7, private(false))

	res, err := f.engine.User(context.Background(), 1, 100, Options{Privacy: PrivacyAggregate})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	res, err = f.engine.User(context.Background(), 1, 100, Options{Privacy: PrivacyAggregateAll})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(15), res.Rows[0].Sum)
	assert.Equal(t, 2, res.Rows[0].AggCount)
}

func TestPrivacyExcludeDropsFromTotals(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 11, 100, 4, private(true))
	f.seed(t, 10, 0, 100, 6)

	res, err := f.engine.User(context.Background(), 1, 100, Options{Privacy: PrivacyExclude})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(6), res.Total)
	assert.False(t, res.HasPrivate)
}

func TestPrivacyHideKeepsTotalsButNotRanking(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 11, 100, 4, private(true))
	f.seed(t, 10, 0, 100, 6)

	res, err := f.engine.User(context.Background(), 1, 100, Options{Privacy: PrivacyHide})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, int64(10), res.Total)
	require.Len(t, res.Ranked, 1)
	assert.False(t, res.Ranked[0].Private)
	assert.True(t, res.HasPrivate)
}

func TestPrivacyHideNameMasksLabel(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 11, 100, 4, private(true))
	f.seed(t, 10, 0, 100, 6)

	res, err := f.engine.User(context.Background(), 1, 100, Options{Privacy: PrivacyHideName})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "<#10>", res.Rows[0].Label)
	assert.Equal(t, "private", res.Rows[1].Label)
}

func TestEphemeralModes(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 0, 100, 6)

	res, err := f.engine.User(context.Background(), 1, 100, Options{Privacy: PrivacyEphemeral})
	require.NoError(t, err)
	assert.True(t, res.Ephemeral)

	res, err = f.engine.User(context.Background(), 1, 100, Options{Privacy: PrivacyEphemeralIfPrivate})
	require.NoError(t, err)
	assert.False(t, res.Ephemeral)

	f.seed(t, 10, 11, 100, 4, private(true))
	res, err = f.engine.User(context.Background(), 1, 100, Options{Privacy: PrivacyEphemeralIfPrivate})
	require.NoError(t, err)
	assert.True(t, res.Ephemeral)
}

func TestChannelVisibilityFallback(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 0, 100, 6)
	f.seed(t, 20, 0, 100, 4)
	f.dir.SetHiddenFromEveryone(20, true)

	res, err := f.engine.User(context.Background(), 1, 100, Options{Privacy: PrivacyExclude})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(10), res.Rows[0].ChannelID)

	res, err = f.engine.User(context.Background(), 1, 100, Options{Privacy: PrivacyShow})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, int64(10), res.Total)
	assert.True(t, res.HasPrivate)
}

func TestRankingOrderAndTopN(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 0, 100, 2)
	f.seed(t, 10, 0, 101, 9)
	f.seed(t, 10, 0, 102, 5)

	res, err := f.engine.Channel(context.Background(), model.Target{GuildID: 1, ChannelID: 10},
		Options{Privacy: PrivacyShow, TopN: 2})
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, int64(101), res.Rows[0].AuthorID)
	assert.Equal(t, int64(102), res.Rows[1].AuthorID)
	assert.Equal(t, int64(100), res.Rows[2].AuthorID)
	require.Len(t, res.Ranked, 2)
	assert.Equal(t, int64(16), res.Total)
}

func TestBotModes(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 0, 100, 6)
	f.seed(t, 10, 0, 200, 9, asBot())

	cases := []struct {
		mode    BotMode
		authors []int64
	}{
		{BotExclude, []int64{100}},
		{BotInclude, []int64{200, 100}},
		{BotOnly, []int64{200}},
	}
	for _, tc := range cases {
		res, err := f.engine.ServerUsers(context.Background(), 1,
			Options{Privacy: PrivacyShow, Bots: tc.mode})
		require.NoError(t, err, "mode %s", tc.mode)
		got := make([]int64, 0, len(res.Rows))
		for _, row := range res.Rows {
			got = append(got, row.AuthorID)
		}
		assert.Equal(t, tc.authors, got, "mode %s", tc.mode)
	}
}

func TestThreadsViewCoversActiveThreadsOnly(t *testing.T) {
	f := newFixture(t)
	f.dir.AddThread(model.Thread{ID: 11, GuildID: 1, ParentID: 10})
	f.dir.AddThread(model.Thread{ID: 12, GuildID: 1, ParentID: 10, Archived: true})
	f.seed(t, 10, 11, 100, 6, private(false))
	f.seed(t, 10, 12, 100, 4, private(false))

	res, err := f.engine.Threads(context.Background(), 10, Options{Privacy: PrivacyShow})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(11), res.Rows[0].ThreadID)
}

func TestThreadsViewEmptyChannel(t *testing.T) {
	f := newFixture(t)
	res, err := f.engine.Threads(context.Background(), 10, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Zero(t, res.Total)
}

func TestServerChannelsThreadInclusion(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 0, 100, 6)
	f.seed(t, 10, 11, 100, 4, private(false))

	res, err := f.engine.ServerChannels(context.Background(), 1, Options{Privacy: PrivacyShow})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(6), res.Total)

	res, err = f.engine.ServerChannels(context.Background(), 1,
		Options{Privacy: PrivacyShow, IncludeThreads: true})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, int64(10), res.Total)
}

func TestChannelViewInheritsThreadPrivacy(t *testing.T) {
	f := newFixture(t)
	f.dir.AddThread(model.Thread{ID: 11, GuildID: 1, ParentID: 10, Private: true})
	f.seed(t, 10, 11, 100, 6, private(true))

	target := model.Target{GuildID: 1, ChannelID: 10, ThreadID: 11}
	res, err := f.engine.Channel(context.Background(), target, Options{Privacy: PrivacyExclude})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)

	res, err = f.engine.Channel(context.Background(), target, Options{Privacy: PrivacyShow})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.True(t, res.HasPrivate)
}

func TestDateRangeFiltersMonths(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10, 0, 100, 1, inMonth(2024, time.February))
	f.seed(t, 20, 0, 100, 2, inMonth(2024, time.March))
	f.seed(t, 30, 0, 100, 4, inMonth(2024, time.April))

	after := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	res, err := f.engine.User(context.Background(), 1, 100, Options{
		Privacy: PrivacyShow,
		Range:   DateRange{After: &after},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, int64(6), res.Total)
}

func TestNegativeTopNRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.User(context.Background(), 1, 100, Options{TopN: -1})
	require.Error(t, err)
}
