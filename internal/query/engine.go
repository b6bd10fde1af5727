// Package query builds filtered, grouped, optionally-aggregated views over
// the statistics store. It never mutates the store.
package query

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/statbot-io/statbot/internal/directory"
	"github.com/statbot-io/statbot/internal/errors"
	"github.com/statbot-io/statbot/internal/model"
	"github.com/statbot-io/statbot/internal/store"
	"github.com/statbot-io/statbot/pkg/util"
)

// Options select what a view returns and how privacy-flagged rows appear.
type Options struct {
	Statistic model.Statistic
	Privacy   PrivacyMode
	Bots      BotMode
	Range     DateRange

	// TopN caps the ranked subset used for graphs; 0 means no cap.
	TopN int

	// IncludeThreads adds per-thread rows to the server-channels view.
	IncludeThreads bool
}

func (o *Options) normalize() error {
	if o.Statistic == "" {
		o.Statistic = model.StatMessages
	}
	if o.Privacy == "" {
		o.Privacy = PrivacyExclude
	}
	if o.Bots == "" {
		o.Bots = BotExclude
	}
	if o.TopN < 0 {
		return errors.Validation("top-n must not be negative")
	}
	return nil
}

// Row is one ranked line of a view.
type Row struct {
	GuildID   int64  `json:"guild_id,omitempty"`
	ChannelID int64  `json:"channel_id,omitempty"`
	ThreadID  int64  `json:"thread_id,omitempty"`
	AuthorID  int64  `json:"author_id,omitempty"`
	Label     string `json:"label"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Private   bool   `json:"private,omitempty"`
	Sum       int64  `json:"sum"`
	AggCount  int    `json:"agg_count,omitempty"`
}

// Result is a view's ranked rows plus summary data.
type Result struct {
	Statistic  model.Statistic `json:"statistic"`
	Rows       []Row           `json:"rows"`
	Ranked     []Row           `json:"ranked"`
	Total      int64           `json:"total"`
	// TotalDisplay renders character totals human-readably.
	TotalDisplay string `json:"total_display"`
	HasPrivate   bool   `json:"has_private"`
	Ephemeral    bool   `json:"ephemeral"`
}

// Engine answers statistics queries against the store, consulting the
// directory for the privacy of rows that carry no stored flag.
type Engine struct {
	store *store.Store
	dir   directory.Directory
	tz    *time.Location
	now   func() time.Time
}

// New creates a query engine.
func New(s *store.Store, dir directory.Directory, tz *time.Location) *Engine {
	return &Engine{store: s, dir: dir, tz: tz, now: time.Now}
}

// Now returns the engine's current time in the reference timezone.
func (e *Engine) Now() time.Time { return e.now().In(e.tz) }

// Timezone returns the reference timezone.
func (e *Engine) Timezone() *time.Location { return e.tz }

// User ranks one member's activity per channel and thread across a guild.
func (e *Engine) User(ctx context.Context, guildID, authorID int64, opts Options) (*Result, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	f := store.Filter{
		AuthorID: &authorID,
		IsBot:    opts.Bots.filter(),
		After:    opts.Range.After,
		Before:   opts.Range.Before,
	}
	if guildID != 0 {
		f.GuildID = &guildID
	}
	rows, err := e.store.SumBy(ctx, f, opts.Statistic,
		store.GroupChannel, store.GroupThread, store.GroupPrivate)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return e.finish(ctx, rows, opts, labelTarget)
}

// Channel ranks authors inside one channel or thread.
func (e *Engine) Channel(ctx context.Context, target model.Target, opts Options) (*Result, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	f := store.Filter{
		ChannelID: &target.ChannelID,
		IsBot:     opts.Bots.filter(),
		After:     opts.Range.After,
		Before:    opts.Range.Before,
	}
	if target.ThreadID != 0 {
		f.ThreadID = &target.ThreadID
	} else {
		f.NoThreads = true
	}
	rows, err := e.store.SumBy(ctx, f, opts.Statistic,
		store.GroupAuthor, store.GroupBot)
	if err != nil {
		return nil, fmt.Errorf("channel stats: %w", err)
	}

	// Every row inherits the target's privacy.
	private, err := e.targetPrivate(ctx, target)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		r.IsPrivate = &private
	}
	return e.finish(ctx, rows, opts, labelAuthor)
}

// Threads ranks a channel's active threads.
func (e *Engine) Threads(ctx context.Context, channelID int64, opts Options) (*Result, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	threads, err := e.dir.ActiveThreads(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("list active threads: %w", err)
	}
	if len(threads) == 0 {
		return emptyResult(opts), nil
	}
	ids := make([]int64, 0, len(threads))
	for _, th := range threads {
		ids = append(ids, th.ID)
	}
	f := store.Filter{
		ChannelID: &channelID,
		ThreadIn:  ids,
		IsBot:     opts.Bots.filter(),
		After:     opts.Range.After,
		Before:    opts.Range.Before,
	}
	rows, err := e.store.SumBy(ctx, f, opts.Statistic,
		store.GroupChannel, store.GroupThread, store.GroupPrivate)
	if err != nil {
		return nil, fmt.Errorf("thread stats: %w", err)
	}
	return e.finish(ctx, rows, opts, labelTarget)
}

// ServerChannels ranks a guild's channels, optionally with per-thread rows.
func (e *Engine) ServerChannels(ctx context.Context, guildID int64, opts Options) (*Result, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	f := store.Filter{
		GuildID:   &guildID,
		IsBot:     opts.Bots.filter(),
		NoThreads: !opts.IncludeThreads,
		After:     opts.Range.After,
		Before:    opts.Range.Before,
	}
	groups := []store.Group{store.GroupChannel, store.GroupPrivate}
	if opts.IncludeThreads {
		groups = []store.Group{store.GroupChannel, store.GroupThread, store.GroupPrivate}
	}
	rows, err := e.store.SumBy(ctx, f, opts.Statistic, groups...)
	if err != nil {
		return nil, fmt.Errorf("server channel stats: %w", err)
	}
	return e.finish(ctx, rows, opts, labelTarget)
}

// ServerUsers ranks a guild's members.
func (e *Engine) ServerUsers(ctx context.Context, guildID int64, opts Options) (*Result, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	f := store.Filter{
		GuildID: &guildID,
		IsBot:   opts.Bots.filter(),
		After:   opts.Range.After,
		Before:  opts.Range.Before,
	}
	rows, err := e.store.SumBy(ctx, f, opts.Statistic,
		store.GroupAuthor, store.GroupBot)
	if err != nil {
		return nil, fmt.Errorf("server user stats: %w", err)
	}
	return e.finish(ctx, rows, opts, labelAuthor)
}

// finish resolves privacy, applies the mode's redaction recipe and ranks.
func (e *Engine) finish(ctx context.Context, rows []*model.StatRow, opts Options, label func(Row) string) (*Result, error) {
	b := behaviors[opts.Privacy]

	out := make([]Row, 0, len(rows))
	viewable := make(map[int64]bool)
	for _, r := range rows {
		private, err := e.rowPrivate(ctx, r, viewable)
		if err != nil {
			return nil, err
		}
		if b.dropPrivate && private {
			continue
		}
		out = append(out, Row{
			GuildID:   r.GuildID,
			ChannelID: r.ChannelID,
			ThreadID:  r.ThreadID,
			AuthorID:  r.AuthorID,
			IsBot:     r.IsBot,
			Private:   private,
			Sum:       r.Sum,
			AggCount:  r.AggCount,
		})
	}

	if b.mergePrivate {
		out = mergeThreadRows(out, b.mergeAll)
	}

	res := &Result{Statistic: opts.Statistic}
	for i := range out {
		row := &out[i]
		if b.maskName && row.Private {
			row.Label = "private"
		} else {
			row.Label = label(*row)
		}
		res.Total += row.Sum
		res.HasPrivate = res.HasPrivate || row.Private
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sum > out[j].Sum })
	res.Rows = out
	res.TotalDisplay = displayTotal(opts.Statistic, res.Total)

	ranked := out
	if b.hideFromRanking {
		ranked = make([]Row, 0, len(out))
		for _, row := range out {
			if !row.Private {
				ranked = append(ranked, row)
			}
		}
	}
	if opts.TopN > 0 && len(ranked) > opts.TopN {
		ranked = ranked[:opts.TopN]
	}
	res.Ranked = ranked

	res.Ephemeral = b.ephemeral || (b.ephemeralIfPriv && res.HasPrivate)
	return res, nil
}

// rowPrivate resolves a row's privacy: the stored flag when present, else
// whether the guild's default role can view the row's channel.
func (e *Engine) rowPrivate(ctx context.Context, r *model.StatRow, viewable map[int64]bool) (bool, error) {
	if r.IsPrivate != nil {
		return *r.IsPrivate, nil
	}
	if r.ChannelID == 0 {
		return false, nil
	}
	if v, ok := viewable[r.ChannelID]; ok {
		return !v, nil
	}
	v, err := e.dir.EveryoneCanView(ctx, r.ChannelID)
	if err != nil {
		return false, fmt.Errorf("check channel visibility: %w", err)
	}
	viewable[r.ChannelID] = v
	return !v, nil
}

func (e *Engine) targetPrivate(ctx context.Context, target model.Target) (bool, error) {
	if target.Private != nil {
		return *target.Private, nil
	}
	if target.ThreadID != 0 {
		private, err := e.dir.ThreadPrivate(ctx, target.ThreadID)
		if err != nil {
			return false, fmt.Errorf("check thread privacy: %w", err)
		}
		return private, nil
	}
	v, err := e.dir.EveryoneCanView(ctx, target.ChannelID)
	if err != nil {
		return false, fmt.Errorf("check channel visibility: %w", err)
	}
	return !v, nil
}

// mergeThreadRows folds thread rows sharing (guild, channel, author, bot)
// into the first such row, ignoring which thread each came from. When
// privateOnly merging is in effect, public thread rows pass through.
func mergeThreadRows(rows []Row, all bool) []Row {
	type key struct {
		guild, channel, author int64
		bot                    bool
	}
	merged := make([]Row, 0, len(rows))
	index := make(map[key]int)
	for _, row := range rows {
		if row.ThreadID == 0 || (!all && !row.Private) {
			merged = append(merged, row)
			continue
		}
		k := key{row.GuildID, row.ChannelID, row.AuthorID, row.IsBot}
		if i, ok := index[k]; ok {
			merged[i].Sum += row.Sum
			merged[i].AggCount++
			// A merged row no longer describes a single thread.
			merged[i].ThreadID = 0
			if row.Private {
				merged[i].Private = true
			}
			continue
		}
		index[k] = len(merged)
		merged = append(merged, row)
	}
	return merged
}

func labelTarget(r Row) string {
	if r.AggCount > 0 {
		return fmt.Sprintf("<#%d> (+%d threads)", r.ChannelID, r.AggCount)
	}
	if r.ThreadID != 0 {
		return fmt.Sprintf("<#%d>", r.ThreadID)
	}
	return fmt.Sprintf("<#%d>", r.ChannelID)
}

func labelAuthor(r Row) string {
	return fmt.Sprintf("<@%d>", r.AuthorID)
}

func emptyResult(opts Options) *Result {
	b := behaviors[opts.Privacy]
	return &Result{
		Statistic:    opts.Statistic,
		Rows:         []Row{},
		Ranked:       []Row{},
		TotalDisplay: displayTotal(opts.Statistic, 0),
		Ephemeral:    b.ephemeral,
	}
}

func displayTotal(stat model.Statistic, total int64) string {
	if stat == model.StatCharacters {
		return util.FormatBytes(total)
	}
	return strconv.FormatInt(total, 10)
}
