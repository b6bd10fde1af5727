// Package recalc rebuilds stored aggregates from authoritative channel
// history. It owns the task queue, the bounded worker pool, and the
// coalescing progress-notification queue.
package recalc

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/statbot-io/statbot/internal/history"
	"github.com/statbot-io/statbot/internal/ingest"
	"github.com/statbot-io/statbot/internal/keylock"
	"github.com/statbot-io/statbot/internal/model"
	"github.com/statbot-io/statbot/internal/store"
)

// Task is one unit of recalculation work. Immutable; created on enqueue and
// consumed exactly once by a worker.
type Task struct {
	ID        uuid.UUID
	Target    model.Target
	SinceLast bool
}

// NewTask builds a task for the target.
func NewTask(target model.Target, sinceLast bool) Task {
	return Task{ID: uuid.New(), Target: target, SinceLast: sinceLast}
}

// Engine replays channel history into monthly aggregate rows.
type Engine struct {
	store   *store.Store
	history history.Source
	locks   *keylock.Map
	tz      *time.Location
}

// NewEngine creates an engine. The lock map must be the same instance the
// live ingest path uses.
func NewEngine(s *store.Store, src history.Source, locks *keylock.Map, tz *time.Location) *Engine {
	return &Engine{store: s, history: src, locks: locks, tz: tz}
}

type authorTally struct {
	unit  model.StatsUnit
	isBot bool
}

// Recalculate rebuilds the target's aggregates and returns the number of
// messages processed.
//
// With SinceLast set, the scan starts at the month boundary of the most
// recent last_updated for the target rather than at that exact instant: the
// month it falls in was only partially aggregated, so it is rescanned in
// full to avoid undercounting. Each month is flushed as a unit, delete
// before bulk insert, so stale authors never linger.
func (e *Engine) Recalculate(ctx context.Context, task Task) (int, error) {
	target := task.Target

	var after time.Time
	if task.SinceLast {
		last, err := e.store.LatestUpdated(ctx, target)
		if err != nil {
			return 0, fmt.Errorf("find incremental lower bound: %w", err)
		}
		if last != nil {
			local := last.LastUpdated.In(e.tz)
			after = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, e.tz)
		}
	}

	lock := e.locks.Get(target.LockID())
	lock.Lock()
	defer lock.Unlock()

	var (
		current time.Time // month bucket being accumulated; zero before first message
		tallies = make(map[int64]*authorTally)
		total   int
	)

	err := e.history.Iterate(ctx, target, after, func(msg *model.Message) error {
		bucket := model.MonthBucket(msg.Timestamp, e.tz)
		if current.IsZero() {
			current = bucket
		} else if !bucket.Equal(current) {
			if err := e.flushMonth(ctx, target, current, tallies); err != nil {
				return err
			}
			tallies = make(map[int64]*authorTally)
			current = bucket
		}
		tally, ok := tallies[msg.AuthorID]
		if !ok {
			tally = &authorTally{isBot: msg.AuthorIsBot}
			tallies[msg.AuthorID] = tally
		}
		tally.unit.Add(ingest.CountMessage(msg))
		total++
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("scan history: %w", err)
	}

	if len(tallies) > 0 {
		if err := e.flushMonth(ctx, target, current, tallies); err != nil {
			return total, err
		}
	}

	log.Debug().
		Str("task", task.ID.String()).
		Int64("channel", target.ChannelID).
		Int64("thread", target.ThreadID).
		Int("messages", total).
		Msg("recalculation finished")
	return total, nil
}

// flushMonth replaces the month's stored rows with the accumulated tallies.
func (e *Engine) flushMonth(ctx context.Context, target model.Target, month time.Time, tallies map[int64]*authorTally) error {
	if err := e.store.DeleteMonth(ctx, target, month); err != nil {
		return fmt.Errorf("flush month %s: %w", month.Format("2006-01"), err)
	}

	authors := make([]int64, 0, len(tallies))
	for id := range tallies {
		authors = append(authors, id)
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i] < authors[j] })

	now := time.Now().UTC()
	entries := make([]*model.StatEntry, 0, len(authors))
	for _, id := range authors {
		tally := tallies[id]
		entries = append(entries, &model.StatEntry{
			GuildID:     target.GuildID,
			ChannelID:   target.ChannelID,
			ThreadID:    target.ThreadID,
			AuthorID:    id,
			Month:       month,
			Messages:    tally.unit.Messages,
			Words:       tally.unit.Words,
			Characters:  tally.unit.Characters,
			Attachments: tally.unit.Attachments,
			Links:       tally.unit.Links,
			IsBot:       tally.isBot,
			IsPrivate:   target.Private,
			LastUpdated: now,
		})
	}
	if err := e.store.BulkInsert(ctx, entries); err != nil {
		return fmt.Errorf("flush month %s: %w", month.Format("2006-01"), err)
	}
	return nil
}
