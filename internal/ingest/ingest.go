// Package ingest implements the live update path: one call per inbound
// message event, incrementing the current month's aggregate row for the
// message's channel/thread/author.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/statbot-io/statbot/internal/keylock"
	"github.com/statbot-io/statbot/internal/model"
	"github.com/statbot-io/statbot/internal/store"
)

// ThreadPrivacy resolves whether a thread is private. Used to seed
// is_private when a thread's first row of the month is created.
type ThreadPrivacy interface {
	ThreadPrivate(ctx context.Context, threadID int64) (bool, error)
}

// Recorder applies message events to the statistics store.
type Recorder struct {
	store   *store.Store
	locks   *keylock.Map
	privacy ThreadPrivacy
	tz      *time.Location
}

// NewRecorder creates a recorder. The lock map must be shared with the
// recalculation engine so writes for the same channel never interleave.
func NewRecorder(s *store.Store, locks *keylock.Map, privacy ThreadPrivacy, tz *time.Location) *Recorder {
	return &Recorder{store: s, locks: locks, privacy: privacy, tz: tz}
}

// Record creates or increments the aggregate row for the message. Exactly
// one row is created or updated per call; storage errors propagate to the
// caller and nothing is retried here.
func (r *Recorder) Record(ctx context.Context, msg *model.Message) error {
	unit := CountMessage(msg)
	key := model.Key{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		ThreadID:  msg.ThreadID,
		AuthorID:  msg.AuthorID,
		Month:     model.MonthBucket(msg.Timestamp, r.tz),
	}

	lock := r.locks.Get(msg.LockID())
	lock.Lock()
	defer lock.Unlock()

	updated, err := r.store.AddCounts(ctx, key, unit, time.Now())
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	if updated {
		return nil
	}

	entry := &model.StatEntry{
		GuildID:     key.GuildID,
		ChannelID:   key.ChannelID,
		ThreadID:    key.ThreadID,
		AuthorID:    key.AuthorID,
		Month:       key.Month,
		Messages:    unit.Messages,
		Words:       unit.Words,
		Characters:  unit.Characters,
		Attachments: unit.Attachments,
		Links:       unit.Links,
		IsBot:       msg.AuthorIsBot,
		LastUpdated: time.Now().UTC(),
	}
	if msg.ThreadID != 0 {
		private, err := r.privacy.ThreadPrivate(ctx, msg.ThreadID)
		if err != nil {
			// Privacy is advisory on first write; a recalculation will
			// settle it. Default to not private.
			log.Debug().Err(err).Int64("thread", msg.ThreadID).Msg("thread privacy lookup failed")
		}
		entry.IsPrivate = &private
	}
	if err := r.store.Create(ctx, entry); err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}
