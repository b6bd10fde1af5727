package recalc

import (
	"context"
	"fmt"

	"github.com/statbot-io/statbot/internal/model"
)

// FanoutOptions control which targets an enumeration produces.
type FanoutOptions struct {
	IncludeThreads bool
	OnlyThreads    bool
	SinceLast      bool
}

func (o FanoutOptions) normalized() FanoutOptions {
	if o.OnlyThreads {
		o.IncludeThreads = true
	}
	return o
}

// EnqueueChannel enumerates one channel and its eligible threads into tasks
// and returns how many were enqueued.
//
// Policy: channels the bot cannot read are skipped silently. Forum channels
// always include their threads (they have no message history of their own).
// Voice channels never include threads; asking for only threads on one
// enqueues nothing. Private archived threads are limited to those the bot
// has joined unless it can manage threads on the parent.
func (s *Service) EnqueueChannel(ctx context.Context, ch model.Channel, opts FanoutOptions) (int, error) {
	opts = opts.normalized()
	if ch.Kind == model.ChannelCategory {
		return 0, nil
	}

	readable, err := s.dir.BotCanRead(ctx, ch.ID)
	if err != nil {
		return 0, fmt.Errorf("check channel access: %w", err)
	}
	if !readable {
		return 0, nil
	}

	enqueued := 0
	includeThreads := opts.IncludeThreads
	if ch.Kind == model.ChannelForum {
		includeThreads = true
	} else {
		if ch.Kind == model.ChannelVoice {
			includeThreads = false
			if opts.OnlyThreads {
				return 0, nil
			}
		}
		if !opts.OnlyThreads {
			s.Enqueue(NewTask(model.ChannelTarget(ch), opts.SinceLast))
			enqueued++
		}
	}

	if !includeThreads || !ch.Kind.SupportsThreads() {
		return enqueued, nil
	}

	threads, err := s.dir.ActiveThreads(ctx, ch.ID)
	if err != nil {
		return enqueued, fmt.Errorf("list active threads: %w", err)
	}
	if ch.Kind == model.ChannelText {
		public, err := s.dir.ArchivedThreads(ctx, ch.ID, false, false)
		if err != nil {
			return enqueued, fmt.Errorf("list archived threads: %w", err)
		}
		threads = append(threads, public...)

		manage, err := s.dir.BotCanManageThreads(ctx, ch.ID)
		if err != nil {
			return enqueued, fmt.Errorf("check thread management: %w", err)
		}
		private, err := s.dir.ArchivedThreads(ctx, ch.ID, true, !manage)
		if err != nil {
			return enqueued, fmt.Errorf("list private archived threads: %w", err)
		}
		threads = append(threads, private...)
	} else {
		archived, err := s.dir.ArchivedThreads(ctx, ch.ID, false, false)
		if err != nil {
			return enqueued, fmt.Errorf("list archived threads: %w", err)
		}
		threads = append(threads, archived...)
	}

	for _, th := range threads {
		s.Enqueue(NewTask(model.ThreadTarget(th), opts.SinceLast))
		enqueued++
	}
	return enqueued, nil
}

// EnqueueGuild enumerates every channel of a guild. Categories are grouping
// containers, never task targets.
func (s *Service) EnqueueGuild(ctx context.Context, guildID int64, opts FanoutOptions) (int, error) {
	channels, err := s.dir.Channels(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("list guild channels: %w", err)
	}
	total := 0
	for _, ch := range channels {
		n, err := s.EnqueueChannel(ctx, ch, opts)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// EnqueueAll enumerates every guild the bot can see.
func (s *Service) EnqueueAll(ctx context.Context, opts FanoutOptions) (int, error) {
	guilds, err := s.dir.Guilds(ctx)
	if err != nil {
		return 0, fmt.Errorf("list guilds: %w", err)
	}
	total := 0
	for _, id := range guilds {
		n, err := s.EnqueueGuild(ctx, id, opts)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
