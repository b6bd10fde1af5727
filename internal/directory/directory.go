// Package directory abstracts the chat platform's channel topology:
// which guilds/channels/threads exist, what the bot may read, and how
// privacy is determined. Fan-out enumeration and the query engine's privacy
// fallback both run against this interface; the platform-specific client
// behind it is out of scope.
package directory

import (
	"context"

	"github.com/statbot-io/statbot/internal/model"
)

// Directory enumerates channels and answers permission/privacy predicates.
type Directory interface {
	// Guilds lists all guild ids visible to the bot.
	Guilds(ctx context.Context) ([]int64, error)

	// Channels lists a guild's channels, categories included.
	Channels(ctx context.Context, guildID int64) ([]model.Channel, error)

	// Channel resolves a single channel by id.
	Channel(ctx context.Context, id int64) (model.Channel, error)

	// ActiveThreads lists a channel's non-archived threads.
	ActiveThreads(ctx context.Context, channelID int64) ([]model.Thread, error)

	// ArchivedThreads lists a channel's archived threads with the given
	// privacy. For private threads, joinedOnly restricts the result to
	// threads the bot has joined.
	ArchivedThreads(ctx context.Context, channelID int64, private, joinedOnly bool) ([]model.Thread, error)

	// BotCanRead reports whether the bot can view the channel and read its
	// message history.
	BotCanRead(ctx context.Context, channelID int64) (bool, error)

	// BotCanManageThreads reports whether the bot holds thread-management
	// privilege on the channel.
	BotCanManageThreads(ctx context.Context, channelID int64) (bool, error)

	// EveryoneCanView reports whether the guild's default role can view the
	// channel. Channels without that permission count as private in query
	// output; this is the fallback for rows whose privacy flag is unset.
	EveryoneCanView(ctx context.Context, channelID int64) (bool, error)

	// ThreadPrivate reports whether a thread is private.
	ThreadPrivate(ctx context.Context, threadID int64) (bool, error)
}
