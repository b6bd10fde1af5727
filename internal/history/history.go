// Package history abstracts the authoritative channel-history source the
// recalculation engine replays. Real deployments back it with the chat
// platform's paginated history API; tests and local runs use MemorySource.
package history

import (
	"context"
	"time"

	"github.com/statbot-io/statbot/internal/model"
)

// Source streams a target's messages in chronological order.
type Source interface {
	// Iterate calls fn for every message of the target with a timestamp
	// strictly after the lower bound (pass the zero time for full history),
	// oldest first. Iteration stops on the first fn error or when the
	// context is done.
	Iterate(ctx context.Context, target model.Target, after time.Time, fn func(*model.Message) error) error
}
