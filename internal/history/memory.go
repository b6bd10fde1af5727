package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/statbot-io/statbot/internal/model"
)

// pageSize mimics the paginated reads of a real history API so the engine's
// behavior between page fetches is exercised.
const pageSize = 100

// MemorySource is an in-memory Source. It also serves as the history sink
// for locally ingested messages, which keeps recalculation meaningful when
// the service runs without a chat-platform backend.
type MemorySource struct {
	mu       sync.RWMutex
	messages map[int64][]*model.Message // keyed by target id (thread id or channel id)
}

// NewMemorySource creates an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{messages: make(map[int64][]*model.Message)}
}

// Append records a message in history order.
func (s *MemorySource) Append(msg *model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := msg.LockID()
	s.messages[key] = append(s.messages[key], msg)
	// Keep chronological order even when events arrive late.
	list := s.messages[key]
	for i := len(list) - 1; i > 0 && list[i].Timestamp.Before(list[i-1].Timestamp); i-- {
		list[i], list[i-1] = list[i-1], list[i]
	}
}

// Iterate replays the target's messages oldest first in fixed-size pages.
func (s *MemorySource) Iterate(ctx context.Context, target model.Target, after time.Time, fn func(*model.Message) error) error {
	cursor := after
	for {
		page := s.page(target.LockID(), cursor)
		if len(page) == 0 {
			return nil
		}
		for _, msg := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(msg); err != nil {
				return err
			}
			cursor = msg.Timestamp
		}
		if len(page) < pageSize {
			return nil
		}
	}
}

func (s *MemorySource) page(targetID int64, after time.Time) []*model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.messages[targetID]
	start := sort.Search(len(list), func(i int) bool {
		return list[i].Timestamp.After(after)
	})
	end := start + pageSize
	if end > len(list) {
		end = len(list)
	}
	page := make([]*model.Message, end-start)
	copy(page, list[start:end])
	return page
}
