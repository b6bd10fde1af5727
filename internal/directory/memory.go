package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/statbot-io/statbot/internal/errors"
	"github.com/statbot-io/statbot/internal/model"
)

// Memory is an in-memory Directory for tests and standalone runs.
type Memory struct {
	mu            sync.RWMutex
	channels      map[int64]model.Channel
	threads       map[int64]model.Thread
	joined        map[int64]bool // thread ids the bot has joined
	unreadable    map[int64]bool // channel ids the bot cannot read
	manageThreads map[int64]bool // channel ids with thread-management privilege
	hiddenFromAll map[int64]bool // channel ids the default role cannot view
}

// NewMemory creates an empty directory.
func NewMemory() *Memory {
	return &Memory{
		channels:      make(map[int64]model.Channel),
		threads:       make(map[int64]model.Thread),
		joined:        make(map[int64]bool),
		unreadable:    make(map[int64]bool),
		manageThreads: make(map[int64]bool),
		hiddenFromAll: make(map[int64]bool),
	}
}

// AddChannel registers a channel.
func (m *Memory) AddChannel(ch model.Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.ID] = ch
}

// AddThread registers a thread under its parent channel.
func (m *Memory) AddThread(th model.Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[th.ID] = th
}

// SetJoined marks the bot as joined to a thread.
func (m *Memory) SetJoined(threadID int64, joined bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joined[threadID] = joined
}

// SetUnreadable removes the bot's read access to a channel.
func (m *Memory) SetUnreadable(channelID int64, unreadable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreadable[channelID] = unreadable
}

// SetManageThreads grants or revokes thread-management on a channel.
func (m *Memory) SetManageThreads(channelID int64, allowed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manageThreads[channelID] = allowed
}

// SetHiddenFromEveryone hides a channel from the guild's default role.
func (m *Memory) SetHiddenFromEveryone(channelID int64, hidden bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hiddenFromAll[channelID] = hidden
}

func (m *Memory) Guilds(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[int64]bool)
	var ids []int64
	for _, ch := range m.channels {
		if ch.GuildID != 0 && !seen[ch.GuildID] {
			seen[ch.GuildID] = true
			ids = append(ids, ch.GuildID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) Channels(ctx context.Context, guildID int64) ([]model.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Channel
	for _, ch := range m.channels {
		if ch.GuildID == guildID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Channel(ctx context.Context, id int64) (model.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[id]
	if !ok {
		return model.Channel{}, errors.NotFound("channel")
	}
	return ch, nil
}

func (m *Memory) ActiveThreads(ctx context.Context, channelID int64) ([]model.Thread, error) {
	return m.listThreads(channelID, func(th model.Thread) bool {
		return !th.Archived
	}), nil
}

func (m *Memory) ArchivedThreads(ctx context.Context, channelID int64, private, joinedOnly bool) ([]model.Thread, error) {
	m.mu.RLock()
	joined := m.joined
	m.mu.RUnlock()
	return m.listThreads(channelID, func(th model.Thread) bool {
		if !th.Archived || th.Private != private {
			return false
		}
		if private && joinedOnly && !joined[th.ID] {
			return false
		}
		return true
	}), nil
}

func (m *Memory) listThreads(channelID int64, keep func(model.Thread) bool) []model.Thread {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Thread
	for _, th := range m.threads {
		if th.ParentID == channelID && keep(th) {
			out = append(out, th)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) BotCanRead(ctx context.Context, channelID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.unreadable[channelID], nil
}

func (m *Memory) BotCanManageThreads(ctx context.Context, channelID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.manageThreads[channelID], nil
}

func (m *Memory) EveryoneCanView(ctx context.Context, channelID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.hiddenFromAll[channelID], nil
}

func (m *Memory) ThreadPrivate(ctx context.Context, threadID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	th, ok := m.threads[threadID]
	if !ok {
		return false, errors.NotFound("thread")
	}
	return th.Private, nil
}
