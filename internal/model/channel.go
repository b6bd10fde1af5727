package model

import "fmt"

// ChannelKind classifies the channel types the statistics engine cares about.
type ChannelKind int

const (
	ChannelText ChannelKind = iota
	ChannelVoice
	ChannelStage
	ChannelForum
	ChannelCategory
	ChannelDM
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelText:
		return "text"
	case ChannelVoice:
		return "voice"
	case ChannelStage:
		return "stage"
	case ChannelForum:
		return "forum"
	case ChannelCategory:
		return "category"
	case ChannelDM:
		return "dm"
	}
	return "unknown"
}

// SupportsThreads reports whether channels of this kind can contain threads.
// Forum channels have no message history of their own, only threads.
func (k ChannelKind) SupportsThreads() bool {
	return k == ChannelText || k == ChannelForum
}

// Channel describes a channel known to the directory.
type Channel struct {
	ID      int64       `json:"id"`
	GuildID int64       `json:"guild_id"`
	Name    string      `json:"name"`
	Kind    ChannelKind `json:"kind"`
}

// Thread describes a thread inside a text or forum channel.
type Thread struct {
	ID       int64  `json:"id"`
	GuildID  int64  `json:"guild_id"`
	ParentID int64  `json:"parent_id"`
	Name     string `json:"name"`
	Private  bool   `json:"private"`
	Archived bool   `json:"archived"`
}

// Target identifies the channel or thread a recalculation operates on.
// For threads, ChannelID is the parent channel and Private carries the
// thread's privacy flag; for plain channels Private is nil.
type Target struct {
	GuildID   int64 `json:"guild_id"`
	ChannelID int64 `json:"channel_id"`
	ThreadID  int64 `json:"thread_id"`
	Private   *bool `json:"private,omitempty"`
}

// ChannelTarget builds a recalculation target for a plain channel.
func ChannelTarget(ch Channel) Target {
	return Target{GuildID: ch.GuildID, ChannelID: ch.ID}
}

// ThreadTarget builds a recalculation target for a thread.
func ThreadTarget(th Thread) Target {
	private := th.Private
	return Target{GuildID: th.GuildID, ChannelID: th.ParentID, ThreadID: th.ID, Private: &private}
}

// LockID returns the id whose lock serializes writes for this target.
func (t Target) LockID() int64 {
	if t.ThreadID != 0 {
		return t.ThreadID
	}
	return t.ChannelID
}

// Ref renders a human-readable reference used in progress notifications.
func (t Target) Ref() string {
	if t.ThreadID != 0 {
		return fmt.Sprintf("<#%d>", t.ThreadID)
	}
	return fmt.Sprintf("<#%d>", t.ChannelID)
}
