package model

import "time"

// Message is one inbound message event as delivered by the chat platform's
// event stream or replayed from channel history. For thread messages,
// ChannelID is the parent channel and ThreadID the thread itself.
type Message struct {
	ID          int64     `json:"id"`
	GuildID     int64     `json:"guild_id"` // 0 for direct messages
	ChannelID   int64     `json:"channel_id"`
	ThreadID    int64     `json:"thread_id"`
	AuthorID    int64     `json:"author_id"`
	AuthorIsBot bool      `json:"author_is_bot"`
	Content     string    `json:"content"`
	Attachments int       `json:"attachments"`
	Embeds      []Embed   `json:"embeds,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Embed describes one embedded-content payload attached to a message. Only
// its total rendered length and optional URL matter for statistics.
type Embed struct {
	Length int    `json:"length"`
	URL    string `json:"url,omitempty"`
}

// LockID returns the id whose per-channel lock serializes writes for this
// message: the thread id for thread messages, the channel id otherwise.
func (m *Message) LockID() int64 {
	if m.ThreadID != 0 {
		return m.ThreadID
	}
	return m.ChannelID
}
