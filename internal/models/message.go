package models

import "time"

type MessageFlags uint8

const (
	FlagEdited MessageFlags = 1 << iota
	FlagEmbed
	FlagSystem
)

func (f MessageFlags) Has(flag MessageFlags) bool { return f&flag != 0 }

type Attachment struct {
	Filename  string `json:"filename"`
	Extension string `json:"extension"` // lower-cased, "unknown" when absent
	Size      int64  `json:"size"`      // 0 when the file is not in the export
}

type EmoteRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Message is one normalized record. Timestamp is always UTC and is the
// sole ordering key within a channel; AuthorID is always set, even for
// departed accounts. Never mutated after the normalizer emits it.
type Message struct {
	ID          string       `json:"id"`
	ChannelID   string       `json:"channel_id"`
	AuthorID    string       `json:"author_id"`
	Timestamp   time.Time    `json:"timestamp"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Emotes      []EmoteRef   `json:"emotes,omitempty"`
	Flags       MessageFlags `json:"flags,omitempty"`
	EventType   string       `json:"event_type,omitempty"` // set for system events only
}

// Day returns the UTC calendar date used as the daily bucket key.
func (m *Message) Day() string {
	return m.Timestamp.UTC().Format("2006-01-02")
}
