package models

import "strings"

type ChannelKind uint8

const (
	KindGuildText ChannelKind = iota
	KindDM
	KindGroupDM
	KindUnknown
)

func (k ChannelKind) String() string {
	switch k {
	case KindDM:
		return "DM"
	case KindGroupDM:
		return "GROUP_DM"
	case KindUnknown:
		return "UNKNOWN"
	default:
		return "GUILD_TEXT"
	}
}

// ParseChannelKind maps the export's channel "type" field. Anything
// unrecognized but guild-shaped falls back to GUILD_TEXT; the export
// uses several guild channel type names (GUILD_TEXT, GUILD_ANNOUNCEMENT,
// PUBLIC_THREAD, ...) that all carry a guild block.
func ParseChannelKind(s string) ChannelKind {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DM":
		return KindDM
	case "GROUP_DM":
		return KindGroupDM
	case "":
		return KindUnknown
	default:
		return KindGuildText
	}
}

// ChannelDescriptor is one export unit: a channel folder discovered
// under the export root. Immutable after the walker emits it.
type ChannelDescriptor struct {
	FolderName string
	ChannelID  string
	Kind       ChannelKind
	Name       string
	ServerID   string
	ServerName string
	Recipients []string // sorted user ids, DM/group DM only
	Path       string   // absolute folder path
}

// PartnerID returns the other participant of a one-to-one DM.
func (d *ChannelDescriptor) PartnerID(selfID string) string {
	for _, id := range d.Recipients {
		if id != selfID {
			return id
		}
	}
	if len(d.Recipients) > 0 {
		return d.Recipients[0]
	}
	return ""
}
