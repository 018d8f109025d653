package export

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"rewind/internal/models"
	"rewind/internal/providers"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
	"go.uber.org/atomic"
)

// attachmentsDir is where the export keeps the files referenced by a
// channel's messages, next to its messages.json.
const attachmentsDir = "attachments"

// Timestamp layouts seen across export generations.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// systemEventTypes are pure system/audit records: excluded from the
// message statistics, counted in the system_events bucket instead.
// Older exports carry numeric type codes, newer ones names.
var systemEventTypes = map[string]string{
	"3":                      "call",
	"CALL":                   "call",
	"6":                      "channel_pinned_message",
	"CHANNEL_PINNED_MESSAGE": "channel_pinned_message",
	"7":                      "user_join",
	"USER_JOIN":              "user_join",
	"GUILD_MEMBER_JOIN":      "user_join",
	"1":                      "recipient_add",
	"RECIPIENT_ADD":          "recipient_add",
	"2":                      "recipient_remove",
	"RECIPIENT_REMOVE":       "recipient_remove",
	"4":                      "channel_name_change",
	"CHANNEL_NAME_CHANGE":    "channel_name_change",
	"18":                     "thread_created",
	"THREAD_CREATED":         "thread_created",
}

// rawMessage mirrors one messages.json entry. The export capitalizes
// field names and is loosely typed, so scalars stay tolerant.
type rawMessage struct {
	ID          any               `json:"ID"`
	Timestamp   string            `json:"Timestamp"`
	Contents    string            `json:"Contents"`
	Attachments string            `json:"Attachments"`
	Type        any               `json:"Type"`
	Author      any               `json:"Author"`
	Edited      any               `json:"Edited"`
	Embeds      []json.RawMessage `json:"Embeds"`
}

// Normalizer turns one channel's raw export records into Messages.
// Normalization is a pure function of the descriptor, so a channel can
// be re-walked any number of times (the query shell and re-runs depend
// on that).
type Normalizer struct {
	selfID  string
	year    int
	logger  providers.Logger
	skipped atomic.Int64
}

func NewNormalizer(selfID string, year int, logger providers.Logger) *Normalizer {
	return &Normalizer{selfID: selfID, year: year, logger: logger}
}

// SkippedRecords reports how many records failed to parse across all
// channels processed so far.
func (n *Normalizer) SkippedRecords() int64 {
	return n.skipped.Load()
}

// EachMessage streams the channel's qualifying messages to fn in file
// order. Records outside the target year are filtered here so they
// never reach the aggregator; unparseable records are counted and
// skipped without aborting the channel.
func (n *Normalizer) EachMessage(desc *models.ChannelDescriptor, fn func(*models.Message) error) error {
	file, err := os.Open(filepath.Join(desc.Path, messageIndexFile))
	if err != nil {
		return fmt.Errorf("open %s: %w", messageIndexFile, err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("malformed %s: %w", messageIndexFile, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("malformed %s: expected array", messageIndexFile)
	}

	for dec.More() {
		var element json.RawMessage
		if err := dec.Decode(&element); err != nil {
			return fmt.Errorf("malformed %s: %w", messageIndexFile, err)
		}

		var raw rawMessage
		if err := json.Unmarshal(element, &raw); err != nil {
			n.skipped.Inc()
			continue
		}

		msg, ok := n.normalize(desc, &raw)
		if !ok {
			continue
		}
		if err := fn(msg); err != nil {
			return err
		}
	}

	return nil
}

// Messages materializes the channel's qualifying messages.
func (n *Normalizer) Messages(desc *models.ChannelDescriptor) ([]*models.Message, error) {
	var out []*models.Message
	err := n.EachMessage(desc, func(m *models.Message) error {
		out = append(out, m)
		return nil
	})
	return out, err
}

func (n *Normalizer) normalize(desc *models.ChannelDescriptor, raw *rawMessage) (*models.Message, bool) {
	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		n.skipped.Inc()
		return nil, false
	}
	if ts.Year() != n.year {
		return nil, false
	}

	msg := &models.Message{
		ID:        cast.ToString(raw.ID),
		ChannelID: desc.ChannelID,
		AuthorID:  authorID(raw.Author, n.selfID),
		Timestamp: ts,
		Content:   raw.Contents,
	}

	if kind, ok := systemEventTypes[strings.ToUpper(cast.ToString(raw.Type))]; ok {
		msg.Flags |= models.FlagSystem
		msg.EventType = kind
		return msg, true
	}

	msg.Emotes = ExtractEmotes(raw.Contents)
	msg.Attachments = n.parseAttachments(desc, raw.Attachments)
	if cast.ToBool(raw.Edited) {
		msg.Flags |= models.FlagEdited
	}
	if len(raw.Embeds) > 0 {
		msg.Flags |= models.FlagEmbed
	}

	return msg, true
}

// parseAttachments splits the export's newline/comma separated URL
// field. Sizes come from the files actually present under the channel's
// attachments folder; an absent file keeps the descriptor with size 0.
func (n *Normalizer) parseAttachments(desc *models.ChannelDescriptor, field string) []models.Attachment {
	if field == "" {
		return nil
	}

	var attachments []models.Attachment
	for _, entry := range strings.Split(strings.ReplaceAll(field, ",", "\n"), "\n") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		filename := attachmentFilename(entry)
		att := models.Attachment{
			Filename:  filename,
			Extension: ExtensionOf(entry),
		}
		if info, err := os.Stat(filepath.Join(desc.Path, attachmentsDir, filename)); err == nil {
			att.Size = info.Size()
		}
		attachments = append(attachments, att)
	}
	return attachments
}

func attachmentFilename(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}

// authorID resolves the record's author. The field may be missing
// entirely (the export is the subject's own history), a bare id string,
// or an id-only stub object for departed accounts.
func authorID(author any, selfID string) string {
	switch v := author.(type) {
	case nil:
		return selfID
	case string:
		if v == "" {
			return selfID
		}
		return v
	case map[string]any:
		if id := cast.ToString(v["id"]); id != "" {
			return id
		}
		if id := cast.ToString(v["ID"]); id != "" {
			return id
		}
		return selfID
	default:
		if id := cast.ToString(v); id != "" {
			return id
		}
		return selfID
	}
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
