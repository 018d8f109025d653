package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewind/internal/models"
	"rewind/internal/testutil"
)

const selfID = "42"

func dmDescriptor(t *testing.T, root string, messages []byte) *models.ChannelDescriptor {
	t.Helper()
	dir := writeChannel(t, root, "c100", messages, nil)
	return &models.ChannelDescriptor{
		FolderName: "c100",
		ChannelID:  "100",
		Kind:       models.KindDM,
		Recipients: []string{"7", selfID},
		Path:       dir,
	}
}

func TestNormalizer_YearFilter(t *testing.T) {
	messages := []byte(`[
		{"ID": "1", "Timestamp": "2023-03-01 10:00:00", "Contents": "in range"},
		{"ID": "2", "Timestamp": "2022-12-31 23:59:59", "Contents": "before"},
		{"ID": "3", "Timestamp": "2024-01-01 00:00:00", "Contents": "after"}
	]`)
	desc := dmDescriptor(t, t.TempDir(), messages)

	n := NewNormalizer(selfID, 2023, &testutil.MockLogger{})
	msgs, err := n.Messages(desc)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, int64(0), n.SkippedRecords(), "out-of-range is filtered, not skipped")
}

func TestNormalizer_MalformedRecordCountedAndSkipped(t *testing.T) {
	messages := []byte(`[
		{"ID": "1", "Timestamp": "2023-03-01 10:00:00", "Contents": "ok"},
		{"ID": "2", "Timestamp": "not a time", "Contents": "bad"},
		{"ID": "3", "Timestamp": "2023-03-01 11:00:00", "Contents": "ok too"}
	]`)
	desc := dmDescriptor(t, t.TempDir(), messages)

	n := NewNormalizer(selfID, 2023, &testutil.MockLogger{})
	msgs, err := n.Messages(desc)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, int64(1), n.SkippedRecords())
}

func TestNormalizer_MalformedIndexFailsChannel(t *testing.T) {
	desc := dmDescriptor(t, t.TempDir(), []byte(`{"not": "an array"}`))
	n := NewNormalizer(selfID, 2023, &testutil.MockLogger{})
	_, err := n.Messages(desc)
	assert.Error(t, err)
}

func TestNormalizer_SystemEvents(t *testing.T) {
	messages := []byte(`[
		{"ID": "1", "Timestamp": "2023-05-01 09:00:00", "Type": "3", "Contents": "<:pog:1>"},
		{"ID": "2", "Timestamp": "2023-05-01 10:00:00", "Type": "CHANNEL_PINNED_MESSAGE", "Contents": ""},
		{"ID": "3", "Timestamp": "2023-05-01 11:00:00", "Type": "DEFAULT", "Contents": "regular"}
	]`)
	desc := dmDescriptor(t, t.TempDir(), messages)

	msgs, err := NewNormalizer(selfID, 2023, &testutil.MockLogger{}).Messages(desc)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.True(t, msgs[0].Flags.Has(models.FlagSystem))
	assert.Equal(t, "call", msgs[0].EventType)
	assert.Empty(t, msgs[0].Emotes, "system events carry no emote stats")

	assert.True(t, msgs[1].Flags.Has(models.FlagSystem))
	assert.Equal(t, "channel_pinned_message", msgs[1].EventType)

	assert.False(t, msgs[2].Flags.Has(models.FlagSystem))
}

func TestNormalizer_EmotesAndFlags(t *testing.T) {
	messages := []byte(`[
		{"ID": "1", "Timestamp": "2023-05-01 09:00:00", "Contents": "<:pog:1> <:pog:1>",
		 "Edited": true, "Embeds": [{}]}
	]`)
	desc := dmDescriptor(t, t.TempDir(), messages)

	msgs, err := NewNormalizer(selfID, 2023, &testutil.MockLogger{}).Messages(desc)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Len(t, msgs[0].Emotes, 2)
	assert.True(t, msgs[0].Flags.Has(models.FlagEdited))
	assert.True(t, msgs[0].Flags.Has(models.FlagEmbed))
}

func TestNormalizer_AttachmentSizes(t *testing.T) {
	root := t.TempDir()
	messages := []byte(`[
		{"ID": "1", "Timestamp": "2023-05-01 09:00:00", "Contents": "",
		 "Attachments": "https://cdn.example.com/a/photo.jpg?ex=1, https://cdn.example.com/a/notes"}
	]`)
	desc := dmDescriptor(t, root, messages)
	writeAttachment(t, desc.Path, "photo.jpg", 2048)

	msgs, err := NewNormalizer(selfID, 2023, &testutil.MockLogger{}).Messages(desc)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Attachments, 2)

	photo := msgs[0].Attachments[0]
	assert.Equal(t, "photo.jpg", photo.Filename)
	assert.Equal(t, "jpg", photo.Extension)
	assert.Equal(t, int64(2048), photo.Size)

	missing := msgs[0].Attachments[1]
	assert.Equal(t, "unknown", missing.Extension)
	assert.Equal(t, int64(0), missing.Size, "file not in export keeps size 0")
}

func TestNormalizer_AuthorResolution(t *testing.T) {
	messages := []byte(`[
		{"ID": "1", "Timestamp": "2023-05-01 09:00:00", "Contents": "no author field"},
		{"ID": "2", "Timestamp": "2023-05-01 09:01:00", "Contents": "bare id", "Author": "777"},
		{"ID": "3", "Timestamp": "2023-05-01 09:02:00", "Contents": "stub", "Author": {"id": "888"}}
	]`)
	desc := dmDescriptor(t, t.TempDir(), messages)

	msgs, err := NewNormalizer(selfID, 2023, &testutil.MockLogger{}).Messages(desc)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, selfID, msgs[0].AuthorID, "missing author defaults to the subject")
	assert.Equal(t, "777", msgs[1].AuthorID)
	assert.Equal(t, "888", msgs[2].AuthorID)
}

func TestNormalizer_TimestampLayouts(t *testing.T) {
	messages := []byte(`[
		{"ID": "1", "Timestamp": "2023-05-01 09:00:00", "Contents": "legacy layout"},
		{"ID": "2", "Timestamp": "2023-05-01T09:30:00+02:00", "Contents": "rfc3339"}
	]`)
	desc := dmDescriptor(t, t.TempDir(), messages)

	msgs, err := NewNormalizer(selfID, 2023, &testutil.MockLogger{}).Messages(desc)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, time.UTC, msgs[0].Timestamp.Location())
	assert.Equal(t, 7, msgs[1].Timestamp.UTC().Hour(), "offsets normalize to UTC")
}
