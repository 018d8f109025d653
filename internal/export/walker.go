package export

import (
	"fmt"
	"os"
	"path/filepath"
	"rewind/internal/models"
	"rewind/internal/providers"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
	"go.uber.org/atomic"
)

const (
	messageIndexFile = "messages.json"
	channelMetaFile  = "channel.json"
)

// Walker discovers channel export folders under the messages directory
// of an export root. A folder qualifies when it carries the message
// index file; the metadata sibling is optional. Emission order is
// unspecified and nothing downstream may rely on it.
type Walker struct {
	root    string
	logger  providers.Logger
	skipped atomic.Int64
}

func NewWalker(root string, logger providers.Logger) *Walker {
	return &Walker{root: root, logger: logger}
}

// Skipped reports how many malformed channel folders were passed over.
func (w *Walker) Skipped() int64 {
	return w.skipped.Load()
}

func (w *Walker) Walk() ([]*models.ChannelDescriptor, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrInputNotFound, w.root)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", models.ErrInputNotFound, w.root)
	}

	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrInputNotFound, w.root)
	}

	var descriptors []*models.ChannelDescriptor
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "c") {
			continue
		}
		folder := filepath.Join(w.root, entry.Name())
		if _, err := os.Stat(filepath.Join(folder, messageIndexFile)); err != nil {
			w.skipped.Inc()
			w.logger.Debugf(providers.TypeWalk, "Skipping %s: no %s", entry.Name(), messageIndexFile)
			continue
		}

		desc, err := w.describe(entry.Name(), folder)
		if err != nil {
			w.skipped.Inc()
			w.logger.Warnf(providers.TypeWalk, "Skipping %s: %s", entry.Name(), err)
			continue
		}
		descriptors = append(descriptors, desc)
	}

	w.logger.Infof(providers.TypeWalk, "Discovered %d channel folders (%d skipped)", len(descriptors), w.skipped.Load())
	return descriptors, nil
}

// channelMeta mirrors channel.json. Ids arrive as strings in current
// exports but were numbers in older ones, hence the loose fields.
type channelMeta struct {
	ID    any    `json:"id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Guild struct {
		ID   any    `json:"id"`
		Name string `json:"name"`
	} `json:"guild"`
	Recipients []any `json:"recipients"`
}

func (w *Walker) describe(folderName, folder string) (*models.ChannelDescriptor, error) {
	desc := &models.ChannelDescriptor{
		FolderName: folderName,
		Kind:       models.KindUnknown,
		Path:       folder,
	}

	raw, err := os.ReadFile(filepath.Join(folder, channelMetaFile))
	if err != nil {
		if os.IsNotExist(err) {
			// Metadata is optional; the folder name carries the id
			// (folders are named c<channel id>).
			desc.ChannelID = strings.TrimPrefix(folderName, "c")
			return desc, nil
		}
		return nil, err
	}

	var meta channelMeta
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("malformed %s: %w", channelMetaFile, err)
	}

	desc.ChannelID = cast.ToString(meta.ID)
	if desc.ChannelID == "" {
		desc.ChannelID = strings.TrimPrefix(folderName, "c")
	}
	desc.Kind = models.ParseChannelKind(meta.Type)
	desc.Name = meta.Name

	switch desc.Kind {
	case models.KindDM, models.KindGroupDM:
		for _, r := range meta.Recipients {
			if id := cast.ToString(r); id != "" {
				desc.Recipients = append(desc.Recipients, id)
			}
		}
		sort.Strings(desc.Recipients)
	default:
		desc.ServerID = cast.ToString(meta.Guild.ID)
		desc.ServerName = meta.Guild.Name
	}

	return desc, nil
}
