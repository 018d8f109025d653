package export

import (
	"os"
	"path/filepath"
	"rewind/internal/providers"
	"strings"

	json "github.com/goccy/go-json"
)

const indexFile = "index.json"

const dmLabelPrefix = "Direct Message with "

// LoadIndex reads the export root's index.json, which maps channel ids
// to human labels ("Direct Message with name#0"). A missing or broken
// index is not an error, username mapping just stays unavailable.
func LoadIndex(root string, logger providers.Logger) map[string]string {
	raw, err := os.ReadFile(filepath.Join(root, indexFile))
	if err != nil {
		logger.Warnf(providers.TypeWalk, "No %s found, username mapping unavailable", indexFile)
		return map[string]string{}
	}

	index := make(map[string]string)
	if err := json.Unmarshal(raw, &index); err != nil {
		logger.Warnf(providers.TypeWalk, "Malformed %s: %s", indexFile, err)
		return map[string]string{}
	}

	logger.Infof(providers.TypeWalk, "Loaded %s with %d entries", indexFile, len(index))
	return index
}

// DMPartnerName extracts the partner username from a DM index label,
// dropping the legacy "#0" discriminator remnant. Group DM and other
// labels come back unchanged.
func DMPartnerName(label string) string {
	if label == "" {
		return ""
	}
	if strings.HasPrefix(label, dmLabelPrefix) {
		name := strings.TrimPrefix(label, dmLabelPrefix)
		return strings.TrimSuffix(name, "#0")
	}
	return label
}
