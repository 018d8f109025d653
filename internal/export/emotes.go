package export

import (
	"regexp"
	"rewind/internal/models"
	"strings"
)

// Custom emote markup is <:name:id> or <a:name:id> for animated ones.
var emotePattern = regexp.MustCompile(`<a?:([^:]+):(\d+)>`)

// fileExtensionPattern pulls the extension out of an attachment URL,
// tolerating trailing query strings.
var fileExtensionPattern = regexp.MustCompile(`\.([a-zA-Z0-9]+)(?:\?|$)`)

// ExtractEmotes returns every custom emote reference in content, one
// entry per occurrence. Malformed markup is left alone as literal text.
func ExtractEmotes(content string) []models.EmoteRef {
	if content == "" {
		return nil
	}
	matches := emotePattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]models.EmoteRef, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, models.EmoteRef{Name: m[1], ID: m[2]})
	}
	return refs
}

// ExtensionOf extracts the lower-cased extension from an attachment
// filename or URL; attachments without one land in the explicit
// "unknown" bucket.
func ExtensionOf(filename string) string {
	m := fileExtensionPattern.FindStringSubmatch(filename)
	if m == nil {
		return "unknown"
	}
	return strings.ToLower(m[1])
}
