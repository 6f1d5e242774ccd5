package rating

import (
	"regexp"
	"strings"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
)

// episodeLabelRE strips a trailing episode/season marker ("第12集", "第2季",
// "Season 2", "EP03") that upstream titles sometimes carry, which a rating
// provider's search index never indexes literally.
var episodeLabelRE = regexp.MustCompile(`(?i)(第[0-9一二三四五六七八九十百]+[集季部]|[Ss]eason\s*\d+|EP?\s*\d+)\s*$`)

// CleanTitle strips episode/season labels then language/quality tokens (spec
// §4.I: "call the external rating API with a cleaned title (strip episode
// labels, quality tokens)"), reusing the Catalog Store's own token list so
// the two components agree on what counts as a version marker.
func CleanTitle(name string) string {
	cleaned := strings.TrimSpace(name)
	for {
		trimmed := strings.TrimSpace(episodeLabelRE.ReplaceAllString(cleaned, ""))
		if trimmed == cleaned {
			break
		}
		cleaned = trimmed
	}
	return catalogstore.ExtractMeta(cleaned).BaseName
}
