package catalogstore

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/videocatalog/catalogcore/internal/cleaner"
)

// applyShortsPreview implements spec §4.G's shorts preview selection: from the
// first source's valid http(s) episode list, pick a random index in
// [min(3,N), min(8,N)] and store its 1-based index and URL. Falls back to a
// keyword-derived shorts_category when the classifier left one unset.
func applyShortsPreview(v *Video) {
	eps := firstSourceEpisodes(v.PlayURLs)
	if len(eps) > 0 {
		lo, hi := minInt(3, len(eps)), minInt(8, len(eps))
		if lo < 1 {
			lo = 1
		}
		idx := lo
		if hi > lo {
			idx = lo + rand.Intn(hi-lo+1)
		}
		v.PreviewEpisode = idx
		v.PreviewURL = eps[idx-1].URL
	}
	if v.ShortsCategory == "" {
		v.ShortsCategory = deriveShortsCategory(v.Name, v.Synopsis, v.Tags)
	}
}

// firstSourceEpisodes returns one source's episode list, deterministically
// picking the lexicographically-first source name since PlayURLs is a map with
// no inherent order.
func firstSourceEpisodes(p cleaner.PlayURLs) []cleaner.Episode {
	if len(p) == 0 {
		return nil
	}
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return p[names[0]]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// shortsKeywords are the scoring keywords for deriving a shorts sub-category
// when the classifier did not supply one (spec §4.G).
var shortsKeywords = []string{"霸总", "战神", "古装", "都市", "甜宠", "复仇", "玄幻"}

// deriveShortsCategory scores each keyword by occurrence count, weighting name
// hits 3x over synopsis/tags hits, and returns the top scorer.
func deriveShortsCategory(name, synopsis string, tags []string) string {
	combinedTags := strings.Join(tags, " ")
	best := ""
	bestScore := 0
	for _, kw := range shortsKeywords {
		score := strings.Count(name, kw)*3 + strings.Count(synopsis, kw) + strings.Count(combinedTags, kw)
		if score > bestScore {
			bestScore = score
			best = kw
		}
	}
	return best
}
