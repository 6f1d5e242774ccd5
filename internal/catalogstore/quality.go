package catalogstore

import (
	"strings"

	"github.com/videocatalog/catalogcore/internal/cleaner"
)

// ComputeQualityScore implements spec §4.G's pure function of stored fields:
// 20·[has cover] + 15·[has actor] + 10·[has director] + 25·[has synopsis >=20
// chars] + 30·[has play URL >=10 chars]. Invariant: quality_score is a pure
// function of the video's other fields — callers must recompute it on every
// write, never patch it independently.
func ComputeQualityScore(v Video) int {
	score := 0
	if v.CoverURL != "" {
		score += 20
	}
	if len(v.Actors) > 0 {
		score += 15
	}
	if len(v.Directors) > 0 {
		score += 10
	}
	if len([]rune(v.Synopsis)) >= 20 {
		score += 25
	}
	if longestPlayURL(v.PlayURLs) >= 10 {
		score += 30
	}
	return score
}

func longestPlayURL(p cleaner.PlayURLs) int {
	longest := 0
	for _, eps := range p {
		for _, ep := range eps {
			if len(ep.URL) > longest {
				longest = len(ep.URL)
			}
		}
	}
	return longest
}

// languageTokens / qualityTokens are the trailing tokens extract_meta peels off
// a display name to recover the title's version-independent base form (spec
// §4.G "Language/quality version grouping").
var languageTokens = []string{"国语", "粤语", "原声", "英语", "日语", "韩语", "中字", "字幕"}
var qualityTokens = []string{"4K", "1080P", "720P", "蓝光", "超清", "高清", "HD"}

// Meta is extract_meta's return value: the version-independent base name plus
// whichever language/quality token was present.
type Meta struct {
	BaseName string
	Language string
	Quality  string
}

// ExtractMeta peels a trailing language token then a trailing quality token
// (in either order, since upstream titles aren't consistent about which comes
// last) off name, returning the remainder as BaseName.
func ExtractMeta(name string) Meta {
	var m Meta
	rest := strings.TrimSpace(name)
	for pass := 0; pass < 2; pass++ {
		if m.Language == "" {
			if tok, trimmed, ok := peelTrailingToken(rest, languageTokens); ok {
				m.Language = tok
				rest = trimmed
				continue
			}
		}
		if m.Quality == "" {
			if tok, trimmed, ok := peelTrailingToken(rest, qualityTokens); ok {
				m.Quality = tok
				rest = trimmed
				continue
			}
		}
		break
	}
	m.BaseName = strings.TrimSpace(rest)
	return m
}

func peelTrailingToken(s string, tokens []string) (token, rest string, ok bool) {
	trimmed := strings.TrimRight(s, " \t")
	for _, t := range tokens {
		if strings.HasSuffix(trimmed, t) {
			return t, strings.TrimSuffix(trimmed, t), true
		}
	}
	return "", s, false
}
