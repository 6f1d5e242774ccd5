package catalogstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/videocatalog/catalogcore/internal/cleaner"
)

// defaultLanguage is used when a version's name carries no recognizable
// language token (spec §4.G / invariant P6: "or 原声 if none").
const defaultLanguage = "原声"

// FindAllVersions implements find_all_versions: load videoID, extract its base
// name, then gather every valid row whose extracted base name matches and
// whose year matches (or is empty on either side).
func (s *Store) FindAllVersions(ctx context.Context, videoID string) ([]Video, error) {
	v, ok, err := s.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("catalogstore: find_all_versions: video %q not found", videoID)
	}
	base := ExtractMeta(v.Name).BaseName

	rows, err := s.db.Conn.QueryContext(ctx, videoSelectCols+` WHERE is_valid = true`)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: find_all_versions query: %w", err)
	}
	defer rows.Close()

	var out []Video
	for rows.Next() {
		cand, ok, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if ExtractMeta(cand.Name).BaseName != base {
			continue
		}
		if v.Year != 0 && cand.Year != 0 && cand.Year != v.Year {
			continue
		}
		out = append(out, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalogstore: find_all_versions rows: %w", err)
	}
	return out, nil
}

// PlaySourceWithLang is one version's play source annotated with the language
// and quality tokens extracted (or inferred) from its owning video's name.
type PlaySourceWithLang struct {
	SourceName string
	Language   string
	Quality    string
	Episodes   []cleaner.Episode
}

// MergedVersions is merge_versions's return value.
type MergedVersions struct {
	Primary              Video
	BaseName             string
	Sources              []PlaySourceWithLang
	AvailableLanguages   []string
	AvailableQualities   []string
}

// MergeVersions picks the highest-quality_score row as primary, collects every
// version's play sources annotated with language/quality, dedupes by
// (source-name, language) keeping the higher episode count, and returns the
// union of languages (defaulting an unlabeled version to 原声) and qualities.
func MergeVersions(versions []Video) MergedVersions {
	if len(versions) == 0 {
		return MergedVersions{}
	}
	sorted := append([]Video(nil), versions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].QualityScore > sorted[j].QualityScore
	})
	primary := sorted[0]
	base := ExtractMeta(primary.Name).BaseName

	type key struct{ source, lang string }
	dedup := make(map[key]PlaySourceWithLang)
	langSet := make(map[string]bool)
	qualSet := make(map[string]bool)

	for _, v := range versions {
		meta := ExtractMeta(v.Name)
		lang := meta.Language
		if lang == "" {
			lang = defaultLanguage
		}
		langSet[lang] = true
		if meta.Quality != "" {
			qualSet[meta.Quality] = true
		}
		for sourceName, eps := range v.PlayURLs {
			quality := meta.Quality
			if quality == "" {
				quality = inferQualityFromLine(sourceName)
			}
			if quality != "" {
				qualSet[quality] = true
			}
			k := key{source: sourceName, lang: lang}
			if existing, ok := dedup[k]; !ok || len(eps) > len(existing.Episodes) {
				dedup[k] = PlaySourceWithLang{
					SourceName: sourceName,
					Language:   lang,
					Quality:    quality,
					Episodes:   eps,
				}
			}
		}
	}

	sources := make([]PlaySourceWithLang, 0, len(dedup))
	for _, ps := range dedup {
		sources = append(sources, ps)
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].SourceName != sources[j].SourceName {
			return sources[i].SourceName < sources[j].SourceName
		}
		return sources[i].Language < sources[j].Language
	})

	return MergedVersions{
		Primary:            primary,
		BaseName:           base,
		Sources:            sources,
		AvailableLanguages: sortedKeys(langSet),
		AvailableQualities: sortedKeys(qualSet),
	}
}

func inferQualityFromLine(sourceName string) string {
	for _, tok := range qualityTokens {
		if containsToken(sourceName, tok) {
			return tok
		}
	}
	return ""
}

func containsToken(s, tok string) bool {
	return len(tok) > 0 && indexOfSubstr(s, tok) >= 0
}

func indexOfSubstr(s, substr string) int {
	n, m := len(s), len(substr)
	if m == 0 || m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
