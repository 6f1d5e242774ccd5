// Package search is the Search component (spec §4.L): an in-memory inverted
// index standing in for an FTS5-style engine (no full-text search library
// appears anywhere in the retrieval pack, so the index itself is hand-rolled
// — see DESIGN.md), with a genuine parameterized-SQL LIKE fallback,
// advanced_search, and suggestions query, grounded on the teacher's
// one-query-family-per-file convention.
package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// fieldWeight is how much one field contributes per matching token, roughly
// mirroring an FTS5 column-weighted BM25: the title matters most, cast
// matters more than synopsis prose.
const (
	weightName     = 3.0
	weightActor    = 2.0
	weightDirector = 2.0
	weightSynopsis = 1.0
)

// Index is an in-memory token -> posting-list inverted index over the
// catalog snapshot.
type Index struct {
	mu       sync.RWMutex
	postings map[string]map[string]float64 // token -> video_id -> accumulated weight
}

// NewIndex builds an empty Index; call Rebuild to populate it.
func NewIndex() *Index {
	return &Index{postings: make(map[string]map[string]float64)}
}

// Rebuild implements spec's "rebuild search index" step (run after task
// completion and in the weekly routine): replaces the index wholesale from a
// fresh catalog snapshot.
func (idx *Index) Rebuild(ctx context.Context, p Provider) error {
	videos, err := p.AllValidVideos(ctx)
	if err != nil {
		return err
	}

	postings := make(map[string]map[string]float64)
	add := func(videoID, text string, weight float64) {
		for _, tok := range tokenize(text) {
			bucket, ok := postings[tok]
			if !ok {
				bucket = make(map[string]float64)
				postings[tok] = bucket
			}
			bucket[videoID] += weight
		}
	}

	for _, v := range videos {
		add(v.VideoID, v.Name, weightName)
		for _, a := range v.Actors {
			add(v.VideoID, a, weightActor)
		}
		for _, d := range v.Directors {
			add(v.VideoID, d, weightDirector)
		}
		add(v.VideoID, v.Synopsis, weightSynopsis)
	}

	idx.mu.Lock()
	idx.postings = postings
	idx.mu.Unlock()
	return nil
}

// Rank returns up to limit video IDs scoring highest against keyword, most
// relevant first, or nil if the index has no hits (spec: "if empty, fall
// back to LIKE").
func (idx *Index) Rank(keyword string, limit int) []string {
	tokens := tokenize(keyword)
	if len(tokens) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scores := make(map[string]float64)
	for _, tok := range tokens {
		for videoID, weight := range idx.postings[tok] {
			scores[videoID] += weight
		}
	}
	if len(scores) == 0 {
		return nil
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return scores[ids[i]] > scores[ids[j]] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// tokenize splits s into lowercased word runs for Latin/digit text and
// unigram+bigram shingles for CJK runs, since CJK text carries no word
// boundaries to split on.
func tokenize(s string) []string {
	var tokens []string
	var word []rune
	var cjk []rune

	flushWord := func() {
		if len(word) > 0 {
			tokens = append(tokens, strings.ToLower(string(word)))
			word = word[:0]
		}
	}
	flushCJK := func() {
		for i := range cjk {
			tokens = append(tokens, string(cjk[i]))
			if i+1 < len(cjk) {
				tokens = append(tokens, string(cjk[i:i+2]))
			}
		}
		cjk = cjk[:0]
	}

	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			word = append(word, r)
		default:
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()
	return tokens
}
