package search

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
)

type fakeIndexProvider struct {
	videos []catalogstore.Video
}

func (f fakeIndexProvider) AllValidVideos(_ context.Context) ([]catalogstore.Video, error) {
	return f.videos, nil
}
func (f fakeIndexProvider) GetByID(_ context.Context, videoID string) (catalogstore.Video, bool, error) {
	for _, v := range f.videos {
		if v.VideoID == videoID {
			return v, true, nil
		}
	}
	return catalogstore.Video{}, false, nil
}
func (f fakeIndexProvider) LikeSearch(_ context.Context, _ string, _ int) ([]catalogstore.Video, error) {
	return nil, nil
}
func (f fakeIndexProvider) AdvancedSearch(_ context.Context, _ catalogstore.AdvancedSearchParams) ([]catalogstore.Video, int, error) {
	return nil, 0, nil
}
func (f fakeIndexProvider) Suggestions(_ context.Context, _ string, _ int) ([]string, error) {
	return nil, nil
}

func TestTokenizeSplitsCJKIntoShinglesAndLatinIntoWords(t *testing.T) {
	got := tokenize("The 大话西游 Movie")
	want := []string{"the", "大", "大话", "话", "话西", "西", "西游", "游", "movie"}
	sort.Strings(got)
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokenize() = %v, want %v", got, want)
	}
}

func TestIndexRankWeightsNameOverSynopsis(t *testing.T) {
	idx := NewIndex()
	provider := fakeIndexProvider{videos: []catalogstore.Video{
		{VideoID: "a", Name: "西游记", Synopsis: "一部关于旅行的故事"},
		{VideoID: "b", Name: "无关标题", Synopsis: "提到西游记的评论"},
	}}
	if err := idx.Rebuild(context.Background(), provider); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	ids := idx.Rank("西游记", 10)
	if len(ids) != 2 || ids[0] != "a" {
		t.Fatalf("expected video a (name match) ranked first, got %v", ids)
	}
}

func TestIndexRankReturnsNilOnNoMatch(t *testing.T) {
	idx := NewIndex()
	provider := fakeIndexProvider{videos: []catalogstore.Video{{VideoID: "a", Name: "甲"}}}
	if err := idx.Rebuild(context.Background(), provider); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if ids := idx.Rank("乙", 10); ids != nil {
		t.Errorf("expected nil for a keyword with no postings, got %v", ids)
	}
}
