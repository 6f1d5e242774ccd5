package catalogstore

import (
	"context"
	"testing"

	"github.com/videocatalog/catalogcore/internal/cleaner"
)

func TestApplyShortsPreviewPicksMiddleEpisode(t *testing.T) {
	eps := make([]cleaner.Episode, 12)
	for i := range eps {
		eps[i] = cleaner.Episode{Label: "ep", URL: "https://play.example.com/ep.m3u8"}
	}
	v := Video{
		Name:     "霸总归来",
		TypeID:   5,
		PlayURLs: cleaner.PlayURLs{"route1": eps},
	}
	applyShortsPreview(&v)

	if v.PreviewEpisode < 3 || v.PreviewEpisode > 8 {
		t.Errorf("PreviewEpisode = %d, want in [3,8]", v.PreviewEpisode)
	}
	if v.PreviewURL != eps[v.PreviewEpisode-1].URL {
		t.Errorf("PreviewURL mismatch for episode index %d", v.PreviewEpisode)
	}
	if v.ShortsCategory != "霸总" {
		t.Errorf("ShortsCategory = %q, want 霸总", v.ShortsCategory)
	}
}

func TestApplyShortsPreviewFewerThanThreeEpisodes(t *testing.T) {
	v := Video{
		Name: "甜宠合约",
		PlayURLs: cleaner.PlayURLs{
			"route1": {{URL: "https://play.example.com/ep1.m3u8"}, {URL: "https://play.example.com/ep2.m3u8"}},
		},
	}
	applyShortsPreview(&v)
	if v.PreviewEpisode != 1 && v.PreviewEpisode != 2 {
		t.Errorf("PreviewEpisode = %d, want 1 or 2 for a 2-episode show", v.PreviewEpisode)
	}
}

func TestIngestShortDramaSetsPreview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	eps := make([]cleaner.Episode, 10)
	for i := range eps {
		eps[i] = cleaner.Episode{URL: "https://play.example.com/e.m3u8"}
	}
	v := sampleVideo("战神归来", 2023)
	v.TypeID = 5
	v.PlayURLs = cleaner.PlayURLs{"route1": eps}

	_, id, err := s.Ingest(ctx, v, "source-a")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	got, _, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.PreviewEpisode < 3 || got.PreviewEpisode > 8 {
		t.Errorf("PreviewEpisode = %d, want in [3,8]", got.PreviewEpisode)
	}
	if got.ShortsCategory != "战神" {
		t.Errorf("ShortsCategory = %q, want 战神", got.ShortsCategory)
	}
}

func TestDeriveShortsCategoryWeightsNameHigher(t *testing.T) {
	got := deriveShortsCategory("玄幻传说", "讲了一个古装故事", nil)
	if got != "玄幻" {
		t.Errorf("deriveShortsCategory() = %q, want 玄幻 (name hit outweighs synopsis hit)", got)
	}
}
