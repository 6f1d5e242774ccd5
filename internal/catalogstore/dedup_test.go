package catalogstore

import (
	"context"
	"testing"

	"github.com/videocatalog/catalogcore/internal/cleaner"
)

func TestMergeDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v1 := Video{
		Name:     "同名剧集",
		Year:     2019,
		Area:     "中国大陆",
		TypeID:   2,
		CoverURL: "https://img.example.com/a.jpg",
		PlayURLs: cleaner.PlayURLs{
			"line1": {{URL: "https://play.example.com/a1.m3u8"}},
		},
	}
	_, id1, err := s.Ingest(ctx, v1, "source-a")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	// Second row shares the name but differs enough (different area) that
	// find_existing's layered match won't merge it on ingest, simulating two
	// independently-discovered catalog rows that need an explicit cleanup pass.
	v2 := Video{
		Name:      "同名剧集",
		Year:      2019,
		Area:      "中国台湾",
		TypeID:    2,
		Actors:    []string{"李四"},
		Directors: []string{"王五"},
		IsValid:   true,
		PlayURLs: cleaner.PlayURLs{
			"line2": {{URL: "https://play.example.com/b1.m3u8"}},
		},
	}
	if err := s.insertVideo(ctx, func() Video {
		v2.VideoID = NewVideoID(v2.Name, v2.Year, v2.Area, "王五")
		v2.SourceNames = []string{"source-b"}
		v2.QualityScore = ComputeQualityScore(v2)
		return v2
	}()); err != nil {
		t.Fatalf("insertVideo(v2) error = %v", err)
	}

	survivorID, err := s.MergeDuplicates(ctx, "同名剧集")
	if err != nil {
		t.Fatalf("MergeDuplicates() error = %v", err)
	}
	if survivorID == "" {
		t.Fatal("expected a surviving video_id")
	}

	survivor, found, err := s.GetByID(ctx, survivorID)
	if err != nil || !found {
		t.Fatalf("GetByID() = %v, %v, %v", survivor, found, err)
	}
	if len(survivor.PlayURLs) != 2 {
		t.Errorf("survivor PlayURLs has %d routes, want 2 (merged)", len(survivor.PlayURLs))
	}
	if len(survivor.Actors) == 0 {
		t.Error("survivor should have back-filled Actors from the duplicate")
	}

	_, found1, err := s.GetByID(ctx, id1)
	if err != nil {
		t.Fatalf("GetByID(id1) error = %v", err)
	}
	if survivorID != id1 && found1 {
		t.Error("non-primary row should have been deleted")
	}
}

func TestCleanupDuplicatesNoGroups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.Ingest(ctx, sampleVideo("唯一标题", 2022), "source-a"); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	merged, err := s.CleanupDuplicates(ctx)
	if err != nil {
		t.Fatalf("CleanupDuplicates() error = %v", err)
	}
	if merged != 0 {
		t.Errorf("CleanupDuplicates() merged %d groups, want 0", merged)
	}
}
