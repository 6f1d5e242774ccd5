package catalogstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/videocatalog/catalogcore/internal/cleaner"
	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(config.StorageConfig{DuckDBPath: filepath.Join(dir, "test.duckdb")})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func sampleVideo(name string, year int) Video {
	return Video{
		Name:      name,
		Year:      year,
		Area:      "中国大陆",
		Directors: []string{"冯小刚"},
		Actors:    []string{"张三"},
		Synopsis:  "一个讲述了很长很长故事的简介文本内容超过二十个字",
		CoverURL:  "https://img.example.com/cover.jpg",
		TypeID:    1,
		PlayURLs: cleaner.PlayURLs{
			"route1": []cleaner.Episode{{Label: "第1集", URL: "https://play.example.com/ep1.m3u8"}},
		},
	}
}

func TestIngestInsertsNewVideo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	outcome, id, err := s.Ingest(ctx, sampleVideo("测试电影", 2020), "source-a")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if outcome != OutcomeNew {
		t.Fatalf("outcome = %v, want new", outcome)
	}
	if id == "" {
		t.Fatal("expected non-empty video_id")
	}

	got, found, err := s.GetByID(ctx, id)
	if err != nil || !found {
		t.Fatalf("GetByID() = %v, %v, %v", got, found, err)
	}
	if got.QualityScore != 100 {
		t.Errorf("QualityScore = %d, want 100 (all fields present)", got.QualityScore)
	}
	if len(got.SourceNames) != 1 || got.SourceNames[0] != "source-a" {
		t.Errorf("SourceNames = %v, want [source-a]", got.SourceNames)
	}
}

func TestIngestMergesOnExactMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, id1, err := s.Ingest(ctx, sampleVideo("重复电影", 2021), "source-a")
	if err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}

	second := sampleVideo("重复电影", 2021)
	second.PlayURLs = cleaner.PlayURLs{
		"route2": []cleaner.Episode{{Label: "第1集", URL: "https://play.example.com/ep2.m3u8"}},
	}
	outcome, id2, err := s.Ingest(ctx, second, "source-b")
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	if outcome != OutcomeUpdate {
		t.Fatalf("outcome = %v, want update", outcome)
	}
	if id2 != id1 {
		t.Fatalf("id2 = %s, want match with id1 %s", id2, id1)
	}

	merged, _, err := s.GetByID(ctx, id1)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(merged.PlayURLs) != 2 {
		t.Errorf("PlayURLs has %d routes, want 2 (merged)", len(merged.PlayURLs))
	}
	if len(merged.SourceNames) != 2 {
		t.Errorf("SourceNames = %v, want 2 entries", merged.SourceNames)
	}
}

func TestIngestSkipsEmptyName(t *testing.T) {
	s := newTestStore(t)
	outcome, id, err := s.Ingest(context.Background(), Video{}, "source-a")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if outcome != OutcomeSkip || id != "" {
		t.Errorf("Ingest(empty) = %v, %q, want skip, \"\"", outcome, id)
	}
}
