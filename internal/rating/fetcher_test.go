package rating

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/store"
	"github.com/videocatalog/catalogcore/internal/upstream"
)

func newTestFetcher(t *testing.T, searchResponses map[string]interface{}) (*Fetcher, *catalogstore.Store) {
	t.Helper()
	dir := t.TempDir()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query().Get("query")
		resp, ok := searchResponses[q]
		if !ok {
			resp = map[string]interface{}{"results": []interface{}{}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	db, err := store.Open(config.StorageConfig{DuckDBPath: filepath.Join(dir, "test.duckdb")})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	kv, err := store.OpenKV(config.StorageConfig{BadgerDir: filepath.Join(dir, "badger")})
	if err != nil {
		t.Fatalf("store.OpenKV() error = %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	cs := catalogstore.New(db)
	client := upstream.New(upstream.Config{Timeout: 5 * time.Second, MaxRetries: 0})
	cfg := config.RatingConfig{
		CacheTTL:     30 * 24 * time.Hour,
		RetryAfter:   24 * time.Hour,
		RequestDelay: time.Millisecond,
		BaseURL:      srv.URL,
		APIKey:       "test-key",
	}
	return New(client, cs, kv, db, cfg), cs
}

func TestCleanTitleStripsEpisodeAndQualityTokens(t *testing.T) {
	cases := map[string]string{
		"流浪地球 第2季":    "流浪地球",
		"流浪地球 1080P":   "流浪地球",
		"流浪地球 国语 4K":   "流浪地球",
		"无间道":          "无间道",
	}
	for in, want := range cases {
		if got := CleanTitle(in); got != want {
			t.Errorf("CleanTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFetchSingleRecordsSuccessAndMirrorsScore(t *testing.T) {
	f, cs := newTestFetcher(t, map[string]interface{}{
		"流浪地球": map[string]interface{}{
			"results": []interface{}{
				map[string]interface{}{"id": 12345, "release_date": "2019-02-05", "vote_average": 7.8, "vote_count": 900},
			},
		},
	})
	ctx := context.Background()

	outcome, _, err := cs.Ingest(ctx, catalogstore.Video{Name: "流浪地球", Year: 2019, Area: "中国大陆", TypeID: 1}, "test-source")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if outcome != catalogstore.OutcomeNew {
		t.Fatalf("Ingest() outcome = %v, want new", outcome)
	}

	video, found, err := cs.FindExisting(ctx, "流浪地球", 2019, "中国大陆", "")
	if err != nil || !found {
		t.Fatalf("FindExisting() = %v, %v, %v", video, found, err)
	}

	if err := f.FetchSingle(ctx, video.VideoID); err != nil {
		t.Fatalf("FetchSingle() error = %v", err)
	}

	updated, found, err := cs.GetByID(ctx, video.VideoID)
	if err != nil || !found {
		t.Fatalf("GetByID() = %v, %v, %v", updated, found, err)
	}
	if updated.Rating != 7.8 {
		t.Errorf("Rating = %v, want 7.8", updated.Rating)
	}
	if updated.RatingSource != "tmdb" {
		t.Errorf("RatingSource = %q, want tmdb", updated.RatingSource)
	}

	if !f.cacheFresh(video.VideoID) {
		t.Error("expected a fresh 30-day success cache entry after FetchSingle")
	}
}

func TestFetchSingleYearMismatchRecordsFailure(t *testing.T) {
	f, cs := newTestFetcher(t, map[string]interface{}{
		"错位人生": map[string]interface{}{
			"results": []interface{}{
				map[string]interface{}{"id": 1, "release_date": "2010-01-01", "vote_average": 5.0, "vote_count": 10},
			},
		},
	})
	ctx := context.Background()

	_, _, err := cs.Ingest(ctx, catalogstore.Video{Name: "错位人生", Year: 2020, Area: "中国大陆", TypeID: 1}, "test-source")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	video, found, err := cs.FindExisting(ctx, "错位人生", 2020, "中国大陆", "")
	if err != nil || !found {
		t.Fatalf("FindExisting() = %v, %v, %v", video, found, err)
	}

	if err := f.FetchSingle(ctx, video.VideoID); err != nil {
		t.Fatalf("FetchSingle() error = %v", err)
	}

	if !f.backoffActive(video.VideoID) {
		t.Error("expected a 24h failure backoff entry after a year-mismatch lookup")
	}

	var status string
	if err := f.db.Conn.QueryRowContext(ctx, `SELECT status FROM ratings WHERE video_id = ?`, video.VideoID).Scan(&status); err != nil {
		t.Fatalf("query ratings status: %v", err)
	}
	if status != "failed" {
		t.Errorf("ratings.status = %q, want failed", status)
	}
}

func TestFetchSingleSkipsWhenCacheFresh(t *testing.T) {
	f, cs := newTestFetcher(t, nil)
	ctx := context.Background()

	_, _, err := cs.Ingest(ctx, catalogstore.Video{Name: "测试标题", Year: 2021, Area: "中国大陆", TypeID: 1}, "test-source")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	video, found, err := cs.FindExisting(ctx, "测试标题", 2021, "中国大陆", "")
	if err != nil || !found {
		t.Fatalf("FindExisting() = %v, %v, %v", video, found, err)
	}

	if err := f.kv.Set(cacheKey(video.VideoID), []byte("1"), time.Hour); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	if err := f.FetchSingle(ctx, video.VideoID); err != nil {
		t.Fatalf("FetchSingle() error = %v", err)
	}

	var count int
	if err := f.db.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings WHERE video_id = ?`, video.VideoID).Scan(&count); err != nil {
		t.Fatalf("count ratings: %v", err)
	}
	if count != 0 {
		t.Errorf("ratings rows = %d, want 0 (fetch should have been skipped)", count)
	}
}
