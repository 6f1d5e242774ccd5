package aggregate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/cleaner"
	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/health"
	"github.com/videocatalog/catalogcore/internal/store"
	"github.com/videocatalog/catalogcore/internal/upstream"
)

type fixedSources struct{ sources []health.Source }

func (f fixedSources) ListActiveSources(_ context.Context) ([]health.Source, error) {
	return f.sources, nil
}

func newTestAggregator(t *testing.T, sources []health.Source) (*Aggregator, *catalogstore.Store) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(config.StorageConfig{DuckDBPath: filepath.Join(dir, "test.duckdb")})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cs := catalogstore.New(db)
	client := upstream.New(upstream.Config{Timeout: 5 * time.Second, MaxRetries: 0})
	cfg := config.AggregateConfig{FanoutTimeout: 2 * time.Second, WelfareEnabled: true}
	return New(cs, fixedSources{sources: sources}, client, cfg), cs
}

func writeList(w http.ResponseWriter, videos []map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code": 1, "msg": "ok", "page": 1, "pagecount": 1, "total": len(videos), "list": videos,
	})
}

func TestAggregateReturnsFromCacheWhenNonEmpty(t *testing.T) {
	a, cs := newTestAggregator(t, nil)
	ctx := context.Background()

	_, _, err := cs.Ingest(ctx, catalogstore.Video{
		Name: "缓存电影", Year: 2022, Area: "中国大陆", TypeID: 1,
		PlayURLs: cleaner.PlayURLs{"default": []cleaner.Episode{{Label: "第1集", URL: "https://play.example.com/ep1.m3u8"}}},
	}, "seed")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	res, err := a.Aggregate(ctx, Params{Year: 2022})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if !res.FromCache {
		t.Error("expected FromCache = true for a non-empty cache hit")
	}
	if len(res.Videos) != 1 {
		t.Fatalf("len(Videos) = %d, want 1", len(res.Videos))
	}
}

func TestAggregateFansOutOnCacheMissAndDedupes(t *testing.T) {
	srvA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeList(w, []map[string]interface{}{
			{"vod_id": "1", "vod_name": "新电影", "vod_year": "2023", "vod_area": "大陆", "vod_pic": "http://img.example.com/a.jpg"},
		})
	}))
	defer srvA.Close()

	srvB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeList(w, []map[string]interface{}{
			{"vod_id": "1", "vod_name": "新电影", "vod_year": "2023", "vod_area": "大陆"},
		})
	}))
	defer srvB.Close()

	a, _ := newTestAggregator(t, []health.Source{
		{ID: "a", Name: "Source A", BaseURL: srvA.URL, Active: true, Format: "json", Weight: 1},
		{ID: "b", Name: "Source B", BaseURL: srvB.URL, Active: true, Format: "json", Weight: 1},
	})
	ctx := context.Background()

	res, err := a.Aggregate(ctx, Params{Year: 2023})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if res.FromCache {
		t.Error("expected FromCache = false on a cache miss")
	}
	if len(res.Videos) != 1 {
		t.Fatalf("len(Videos) = %d, want 1 (deduped by name+year+area)", len(res.Videos))
	}
	if res.Videos[0].CoverURL == "" {
		t.Error("expected the deduped survivor to keep source A's higher-completeness record (has cover)")
	}
	if len(res.Succeeded) != 2 {
		t.Errorf("Succeeded = %v, want both sources", res.Succeeded)
	}
}

func TestAggregateSkipsWelfareSourceWhenNotRequested(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeList(w, nil)
	}))
	defer srv.Close()

	a, _ := newTestAggregator(t, []health.Source{
		{ID: "w", Name: "Welfare Source", BaseURL: srv.URL, Active: true, Format: "json", Welfare: true},
	})
	ctx := context.Background()

	_, err := a.Aggregate(ctx, Params{Year: 1999, IncludeWelfare: false})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if called {
		t.Error("welfare source should not have been queried when include_welfare=false")
	}
}

func TestAggregateCacheOnlySkipsFanout(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeList(w, nil)
	}))
	defer srv.Close()

	a, _ := newTestAggregator(t, []health.Source{
		{ID: "a", Name: "Source A", BaseURL: srv.URL, Active: true, Format: "json"},
	})
	ctx := context.Background()

	res, err := a.Aggregate(ctx, Params{Year: 1999, CacheOnly: true})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if called {
		t.Error("cache_only=true should never trigger a fan-out")
	}
	if len(res.Videos) != 0 {
		t.Errorf("len(Videos) = %d, want 0", len(res.Videos))
	}
}
