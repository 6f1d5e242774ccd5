package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/classify"
	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/health"
	"github.com/videocatalog/catalogcore/internal/store"
	"github.com/videocatalog/catalogcore/internal/task"
	"github.com/videocatalog/catalogcore/internal/upstream"
)

// activeSourcesAsHealthy adapts catalogstore's ListActiveSources (health.Store)
// into the HealthySourceLister interface for tests that don't need the real
// health.Tracker's status/breaker filtering.
type activeSourcesAsHealthy struct{ cs *catalogstore.Store }

func (a activeSourcesAsHealthy) GetHealthySources(ctx context.Context) ([]health.Source, error) {
	return a.cs.ListActiveSources(ctx)
}

type jsonVideo struct {
	VodID      string `json:"vod_id"`
	VodName    string `json:"vod_name"`
	VodPic     string `json:"vod_pic"`
	VodArea    string `json:"vod_area"`
	VodYear    string `json:"vod_year"`
	VodActor   string `json:"vod_actor"`
	VodContent string `json:"vod_content"`
	VodPlayURL string `json:"vod_play_url"`
}

func newCMSServer(t *testing.T, videos []jsonVideo) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("ac") {
		case "detail":
			id := r.URL.Query().Get("ids")
			for _, v := range videos {
				if v.VodID == id {
					writeJSONList(w, []jsonVideo{v}, 1, 1)
					return
				}
			}
			writeJSONList(w, nil, 1, 1)
		default:
			writeJSONList(w, videos, 1, 1)
		}
	}))
}

func writeJSONList(w http.ResponseWriter, videos []jsonVideo, page, pageCount int) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":      1,
		"msg":       "ok",
		"page":      page,
		"pagecount": pageCount,
		"total":     len(videos),
		"list":      videos,
	})
}

func newTestEngine(t *testing.T, baseURL string) (*Engine, *task.Manager, *catalogstore.Store) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(config.StorageConfig{DuckDBPath: filepath.Join(dir, "test.duckdb")})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cs := catalogstore.New(db)
	_, err = db.Conn.Exec(`INSERT INTO sources (id, name, base_url, weight, active, format, welfare)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, "src-1", "Test Source", baseURL, 1, true, "json", false)
	if err != nil {
		t.Fatalf("seed sources: %v", err)
	}

	tasks := task.NewManager(db)
	classifier := classify.NewEngine(nil, nil)
	client := upstream.New(upstream.Config{Timeout: 5 * time.Second, MaxRetries: 0})
	cfg := config.CollectConfig{
		PageSize:               20,
		BatchSize:              3,
		RequestDelay:           time.Millisecond,
		BatchDelay:             time.Millisecond,
		MaxRetries:             0,
		RequestTimeout:         5 * time.Second,
		DetailTimeout:          5 * time.Second,
		ProgressUpdateInterval: 1,
		RetryBackoffCap:        time.Second,
	}
	engine := NewEngine(tasks, cs, cs, activeSourcesAsHealthy{cs}, classifier, client, cfg, nil, nil)
	return engine, tasks, cs
}

func TestRunTaskIngestsVideosAndCompletes(t *testing.T) {
	srv := newCMSServer(t, []jsonVideo{
		{VodID: "1", VodName: "测试电影A", VodPic: "http://img.example.com/a.jpg", VodArea: "大陆", VodYear: "2020",
			VodActor: "张三", VodContent: "一个很长很长很长很长很长很长的故事简介", VodPlayURL: "第1集$http://play.example.com/a1.m3u8"},
		{VodID: "2", VodName: "测试电影B", VodYear: "2021", VodPlayURL: "http://play.example.com/b1.m3u8"},
	})
	defer srv.Close()

	engine, tasks, cs := newTestEngine(t, srv.URL)
	ctx := context.Background()

	created, err := tasks.Create(ctx, task.KindFull, task.Config{SourceIDs: []string{"src-1"}, PageEnd: -1}, 5)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := engine.RunTask(ctx, created.ID); err != nil {
		t.Fatalf("RunTask() error = %v", err)
	}

	got, _, err := tasks.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != task.StatusCompleted {
		t.Fatalf("Status = %v, want completed (last_error=%q)", got.Status, got.LastError)
	}
	if got.Progress.New != 2 {
		t.Errorf("Progress.New = %d, want 2", got.Progress.New)
	}

	videoA, found, err := cs.FindExisting(ctx, "测试电影A", 2020, "中国大陆", "")
	if err != nil || !found {
		t.Fatalf("FindExisting(A) = %v, %v, %v", videoA, found, err)
	}
	if videoA.CoverURL != "https://img.example.com/a.jpg" {
		t.Errorf("CoverURL = %q, want upgraded to https", videoA.CoverURL)
	}
	if len(videoA.Actors) != 1 || videoA.Actors[0] != "张三" {
		t.Errorf("Actors = %v, want [张三]", videoA.Actors)
	}
}

func TestRunTaskWithNoSourcesCompletesImmediately(t *testing.T) {
	engine, tasks, _ := newTestEngine(t, "http://unused.invalid")
	ctx := context.Background()

	created, err := tasks.Create(ctx, task.KindFull, task.Config{SourceIDs: []string{"does-not-exist"}, PageEnd: -1}, 5)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := engine.RunTask(ctx, created.ID); err != nil {
		t.Fatalf("RunTask() error = %v", err)
	}
	got, _, err := tasks.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != task.StatusCompleted {
		t.Errorf("Status = %v, want completed", got.Status)
	}
}
