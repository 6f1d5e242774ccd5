package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/upstream"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]Record
	sources []Source
}

func newMemStore(sources ...Source) *memStore {
	return &memStore{records: make(map[string]Record), sources: sources}
}

func (m *memStore) GetRecord(_ context.Context, sourceID string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[sourceID]
	return rec, ok, nil
}

func (m *memStore) SaveRecord(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.SourceID] = rec
	return nil
}

func (m *memStore) ListActiveSources(_ context.Context) ([]Source, error) {
	return m.sources, nil
}

func testConfig() config.HealthConfig {
	return config.HealthConfig{
		ProbeTimeout:        2 * time.Second,
		SlowResponseMs:      2000,
		ErrorResponseMs:     8000,
		MaxConsecutiveFails: 3,
		ProbePaceDelay:      time.Millisecond,
		EMAAlpha:            0.3,
	}
}

func TestCheckOneHealthyOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"list":[{"name":"a"},{"name":"b"}]}`))
	}))
	defer srv.Close()

	store := newMemStore()
	tracker := NewTracker(store, upstream.New(upstream.Config{Timeout: time.Second}), testConfig())

	rec, err := tracker.CheckOne(context.Background(), Source{ID: "s1", BaseURL: srv.URL, Format: "json"})
	if err != nil {
		t.Fatalf("CheckOne() error = %v", err)
	}
	if rec.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", rec.Status)
	}
	if rec.LastVideoCount != 2 {
		t.Errorf("LastVideoCount = %d, want 2", rec.LastVideoCount)
	}
	if rec.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", rec.ConsecutiveFailures)
	}
}

func TestCheckOneErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := newMemStore()
	cfg := testConfig()
	tracker := NewTracker(store, upstream.New(upstream.Config{Timeout: time.Second, MaxRetries: 0}), cfg)

	rec, err := tracker.CheckOne(context.Background(), Source{ID: "s1", BaseURL: srv.URL, Format: "json"})
	if err != nil {
		t.Fatalf("CheckOne() error = %v", err)
	}
	if rec.Status != StatusError {
		t.Errorf("Status = %v, want error", rec.Status)
	}
	if rec.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", rec.ConsecutiveFailures)
	}
}

func TestCheckOneForcesErrorAtMaxConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := newMemStore()
	cfg := testConfig()
	cfg.MaxConsecutiveFails = 2
	tracker := NewTracker(store, upstream.New(upstream.Config{Timeout: time.Second, MaxRetries: 0}), cfg)
	src := Source{ID: "s1", BaseURL: srv.URL, Format: "json"}

	var rec Record
	for i := 0; i < 2; i++ {
		var err error
		rec, err = tracker.CheckOne(context.Background(), src)
		if err != nil {
			t.Fatalf("CheckOne() error = %v", err)
		}
	}
	if rec.ConsecutiveFailures < cfg.MaxConsecutiveFails {
		t.Fatalf("ConsecutiveFailures = %d, want >= %d", rec.ConsecutiveFailures, cfg.MaxConsecutiveFails)
	}
	if rec.Status != StatusError {
		t.Errorf("Status = %v, want error once consecutive failures reach the cap", rec.Status)
	}
}

func TestGetHealthySourcesExcludesErrorAndUnprobedIsEligible(t *testing.T) {
	sources := []Source{{ID: "probed", Active: true}, {ID: "unprobed", Active: true}}
	store := newMemStore(sources...)
	store.records["probed"] = Record{SourceID: "probed", Status: StatusError, ConsecutiveFailures: 5}

	tracker := NewTracker(store, upstream.New(upstream.Config{}), testConfig())
	healthy, err := tracker.GetHealthySources(context.Background())
	if err != nil {
		t.Fatalf("GetHealthySources() error = %v", err)
	}
	if len(healthy) != 1 || healthy[0].ID != "unprobed" {
		t.Fatalf("got %+v, want only the never-probed source", healthy)
	}
}

func TestCheckAllPacesBetweenProbes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"list":[]}`))
	}))
	defer srv.Close()

	sources := []Source{{ID: "s1", BaseURL: srv.URL, Format: "json", Active: true}, {ID: "s2", BaseURL: srv.URL, Format: "json", Active: true}}
	store := newMemStore(sources...)
	cfg := testConfig()
	cfg.ProbePaceDelay = 10 * time.Millisecond
	tracker := NewTracker(store, upstream.New(upstream.Config{Timeout: time.Second}), cfg)

	start := time.Now()
	recs, err := tracker.CheckAll(context.Background())
	if err != nil {
		t.Fatalf("CheckAll() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if time.Since(start) < cfg.ProbePaceDelay {
		t.Errorf("CheckAll() returned faster than the pacing delay")
	}
}
