package hits

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/store"
)

func newTestTracker(t *testing.T, cfg config.HitsConfig) (*Tracker, *store.DB) {
	t.Helper()
	dir := t.TempDir()
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

	return New(kv, db, cfg), db
}

func TestTrackFlushesAtBatchSize(t *testing.T) {
	tr, _ := newTestTracker(t, config.HitsConfig{BatchSize: 3, FlushInterval: time.Hour, RetentionDays: 30})
	ctx := context.Background()

	tr.Track(ctx, "v1")
	tr.Track(ctx, "v1")

	tr.mu.Lock()
	before := tr.totalLocked()
	tr.mu.Unlock()
	if before != 2 {
		t.Fatalf("in-memory total = %d, want 2 (below batch size, should not have flushed)", before)
	}

	tr.Track(ctx, "v1")

	tr.mu.Lock()
	after := tr.totalLocked()
	tr.mu.Unlock()
	if after != 0 {
		t.Errorf("in-memory total after hitting batch size = %d, want 0 (flushed)", after)
	}

	key := counterKey("v1", today())
	raw, err := tr.kv.Get(key)
	if err != nil {
		t.Fatalf("kv.Get(%q) error = %v", key, err)
	}
	if string(raw) != "3" {
		t.Errorf("stored delta = %q, want \"3\"", raw)
	}
}

func TestForceFlushAccumulatesAcrossCalls(t *testing.T) {
	tr, _ := newTestTracker(t, config.HitsConfig{BatchSize: 1000, FlushInterval: time.Hour, RetentionDays: 30})
	ctx := context.Background()

	tr.mu.Lock()
	tr.counts[counterKey("v1", today())] = 5
	tr.mu.Unlock()
	if err := tr.ForceFlush(ctx); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}

	tr.mu.Lock()
	tr.counts[counterKey("v1", today())] = 2
	tr.mu.Unlock()
	if err := tr.ForceFlush(ctx); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}

	raw, err := tr.kv.Get(counterKey("v1", today()))
	if err != nil {
		t.Fatalf("kv.Get() error = %v", err)
	}
	if string(raw) != "7" {
		t.Errorf("accumulated stored delta = %q, want \"7\" (conservation across flushes)", raw)
	}
}

func TestAggregateHitsUpsertsAndDeletesKeys(t *testing.T) {
	tr, db := newTestTracker(t, config.HitsConfig{BatchSize: 1000, FlushInterval: time.Hour, RetentionDays: 30})
	ctx := context.Background()

	tr.Track(ctx, "v1")
	tr.Track(ctx, "v1")
	tr.Track(ctx, "v2")
	if err := tr.ForceFlush(ctx); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}
	if err := tr.AggregateHits(ctx); err != nil {
		t.Fatalf("AggregateHits() error = %v", err)
	}

	var hitsV1, hitsV2 int64
	if err := db.Conn.QueryRowContext(ctx, `SELECT hits FROM access_log WHERE video_id = ? AND day = ?`, "v1", today()).Scan(&hitsV1); err != nil {
		t.Fatalf("query v1 hits: %v", err)
	}
	if hitsV1 != 2 {
		t.Errorf("v1 hits = %d, want 2", hitsV1)
	}
	if err := db.Conn.QueryRowContext(ctx, `SELECT hits FROM access_log WHERE video_id = ? AND day = ?`, "v2", today()).Scan(&hitsV2); err != nil {
		t.Fatalf("query v2 hits: %v", err)
	}
	if hitsV2 != 1 {
		t.Errorf("v2 hits = %d, want 1", hitsV2)
	}

	if _, err := tr.kv.Get(counterKey("v1", today())); err != store.ErrNotFound {
		t.Errorf("kv key for v1 should have been deleted after aggregation, got err=%v", err)
	}

	// Aggregating again should be a no-op upsert that doesn't double-count,
	// since the kv keys were deleted.
	if err := tr.AggregateHits(ctx); err != nil {
		t.Fatalf("second AggregateHits() error = %v", err)
	}
	var hitsAgain int64
	if err := db.Conn.QueryRowContext(ctx, `SELECT hits FROM access_log WHERE video_id = ? AND day = ?`, "v1", today()).Scan(&hitsAgain); err != nil {
		t.Fatalf("query v1 hits again: %v", err)
	}
	if hitsAgain != 2 {
		t.Errorf("v1 hits after redundant aggregate = %d, want 2 (conservation, no double count)", hitsAgain)
	}
}

func TestCalculateStatsSumsAllTime(t *testing.T) {
	tr, db := newTestTracker(t, config.HitsConfig{BatchSize: 1000, FlushInterval: time.Hour, RetentionDays: 30})
	ctx := context.Background()

	_, err := db.Conn.ExecContext(ctx, `INSERT INTO access_log (video_id, day, hits) VALUES (?, ?, ?)`,
		"v1", today(), 4)
	if err != nil {
		t.Fatalf("seed access_log: %v", err)
	}

	stats, err := tr.CalculateStats(ctx, "v1")
	if err != nil {
		t.Fatalf("CalculateStats() error = %v", err)
	}
	if stats.Day != 4 || stats.Week != 4 || stats.Month != 4 || stats.AllTime != 4 {
		t.Errorf("stats = %+v, want all fields = 4", stats)
	}
}
