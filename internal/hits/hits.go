// Package hits is the Hit Tracker (spec §4.H): an in-memory counter map
// guarded by one mutex, flushed to the KV store in batches and periodically
// aggregated into a durable per-day access log. Grounded on the teacher's
// internal/cache/lru.go pattern of a small sync-protected in-process
// structure with explicit stats counters and a constructor that fills in
// sane defaults for a non-positive capacity/TTL.
package hits

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/store"
)

const keyPrefix = "hits:"

// Tracker accumulates view counts in memory and periodically flushes the
// delta into the KV store, from which aggregate_hits later folds it into the
// durable access_log table.
type Tracker struct {
	mu            sync.Mutex
	counts        map[string]int64
	lastFlush     time.Time
	batchSize     int
	flushInterval time.Duration
	retentionDays int

	kv *store.KV
	db *store.DB
}

// New builds a Tracker. A non-positive BatchSize/FlushInterval/RetentionDays
// falls back to the spec defaults (100 / 60s / 30 days).
func New(kv *store.KV, db *store.DB, cfg config.HitsConfig) *Tracker {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 60 * time.Second
	}
	retentionDays := cfg.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Tracker{
		counts:        make(map[string]int64),
		lastFlush:     time.Now(),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		retentionDays: retentionDays,
		kv:            kv,
		db:            db,
	}
}

// Track increments the in-memory counter for videoID on today's date
// (spec §4.H: "increment an in-memory counter keyed by (video_id, today)"),
// then flushes if either trigger condition is met.
func (t *Tracker) Track(ctx context.Context, videoID string) {
	t.mu.Lock()
	key := counterKey(videoID, today())
	t.counts[key]++
	total := t.totalLocked()
	dueByTime := time.Since(t.lastFlush) >= t.flushInterval
	t.mu.Unlock()

	if total >= t.batchSize || dueByTime {
		if err := t.ForceFlush(ctx); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("hits: flush failed")
		}
	}
}

func (t *Tracker) totalLocked() int {
	var n int
	for _, v := range t.counts {
		n += int(v)
	}
	return n
}

// ForceFlush swaps the in-memory map under lock and writes each entry's
// accumulated delta into the KV store, adding it to whatever value is
// already there (spec §4.H: "Flush reads current stored value (may be 0),
// adds the accumulated delta, writes back with a 24h expiry"). The Scheduler
// calls this on every hourly tick and at shutdown.
func (t *Tracker) ForceFlush(ctx context.Context) error {
	t.mu.Lock()
	pending := t.counts
	t.counts = make(map[string]int64)
	t.lastFlush = time.Now()
	t.mu.Unlock()

	for key, delta := range pending {
		cur, err := t.kv.Get(key)
		var stored int64
		if err == nil {
			fmt.Sscanf(string(cur), "%d", &stored)
		} else if err != store.ErrNotFound {
			return fmt.Errorf("hits: read %s: %w", key, err)
		}
		total := stored + delta
		if err := t.kv.Set(key, []byte(fmt.Sprintf("%d", total)), 24*time.Hour); err != nil {
			return fmt.Errorf("hits: write %s: %w", key, err)
		}
	}
	return nil
}

// AggregateHits lists every hits:* key, splits it into (video_id, date),
// upserts the value into the durable per-day access_log, then deletes the
// key (spec §4.H aggregate_hits). Run by the Scheduler's hourly routine
// after ForceFlush.
func (t *Tracker) AggregateHits(ctx context.Context) error {
	type entry struct {
		videoID string
		date    string
		count   int64
	}
	var entries []entry
	err := t.kv.Scan(keyPrefix, func(key string, value []byte) bool {
		videoID, date, ok := splitCounterKey(key)
		if !ok {
			return true
		}
		var count int64
		fmt.Sscanf(string(value), "%d", &count)
		entries = append(entries, entry{videoID: videoID, date: date, count: count})
		return true
	})
	if err != nil {
		return fmt.Errorf("hits: scan: %w", err)
	}

	for _, e := range entries {
		_, err := t.db.Conn.ExecContext(ctx, `
			INSERT INTO access_log (video_id, day, hits) VALUES (?, ?, ?)
			ON CONFLICT (video_id, day) DO UPDATE SET hits = access_log.hits + EXCLUDED.hits`,
			e.videoID, e.date, e.count)
		if err != nil {
			return fmt.Errorf("hits: upsert access_log for %s/%s: %w", e.videoID, e.date, err)
		}
		if err := t.kv.Delete(counterKey(e.videoID, e.date)); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("video_id", e.videoID).Msg("hits: delete aggregated key failed")
		}
	}
	return nil
}

// Stats is the per-video rollup calculate_stats produces.
type Stats struct {
	VideoID string
	Day     int64
	Week    int64
	Month   int64
	AllTime int64
}

// CalculateStats recomputes per-video day/week/month/all-time totals from
// the last retentionDays of access_log, then deletes rows older than that
// window (spec §4.H calculate_stats).
func (t *Tracker) CalculateStats(ctx context.Context, videoID string) (Stats, error) {
	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -t.retentionDays)

	if _, err := t.db.Conn.ExecContext(ctx, `DELETE FROM access_log WHERE day < ?`, cutoff); err != nil {
		return Stats{}, fmt.Errorf("hits: purge old access_log rows: %w", err)
	}

	stats := Stats{VideoID: videoID}
	rows, err := t.db.Conn.QueryContext(ctx, `
		SELECT day, hits FROM access_log WHERE video_id = ? AND day >= ?`,
		videoID, cutoff)
	if err != nil {
		return Stats{}, fmt.Errorf("hits: query access_log: %w", err)
	}
	defer rows.Close()

	weekCutoff := now.AddDate(0, 0, -7)
	monthCutoff := now.AddDate(0, -1, 0)
	todayStr := today()

	for rows.Next() {
		var day time.Time
		var count int64
		if err := rows.Scan(&day, &count); err != nil {
			return Stats{}, fmt.Errorf("hits: scan access_log row: %w", err)
		}
		stats.AllTime += count
		if day.Format("2006-01-02") == todayStr {
			stats.Day += count
		}
		if !day.Before(weekCutoff) {
			stats.Week += count
		}
		if !day.Before(monthCutoff) {
			stats.Month += count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("hits: access_log rows: %w", err)
	}
	return stats, nil
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func counterKey(videoID, date string) string {
	return keyPrefix + videoID + ":" + date
}

func splitCounterKey(key string) (videoID, date string, ok bool) {
	rest := strings.TrimPrefix(key, keyPrefix)
	if rest == key {
		return "", "", false
	}
	idx := strings.LastIndex(rest, ":")
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}
