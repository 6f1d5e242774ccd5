// Package rating is the Rating Enricher (spec §4.I): it looks up an external
// rating for a cataloged video, verifies the release year roughly matches,
// and mirrors the score back onto the video row. Grounded on the shared
// internal/upstream.Client for the HTTP leg (same retry/backoff policy as
// every other outbound call) and internal/store.KV for the 30-day success
// cache / 24h failure backoff, the same two handles the Classifier's mapping
// cache and the Hit Tracker's batch buffer already use.
package rating

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/store"
	"github.com/videocatalog/catalogcore/internal/upstream"
)

const sourceName = "tmdb"

// Fetcher enriches catalog videos with an external rating.
type Fetcher struct {
	client  *upstream.Client
	catalog *catalogstore.Store
	kv      *store.KV
	db      *store.DB
	cfg     config.RatingConfig
}

// New builds a Fetcher.
func New(client *upstream.Client, catalog *catalogstore.Store, kv *store.KV, db *store.DB, cfg config.RatingConfig) *Fetcher {
	return &Fetcher{client: client, catalog: catalog, kv: kv, db: db, cfg: cfg}
}

// Result is one successful external lookup.
type Result struct {
	Score      float64
	Votes      int64
	ExternalID string
}

// FetchSingle implements spec §4.I's fetch_single: look up videoID's rating,
// skipping it if a 24h failure backoff or 30-day success cache already
// covers it, otherwise calling out and recording the outcome either way.
func (f *Fetcher) FetchSingle(ctx context.Context, videoID string) error {
	if f.backoffActive(videoID) {
		return nil
	}
	if f.cacheFresh(videoID) {
		return nil
	}

	video, found, err := f.catalog.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("rating: load video %s: %w", videoID, err)
	}
	if !found {
		return nil
	}

	title := CleanTitle(video.Name)
	res, err := f.query(ctx, title, video.Year)
	if err != nil || res == nil {
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("video_id", videoID).Msg("rating: lookup failed")
		}
		return f.recordFailure(ctx, videoID)
	}

	if err := f.recordSuccess(ctx, videoID, *res); err != nil {
		return err
	}
	if err := f.catalog.UpdateRating(ctx, videoID, res.Score, sourceName); err != nil {
		return err
	}
	return nil
}

// BatchFetch implements spec §4.I's batch_fetch: up to limit videos without a
// fresh rating, paced 250ms apart between external calls.
func (f *Fetcher) BatchFetch(ctx context.Context, limit int) (int, error) {
	ids, err := f.pendingCandidates(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("rating: list pending candidates: %w", err)
	}

	delay := f.cfg.RequestDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}

	fetched := 0
	for i, id := range ids {
		if err := f.FetchSingle(ctx, id); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("video_id", id).Msg("rating: batch_fetch item failed")
		} else {
			fetched++
		}
		if i < len(ids)-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fetched, ctx.Err()
			}
		}
	}
	return fetched, nil
}

// pendingCandidates returns video IDs with no ratings row yet, or a failed
// row whose retry backoff has elapsed.
func (f *Fetcher) pendingCandidates(ctx context.Context, limit int) ([]string, error) {
	retryAfter := f.cfg.RetryAfter
	if retryAfter <= 0 {
		retryAfter = 24 * time.Hour
	}
	cutoff := time.Now().Add(-retryAfter)

	rows, err := f.db.Conn.QueryContext(ctx, `
		SELECT v.video_id FROM videos v
		LEFT JOIN ratings r ON r.video_id = v.video_id
		WHERE v.is_valid = true
		  AND (r.video_id IS NULL OR (r.status = 'failed' AND r.fetched_at < ?))
		LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (f *Fetcher) recordSuccess(ctx context.Context, videoID string, res Result) error {
	_, err := f.db.Conn.ExecContext(ctx, `
		INSERT INTO ratings (video_id, score, votes, external_id, status, fetched_at)
		VALUES (?, ?, ?, ?, 'success', CURRENT_TIMESTAMP)
		ON CONFLICT (video_id) DO UPDATE SET
			score = EXCLUDED.score, votes = EXCLUDED.votes,
			external_id = EXCLUDED.external_id, status = 'success',
			fetched_at = CURRENT_TIMESTAMP`,
		videoID, res.Score, res.Votes, res.ExternalID)
	if err != nil {
		return fmt.Errorf("rating: record success for %s: %w", videoID, err)
	}
	ttl := f.cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	_ = f.kv.Set(cacheKey(videoID), []byte("1"), ttl)
	return nil
}

func (f *Fetcher) recordFailure(ctx context.Context, videoID string) error {
	_, err := f.db.Conn.ExecContext(ctx, `
		INSERT INTO ratings (video_id, status, fetched_at)
		VALUES (?, 'failed', CURRENT_TIMESTAMP)
		ON CONFLICT (video_id) DO UPDATE SET status = 'failed', fetched_at = CURRENT_TIMESTAMP`,
		videoID)
	if err != nil {
		return fmt.Errorf("rating: record failure for %s: %w", videoID, err)
	}
	return nil
}

func (f *Fetcher) cacheFresh(videoID string) bool {
	_, err := f.kv.Get(cacheKey(videoID))
	return err == nil
}

func (f *Fetcher) backoffActive(videoID string) bool {
	_, err := f.kv.Get(backoffKey(videoID))
	return err == nil
}

func cacheKey(videoID string) string   { return "rating:cache:" + videoID }
func backoffKey(videoID string) string { return "rating:backoff:" + videoID }

// query calls the configured rating API and returns the best match, or nil
// if no candidate survives the +/-1 year verification (spec §4.I).
func (f *Fetcher) query(ctx context.Context, title string, year int) (*Result, error) {
	reqURL := f.buildSearchURL(title)
	body, _, err := f.client.Get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("rating: invalid JSON response")
	}

	results := gjson.GetBytes(body, "results")
	var best *Result
	results.ForEach(func(_, item gjson.Result) bool {
		releaseYear := parseReleaseYear(item.Get("release_date").String())
		if year > 0 && releaseYear > 0 {
			diff := year - releaseYear
			if diff < -1 || diff > 1 {
				return true // keep looking
			}
		}
		best = &Result{
			Score:      item.Get("vote_average").Float(),
			Votes:      item.Get("vote_count").Int(),
			ExternalID: strconv.FormatInt(item.Get("id").Int(), 10),
		}
		return false
	})
	return best, nil
}

func (f *Fetcher) buildSearchURL(title string) string {
	v := url.Values{}
	v.Set("query", title)
	v.Set("api_key", f.cfg.APIKey)
	return f.cfg.BaseURL + "/search/movie?" + v.Encode()
}

func parseReleaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	n, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return n
}
