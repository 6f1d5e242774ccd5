package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/cleaner"
	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/health"
	"github.com/videocatalog/catalogcore/internal/recommend"
	"github.com/videocatalog/catalogcore/internal/task"
)

type fakeHits struct {
	flushed    int
	aggregated int
}

func (f *fakeHits) ForceFlush(_ context.Context) error    { f.flushed++; return nil }
func (f *fakeHits) AggregateHits(_ context.Context) error { f.aggregated++; return nil }

type fakeSearch struct{ rebuilt int }

func (f *fakeSearch) Rebuild(_ context.Context) error { f.rebuilt++; return nil }

type fakeTrending struct{ calls []int }

func (f *fakeTrending) Recommend(_ context.Context, req recommend.Request) recommend.Response {
	f.calls = append(f.calls, req.TypeID)
	return recommend.Response{Strategy: req.Strategy}
}

type fakePrecompute struct{ ran int }

func (f *fakePrecompute) Precompute(_ context.Context) error { f.ran++; return nil }

type fakeTasks struct {
	created  []task.Kind
	cleanups int
}

func (f *fakeTasks) Create(_ context.Context, kind task.Kind, _ task.Config, _ int) (task.Task, error) {
	f.created = append(f.created, kind)
	return task.Task{Kind: kind}, nil
}
func (f *fakeTasks) CleanupOld(_ context.Context, _ int) (int64, error) {
	f.cleanups++
	return 0, nil
}

type fakeHealth struct {
	records []health.Record
	calls   int
}

func (f *fakeHealth) CheckAll(_ context.Context) ([]health.Record, error) {
	f.calls++
	return f.records, nil
}

type fakeMaint struct {
	candidates       []catalogstore.Video
	invalidated      []string
	touched          []string
	deletedStale     int64
	deletedAccessLog int64
	merged           int
}

func (f *fakeMaint) ValidationCandidates(_ context.Context, _ int) ([]catalogstore.Video, error) {
	return f.candidates, nil
}
func (f *fakeMaint) MarkInvalid(_ context.Context, videoID string) error {
	f.invalidated = append(f.invalidated, videoID)
	return nil
}
func (f *fakeMaint) TouchValidated(_ context.Context, videoID string) error {
	f.touched = append(f.touched, videoID)
	return nil
}
func (f *fakeMaint) DeleteStaleInvalid(_ context.Context, _ int) (int64, error) {
	return f.deletedStale, nil
}
func (f *fakeMaint) DeleteOldAccessLog(_ context.Context, _ int) (int64, error) {
	return f.deletedAccessLog, nil
}
func (f *fakeMaint) CleanupDuplicates(_ context.Context) (int, error) { return f.merged, nil }

type fakeProber struct {
	statuses map[string]int
}

func (f *fakeProber) Probe(_ context.Context, rawURL string) (int, error) {
	if status, ok := f.statuses[rawURL]; ok {
		return status, nil
	}
	return 200, nil
}

type fakeAlert struct {
	posts int
	lastURL string
}

func (f *fakeAlert) Post(_ context.Context, rawURL string, _ interface{}) (int, error) {
	f.posts++
	f.lastURL = rawURL
	return 200, nil
}

type fakeRating struct {
	calls   int
	fetched int
}

func (f *fakeRating) BatchFetch(_ context.Context, _ int) (int, error) {
	f.calls++
	return f.fetched, nil
}

func newTestScheduler() (*Scheduler, *fakeHits, *fakeSearch, *fakeTrending, *fakePrecompute, *fakeTasks, *fakeHealth, *fakeMaint, *fakeProber, *fakeAlert, *fakeRating) {
	h, se, tr, pc, ta, he, ma, pr, al, ra :=
		&fakeHits{}, &fakeSearch{}, &fakeTrending{}, &fakePrecompute{}, &fakeTasks{}, &fakeHealth{}, &fakeMaint{}, &fakeProber{statuses: map[string]int{}}, &fakeAlert{}, &fakeRating{}
	cfg := config.SchedulerConfig{
		HourlyMaxPages: 3, HourlyMaxVideos: 100,
		DailyMaxPages: 10, DailyMaxVideos: 500,
		URLValidationBatch: 100, RatingBatchSize: 50, InvalidRetentionDays: 30,
		AccessLogRetainDays: 30, TaskRetentionDays: 30,
		AlertWebhookURL: "https://alerts.example.com/hook",
	}
	return New(h, se, tr, pc, ta, he, ma, pr, al, ra, cfg), h, se, tr, pc, ta, he, ma, pr, al, ra
}

func TestDueRoutinesMatchesEachTriggerIndependently(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want []routine
	}{
		{"plain hourly tick", time.Date(2026, 7, 29, 14, 0, 0, 0, time.UTC), []routine{routineHourly}},
		{"daily tick at 02:00", time.Date(2026, 7, 29, 2, 0, 0, 0, time.UTC), []routine{routineDaily, routineHourly}},
		{"weekly tick Sunday 03:00", time.Date(2026, 8, 2, 3, 0, 0, 0, time.UTC), []routine{routineWeekly, routineHourly}},
		{"alert tick at 06:00", time.Date(2026, 7, 29, 6, 0, 0, 0, time.UTC), []routine{routineHourly, routineAlert}},
		{"off-minute does nothing", time.Date(2026, 7, 29, 14, 30, 0, 0, time.UTC), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := dueRoutines(tc.now)
			if len(got) != len(tc.want) {
				t.Fatalf("dueRoutines(%v) = %v, want %v", tc.now, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("dueRoutines(%v) = %v, want %v", tc.now, got, tc.want)
				}
			}
		})
	}
}

func TestRunHourlyFlushesWarmsAndEnqueuesIncremental(t *testing.T) {
	s, h, se, tr, _, ta, _, _, _, _, _ := newTestScheduler()
	ctx := context.Background()

	s.run(ctx, time.Date(2026, 7, 29, 14, 0, 0, 0, time.UTC))

	if h.flushed != 1 || h.aggregated != 1 {
		t.Fatalf("expected hit tracker to flush+aggregate once, got flushed=%d aggregated=%d", h.flushed, h.aggregated)
	}
	if se.rebuilt != 1 {
		t.Fatalf("expected search rebuild once, got %d", se.rebuilt)
	}
	if len(tr.calls) != len(warmTypeIDs) {
		t.Fatalf("expected trending warm for every warmTypeIDs entry, got %v", tr.calls)
	}
	if len(ta.created) != 1 || ta.created[0] != task.KindIncremental {
		t.Fatalf("expected one incremental task, got %v", ta.created)
	}
}

func TestRunDailyValidatesURLsAndRunsHealthSweep(t *testing.T) {
	s, _, _, _, _, ta, he, ma, pr, _, ra := newTestScheduler()
	ctx := context.Background()

	ma.candidates = []catalogstore.Video{
		{VideoID: "ok", PlayURLs: cleaner.PlayURLs{"m3u8": []cleaner.Episode{{URL: "https://good.example.com/ok.m3u8"}}}},
		{VideoID: "dead", PlayURLs: cleaner.PlayURLs{"m3u8": []cleaner.Episode{{URL: "https://dead.example.com/gone.m3u8"}}}},
	}
	pr.statuses["https://dead.example.com/gone.m3u8"] = 404

	s.run(ctx, time.Date(2026, 7, 29, 2, 0, 0, 0, time.UTC))

	if len(ta.created) != 1 || ta.created[0] != task.KindIncremental {
		t.Fatalf("expected one incremental task, got %v", ta.created)
	}
	if he.calls != 1 {
		t.Fatalf("expected one health check_all, got %d", he.calls)
	}
	if len(ma.invalidated) != 1 || ma.invalidated[0] != "dead" {
		t.Fatalf("expected only the dead video marked invalid, got %v", ma.invalidated)
	}
	if len(ma.touched) != 1 || ma.touched[0] != "ok" {
		t.Fatalf("expected the healthy video touched, got %v", ma.touched)
	}
	if ra.calls != 1 {
		t.Fatalf("expected one rating batch_fetch, got %d", ra.calls)
	}
}

func TestRunWeeklyRunsFullMaintenanceSweep(t *testing.T) {
	s, _, se, _, pc, ta, _, ma, _, _, _ := newTestScheduler()
	ctx := context.Background()
	ma.merged = 2
	ma.deletedStale = 5

	s.run(ctx, time.Date(2026, 8, 2, 3, 0, 0, 0, time.UTC))

	if len(ta.created) != 1 || ta.created[0] != task.KindFull {
		t.Fatalf("expected one full task, got %v", ta.created)
	}
	if se.rebuilt != 1 {
		t.Fatalf("expected one search rebuild, got %d", se.rebuilt)
	}
	if pc.ran != 1 {
		t.Fatalf("expected one recommend precompute, got %d", pc.ran)
	}
	if ta.cleanups != 1 {
		t.Fatalf("expected one task cleanup, got %d", ta.cleanups)
	}
}

func TestRunAlertPostsOnlyWhenNotAllHealthy(t *testing.T) {
	s, _, _, _, _, _, he, _, _, al, _ := newTestScheduler()
	ctx := context.Background()

	he.records = []health.Record{{SourceID: "a", Status: health.StatusHealthy}}
	s.run(ctx, time.Date(2026, 7, 29, 6, 0, 0, 0, time.UTC))
	if al.posts != 0 {
		t.Fatalf("expected no alert post when all sources are healthy, got %d", al.posts)
	}

	he.records = []health.Record{{SourceID: "a", Status: health.StatusError}}
	s.run(ctx, time.Date(2026, 7, 29, 6, 0, 0, 0, time.UTC))
	if al.posts != 1 {
		t.Fatalf("expected one alert post once a source is unhealthy, got %d", al.posts)
	}
}

func TestRunAlertSkipsPostWhenNoWebhookConfigured(t *testing.T) {
	s, _, _, _, _, _, he, _, _, al, _ := newTestScheduler()
	s.cfg.AlertWebhookURL = ""
	ctx := context.Background()
	he.records = []health.Record{{SourceID: "a", Status: health.StatusError}}

	s.run(ctx, time.Date(2026, 7, 29, 6, 0, 0, 0, time.UTC))
	if al.posts != 0 {
		t.Fatalf("expected no post without a configured webhook, got %d", al.posts)
	}
}
