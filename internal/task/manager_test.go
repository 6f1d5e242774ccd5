package task

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/videocatalog/catalogcore/internal/config"
	"github.com/videocatalog/catalogcore/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(config.StorageConfig{DuckDBPath: filepath.Join(dir, "test.duckdb")})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewManager(db)
}

func TestCreateAndGet(t *testing.T) {
	m := newTestManager(t)
	created, err := m.Create(context.Background(), KindFull, Config{PageEnd: -1}, 0)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Priority != 5 {
		t.Errorf("Priority = %d, want default 5", created.Priority)
	}
	if created.Status != StatusPending {
		t.Errorf("Status = %v, want pending", created.Status)
	}

	got, found, err := m.Get(context.Background(), created.ID)
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v, %v", got, found, err)
	}
	if got.Config.PageEnd != -1 {
		t.Errorf("Config.PageEnd = %d, want -1", got.Config.PageEnd)
	}
}

func TestUpdateStatusEnforcesStateMachine(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	created, _ := m.Create(ctx, KindFull, Config{}, 5)

	ok, err := m.UpdateStatus(ctx, created.ID, StatusCompleted, "")
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if ok {
		t.Fatal("pending -> completed should be rejected")
	}

	ok, err = m.UpdateStatus(ctx, created.ID, StatusRunning, "")
	if err != nil || !ok {
		t.Fatalf("pending -> running should succeed: ok=%v err=%v", ok, err)
	}

	ok, err = m.UpdateStatus(ctx, created.ID, StatusCompleted, "")
	if err != nil || !ok {
		t.Fatalf("running -> completed should succeed: ok=%v err=%v", ok, err)
	}

	ok, err = m.UpdateStatus(ctx, created.ID, StatusPending, "")
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if ok {
		t.Fatal("completed is terminal, no transitions should succeed")
	}
}

func TestNextPendingExclusivity(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	a, _ := m.Create(ctx, KindFull, Config{}, 5)
	_, _ = m.Create(ctx, KindIncremental, Config{}, 8)

	next, ok, err := m.NextPending(ctx)
	if err != nil || !ok {
		t.Fatalf("NextPending() = %v, %v, %v", next, ok, err)
	}
	if next.Priority != 8 {
		t.Errorf("Priority = %d, want 8 (highest priority first)", next.Priority)
	}

	if ok, err := m.UpdateStatus(ctx, a.ID, StatusRunning, ""); err != nil || !ok {
		t.Fatalf("UpdateStatus(running) = %v, %v", ok, err)
	}

	_, ok, err = m.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending() error = %v", err)
	}
	if ok {
		t.Fatal("NextPending() should report false while a task is running")
	}
}

func TestUpdateProgressAccumulatesCounters(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	created, _ := m.Create(ctx, KindFull, Config{}, 5)

	if err := m.UpdateProgress(ctx, created.ID, Progress{Processed: 10, New: 3, CurrentPage: 2, TotalPages: 5}); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	if err := m.UpdateProgress(ctx, created.ID, Progress{Processed: 5, New: 1}); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}

	got, _, _ := m.Get(ctx, created.ID)
	if got.Progress.Processed != 15 || got.Progress.New != 4 {
		t.Errorf("Progress = %+v, want accumulated Processed=15 New=4", got.Progress)
	}
	if got.Progress.CurrentPage != 2 {
		t.Errorf("CurrentPage = %d, want 2 (preserved from the first partial update)", got.Progress.CurrentPage)
	}
}

func TestPauseResumeRoundTripsThroughCheckpoint(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	created, _ := m.Create(ctx, KindFull, Config{}, 5)
	if _, err := m.UpdateStatus(ctx, created.ID, StatusRunning, ""); err != nil {
		t.Fatalf("UpdateStatus(running) error = %v", err)
	}

	if err := m.SaveCheckpoint(ctx, created.ID, Checkpoint{SourceIndex: 1, Page: 7}); err != nil {
		t.Fatalf("SaveCheckpoint() error = %v", err)
	}
	if ok, err := m.Pause(ctx, created.ID); err != nil || !ok {
		t.Fatalf("Pause() = %v, %v", ok, err)
	}
	if ok, err := m.Resume(ctx, created.ID); err != nil || !ok {
		t.Fatalf("Resume() = %v, %v", ok, err)
	}

	got, _, _ := m.Get(ctx, created.ID)
	if got.Status != StatusPending {
		t.Errorf("Status = %v, want pending after resume", got.Status)
	}
	if got.Checkpoint == nil || got.Checkpoint.SourceIndex != 1 || got.Checkpoint.Page != 7 {
		t.Errorf("Checkpoint = %+v, want {SourceIndex:1 Page:7}", got.Checkpoint)
	}
}

func TestCleanupOldRemovesOnlyOldTerminalTasks(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	recent, _ := m.Create(ctx, KindFull, Config{}, 5)
	if _, err := m.UpdateStatus(ctx, recent.ID, StatusCancelled, ""); err != nil {
		t.Fatalf("UpdateStatus(cancelled) error = %v", err)
	}

	n, err := m.CleanupOld(ctx, 30)
	if err != nil {
		t.Fatalf("CleanupOld() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CleanupOld() removed %d rows, want 0 (task completed_at is recent)", n)
	}

	if _, found, _ := m.Get(ctx, recent.ID); !found {
		t.Error("recently-cancelled task should survive a 30-day cleanup")
	}
}
