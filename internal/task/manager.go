package task

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/videocatalog/catalogcore/internal/metrics"
	"github.com/videocatalog/catalogcore/internal/store"
)

// Manager is the Task Manager (spec §4.E). All mutations are persisted
// synchronously — there is no write-behind buffer — so a crash right after a
// mutating call returns never loses the transition.
type Manager struct {
	db *store.DB
}

// NewManager builds a Manager backed by db.
func NewManager(db *store.DB) *Manager {
	return &Manager{db: db}
}

// Create inserts a new pending task and returns it (spec §4.E create).
func (m *Manager) Create(ctx context.Context, kind Kind, cfg Config, priority int) (Task, error) {
	if priority <= 0 {
		priority = 5
	}
	t := Task{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    StatusPending,
		Priority:  priority,
		Config:    cfg,
		Progress:  Progress{},
		CreatedAt: time.Now(),
	}
	cfgJSON, err := json.Marshal(t.Config)
	if err != nil {
		return Task{}, fmt.Errorf("task: marshal config: %w", err)
	}
	progJSON, err := json.Marshal(t.Progress)
	if err != nil {
		return Task{}, fmt.Errorf("task: marshal progress: %w", err)
	}
	_, err = m.db.Conn.ExecContext(ctx, `
		INSERT INTO tasks (id, kind, status, priority, config, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Kind), string(t.Status), t.Priority, string(cfgJSON), string(progJSON), t.CreatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("task: insert: %w", err)
	}
	metrics.TaskTransitions.WithLabelValues("", string(StatusPending)).Inc()
	return t, nil
}

// Get fetches one task by id.
func (m *Manager) Get(ctx context.Context, id string) (Task, bool, error) {
	row := m.db.Conn.QueryRowContext(ctx, taskSelectCols+` WHERE id = ?`, id)
	return scanTask(row)
}

// List returns tasks matching filter, newest first, paginated (spec §4.E list).
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]Task, error) {
	query := taskSelectCols
	var args []interface{}
	var where []string
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY created_at DESC"

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := m.db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("task: list: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, _, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateStatus attempts a state transition (spec §4.E update_status). Returns
// ok=false without mutation if the transition is illegal (invariant P9).
func (m *Manager) UpdateStatus(ctx context.Context, id string, to Status, taskErr string) (bool, error) {
	t, found, err := m.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if !canTransition(t.Status, to) {
		return false, nil
	}

	now := time.Now()
	set := []string{"status = ?"}
	args := []interface{}{string(to)}

	switch to {
	case StatusRunning:
		set = append(set, "started_at = ?")
		args = append(args, now)
	case StatusPaused:
		set = append(set, "paused_at = ?")
		args = append(args, now)
	case StatusCompleted, StatusFailed, StatusCancelled:
		set = append(set, "completed_at = ?")
		args = append(args, now)
	}
	if taskErr != "" {
		set = append(set, "last_error = ?")
		args = append(args, taskErr)
	}

	query := "UPDATE tasks SET " + joinSet(set) + " WHERE id = ?"
	args = append(args, id)
	if _, err := m.db.Conn.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("task: update_status: %w", err)
	}
	metrics.TaskTransitions.WithLabelValues(string(t.Status), string(to)).Inc()
	return true, nil
}

// UpdateProgress merges partial into the task's stored Progress (spec §4.E
// update_progress). Zero-value fields in partial are treated as "no change" for
// the string/int counters the Collection Engine updates incrementally.
func (m *Manager) UpdateProgress(ctx context.Context, id string, partial Progress) error {
	t, found, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("task: %s not found", id)
	}
	merged := mergeProgress(t.Progress, partial)
	progJSON, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("task: marshal progress: %w", err)
	}
	_, err = m.db.Conn.ExecContext(ctx, `UPDATE tasks SET progress = ? WHERE id = ?`, string(progJSON), id)
	if err != nil {
		return fmt.Errorf("task: update_progress: %w", err)
	}
	return nil
}

func mergeProgress(base, partial Progress) Progress {
	if partial.CurrentSourceName != "" {
		base.CurrentSourceName = partial.CurrentSourceName
	}
	if partial.CurrentSourceID != "" {
		base.CurrentSourceID = partial.CurrentSourceID
	}
	if partial.CurrentPage != 0 {
		base.CurrentPage = partial.CurrentPage
	}
	if partial.TotalPages != 0 {
		base.TotalPages = partial.TotalPages
	}
	base.Processed += partial.Processed
	base.New += partial.New
	base.Updated += partial.Updated
	base.Skipped += partial.Skipped
	base.Errors += partial.Errors
	if base.TotalPages > 0 {
		base.Percentage = 100 * float64(base.CurrentPage) / float64(base.TotalPages)
	}
	return base
}

// SaveCheckpoint persists cp against id without altering status, used when a
// cancellation/pause is observed at a page boundary (spec §4.F cancellation
// semantics).
func (m *Manager) SaveCheckpoint(ctx context.Context, id string, cp Checkpoint) error {
	cpJSON, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("task: marshal checkpoint: %w", err)
	}
	_, err = m.db.Conn.ExecContext(ctx, `UPDATE tasks SET checkpoint = ? WHERE id = ?`, string(cpJSON), id)
	if err != nil {
		return fmt.Errorf("task: save_checkpoint: %w", err)
	}
	return nil
}

// Cancel transitions a task to cancelled from pending/running/paused.
func (m *Manager) Cancel(ctx context.Context, id string) (bool, error) {
	return m.UpdateStatus(ctx, id, StatusCancelled, "")
}

// Pause transitions a running task to paused.
func (m *Manager) Pause(ctx context.Context, id string) (bool, error) {
	return m.UpdateStatus(ctx, id, StatusPaused, "")
}

// Resume flips a paused task back to pending so the dispatcher can relaunch it
// from its checkpoint.
func (m *Manager) Resume(ctx context.Context, id string) (bool, error) {
	return m.UpdateStatus(ctx, id, StatusPending, "")
}

// NextPending returns the highest-priority, oldest pending task, or ok=false
// if any task is currently running (invariant P10 dispatcher exclusivity) or
// no task is pending.
func (m *Manager) NextPending(ctx context.Context) (Task, bool, error) {
	var runningCount int
	err := m.db.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE status = ?`, string(StatusRunning)).Scan(&runningCount)
	if err != nil {
		return Task{}, false, fmt.Errorf("task: count running: %w", err)
	}
	if runningCount > 0 {
		return Task{}, false, nil
	}

	row := m.db.Conn.QueryRowContext(ctx, taskSelectCols+`
		WHERE status = ?
		ORDER BY priority DESC, created_at ASC
		LIMIT 1`, string(StatusPending))
	return scanTask(row)
}

// CleanupOld deletes completed/failed/cancelled tasks older than retentionDays
// (spec §4.E cleanup_old). Returns the number of rows removed.
func (m *Manager) CleanupOld(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res, err := m.db.Conn.ExecContext(ctx, `
		DELETE FROM tasks
		WHERE status IN (?, ?, ?) AND completed_at IS NOT NULL AND completed_at < ?`,
		string(StatusCompleted), string(StatusFailed), string(StatusCancelled), cutoff)
	if err != nil {
		return 0, fmt.Errorf("task: cleanup_old: %w", err)
	}
	return res.RowsAffected()
}

const taskSelectCols = `
SELECT id, kind, status, priority, config, progress, checkpoint, last_error,
       created_at, started_at, paused_at, completed_at
FROM tasks`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (Task, bool, error) {
	var (
		t                                    Task
		kindStr, statusStr                   string
		cfgJSON, progJSON                    string
		cpJSON, lastError                    sql.NullString
		startedAt, pausedAt, completedAt     sql.NullTime
	)
	err := row.Scan(&t.ID, &kindStr, &statusStr, &t.Priority, &cfgJSON, &progJSON, &cpJSON, &lastError,
		&t.CreatedAt, &startedAt, &pausedAt, &completedAt)
	if err == sql.ErrNoRows {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("task: scan: %w", err)
	}
	t.Kind = Kind(kindStr)
	t.Status = Status(statusStr)
	t.LastError = lastError.String
	if err := json.Unmarshal([]byte(cfgJSON), &t.Config); err != nil {
		return Task{}, false, fmt.Errorf("task: unmarshal config: %w", err)
	}
	if err := json.Unmarshal([]byte(progJSON), &t.Progress); err != nil {
		return Task{}, false, fmt.Errorf("task: unmarshal progress: %w", err)
	}
	if cpJSON.Valid && cpJSON.String != "" {
		var cp Checkpoint
		if err := json.Unmarshal([]byte(cpJSON.String), &cp); err != nil {
			return Task{}, false, fmt.Errorf("task: unmarshal checkpoint: %w", err)
		}
		t.Checkpoint = &cp
	}
	if startedAt.Valid {
		t.StartedAt = &startedAt.Time
	}
	if pausedAt.Valid {
		t.PausedAt = &pausedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, true, nil
}

func joinSet(clauses []string) string {
	out := ""
	for i, c := range clauses {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
