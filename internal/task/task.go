// Package task is the Task Manager: it owns the collection task lifecycle
// (create/get/list/update_status/update_progress/cancel/pause/resume/
// next_pending/cleanup_old) and enforces the state machine and single-running
// invariant spec §3/§4.E describe. Tasks are persisted synchronously to the
// DuckDB `tasks` table; Config/Progress/Checkpoint are stored as JSON columns,
// encoded with goccy/go-json (the teacher's encoding/json drop-in).
package task

import "time"

// Kind is one of the five collection task kinds.
type Kind string

const (
	KindFull        Kind = "full"
	KindIncremental Kind = "incremental"
	KindCategory    Kind = "category"
	KindSource      Kind = "source"
	KindShorts      Kind = "shorts"
)

// Status is a task's position in the state machine (spec §3 Task).
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Config is the operator-supplied scope for a task (spec §3 Task.config).
// PageEnd = -1 means "all pages".
type Config struct {
	SourceIDs   []string `json:"source_ids,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
	PageStart   int      `json:"page_start"`
	PageEnd     int      `json:"page_end"`
	MaxVideos   int      `json:"max_videos"`
	SkipExisting bool    `json:"skip_existing"`
}

// Progress is the task's running counters (spec §3 Task.progress).
type Progress struct {
	CurrentSourceName string  `json:"current_source_name"`
	CurrentSourceID   string  `json:"current_source_id"`
	CurrentPage       int     `json:"current_page"`
	TotalPages        int     `json:"total_pages"`
	Processed         int     `json:"processed"`
	New               int     `json:"new"`
	Updated           int     `json:"updated"`
	Skipped           int     `json:"skipped"`
	Errors            int     `json:"errors"`
	Percentage        float64 `json:"percentage"`
}

// Checkpoint lets a paused/cancelled task resume where it left off (spec §3
// Task.checkpoint, spec scenario 6).
type Checkpoint struct {
	SourceIndex int       `json:"source_index"`
	Page        int       `json:"page"`
	LastVideoID string    `json:"last_video_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// Task is the full persisted record.
type Task struct {
	ID          string
	Kind        Kind
	Status      Status
	Priority    int
	Config      Config
	Progress    Progress
	Checkpoint  *Checkpoint
	LastError   string
	CreatedAt   time.Time
	StartedAt   *time.Time
	PausedAt    *time.Time
	CompletedAt *time.Time
}

// ListFilter narrows Manager.List (spec §4.E list({status,kind,page})).
type ListFilter struct {
	Status Status
	Kind   Kind
	Page   int
	PageSize int
}
