// Package health probes upstream CMS sources and maintains the rolling
// success-rate / EMA response-time / consecutive-failure counters spec §4.D
// describes, deriving a coarse status each source's consumers (the Collection
// Engine's source-set resolution, the Aggregator's fan-out) can act on cheaply.
package health

import "time"

// Status is one of the five coarse health states spec §3 names for SourceHealth.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusSlow    Status = "slow"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
	StatusUnknown Status = "unknown"
)

// Source is the subset of the `sources` table a probe needs.
type Source struct {
	ID       string
	Name     string
	BaseURL  string
	Weight   int
	Active   bool
	Format   string
	Welfare  bool
}

// Record is the persisted per-source rolling record (spec §3 SourceHealth).
// Invariant: SuccessChecks <= TotalChecks; ConsecutiveFailures resets to 0 on
// any successful check.
type Record struct {
	SourceID            string
	Status              Status
	LastResponseMs       int64
	AvgResponseMs        float64
	SuccessRate          float64
	TotalChecks          int64
	SuccessChecks        int64
	ConsecutiveFailures  int
	LastError            string
	LastErrorAt          time.Time
	LastVideoCount       int
	UpdatedAt            time.Time
}
