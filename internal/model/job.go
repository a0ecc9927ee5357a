package model

import "time"

type JobKind string

const (
	JobScan   JobKind = "SCAN"
	JobUpload JobKind = "UPLOAD"
	JobDelete JobKind = "DELETE"
)

type JobPhase string

const (
	PhaseIdle     JobPhase = "IDLE"
	PhaseStarting JobPhase = "STARTING"
	PhaseRunning  JobPhase = "RUNNING"
)

type JobOutcome string

const (
	OutcomeNone      JobOutcome = ""
	OutcomeCompleted JobOutcome = "COMPLETED"
	OutcomeFailed    JobOutcome = "FAILED"
	OutcomeCancelled JobOutcome = "CANCELLED"
)

// JobSummary aggregates one job's counters. It is mutated only by the
// controller that owns the job and becomes immutable once Outcome is set.
type JobSummary struct {
	Kind       JobKind    `json:"kind"`
	JobID      string     `json:"job_id"`
	Outcome    JobOutcome `json:"outcome"`
	TotalItems int        `json:"total_items"`
	Completed  int        `json:"completed"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	BytesDone  int64      `json:"bytes_done"`
	BytesTotal int64      `json:"bytes_total"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Cancelled  bool       `json:"cancelled"`
	ErrMsg     string     `json:"err_msg,omitempty"`
}

func (s JobSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
