package model

import "time"

type RowStatus string

const (
	StatusNew            RowStatus = "NEW"
	StatusAlreadyPresent RowStatus = "ALREADY_PRESENT"
	StatusInProgress     RowStatus = "IN_PROGRESS"
	StatusQueued         RowStatus = "QUEUED"
	StatusCompleted      RowStatus = "COMPLETED"
	StatusSkipped        RowStatus = "SKIPPED"
	StatusFailed         RowStatus = "FAILED"
)

// Rank orders statuses by lifecycle stage instead of alphabetically, so
// sorting by status clusters rows predictably.
func (s RowStatus) Rank() int {
	switch s {
	case StatusNew:
		return 0
	case StatusAlreadyPresent:
		return 1
	case StatusInProgress:
		return 2
	case StatusQueued:
		return 3
	case StatusCompleted:
		return 4
	case StatusSkipped:
		return 5
	case StatusFailed:
		return 6
	default:
		return 7
	}
}

// Row is one file under management. Path is its identity for the whole job
// cycle; descriptive fields are fixed at discovery, lifecycle fields mutate
// through store updates only.
type Row struct {
	Path    string
	Name    string
	Folder  string
	Size    int64
	ModTime time.Time

	Status     RowStatus
	Progress   float64
	RemotePath string
	Duration   time.Duration
	Throughput float64
	ErrMsg     string
}

// RowPatch carries a partial update for a row. Nil fields are left untouched.
type RowPatch struct {
	Status     *RowStatus
	Progress   *float64
	RemotePath *string
	Duration   *time.Duration
	Throughput *float64
	ErrMsg     *string
}

func (p RowPatch) Apply(r *Row) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Progress != nil {
		pct := *p.Progress
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		r.Progress = pct
	}
	if p.RemotePath != nil {
		r.RemotePath = *p.RemotePath
	}
	if p.Duration != nil {
		r.Duration = *p.Duration
	}
	if p.Throughput != nil {
		r.Throughput = *p.Throughput
	}
	if p.ErrMsg != nil {
		r.ErrMsg = *p.ErrMsg
	}
}

// DiscoveredFile is one file reported by the executor's scan walk.
type DiscoveredFile struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Present bool      `json:"already_present"`
}

// DiscoveryBatch is one folder's worth of discovered files, delivered
// incrementally while the executor walks the tree.
type DiscoveryBatch struct {
	Folder string           `json:"folder"`
	Files  []DiscoveredFile `json:"files"`
}

// FileResult is the executor's final verdict for one file, carried by
// terminal events.
type FileResult struct {
	Path       string  `json:"path"`
	Status     string  `json:"status"`
	RemotePath string  `json:"remote_path,omitempty"`
	Bytes      int64   `json:"bytes"`
	DurationMS int64   `json:"duration_ms"`
	Throughput float64 `json:"throughput"`
	Error      string  `json:"error,omitempty"`
}
