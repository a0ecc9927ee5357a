package model

import "encoding/json"

// Wire payloads pushed by the executor over a job's event stream. Scan and
// delete payloads carry a "type" discriminator; the upload progress
// dictionary does not (the executor omits it to keep the periodic snapshots
// small), so classification runs through an ordered predicate table instead
// of scattered field checks.

type EventKind int

const (
	EventUnknown EventKind = iota
	EventFolderDiscovered
	EventScanComplete
	EventFileAnalyzed
	EventUploadProgress
	EventUploadTerminal
	EventDeleteProgress
	EventDeleteComplete
)

const (
	typeFolderDiscovered = "folder_discovered"
	typeScanComplete     = "scan_complete"
	typeFileAnalyzed     = "file_analyzed"
	typeDeleteProgress   = "delete_progress"
	typeDeleteComplete   = "delete_complete"
)

type FolderDiscoveredEvent struct {
	Type   string           `json:"type"`
	JobID  string           `json:"job_id"`
	Folder string           `json:"folder"`
	Files  []DiscoveredFile `json:"files"`
}

type ScanCompleteEvent struct {
	Type         string `json:"type"`
	JobID        string `json:"job_id"`
	TotalFiles   int    `json:"total_files"`
	TotalBytes   int64  `json:"total_bytes"`
	NewFiles     int    `json:"new_files"`
	PresentFiles int    `json:"present_files"`
}

type FileAnalyzedEvent struct {
	Type   string `json:"type"`
	JobID  string `json:"job_id"`
	Path   string `json:"path"`
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

type UploadFileProgress struct {
	Path      string  `json:"path"`
	Status    string  `json:"status"`
	Percent   float64 `json:"percent"`
	BytesSent int64   `json:"bytes_sent"`
}

// UploadProgressEvent is the untyped dictionary shape. Periodic snapshots
// carry the active file list and cumulative counters; the terminal snapshot
// additionally carries the full per-file result list and a terminal
// job-level status.
type UploadProgressEvent struct {
	JobID      string               `json:"job_id"`
	Status     string               `json:"status"`
	Files      []UploadFileProgress `json:"files,omitempty"`
	Results    []FileResult         `json:"results,omitempty"`
	BytesSent  int64                `json:"bytes_sent"`
	BytesTotal int64                `json:"bytes_total"`
	Completed  int                  `json:"completed"`
	Skipped    int                  `json:"skipped"`
	Failed     int                  `json:"failed"`
}

type DeleteProgressEvent struct {
	Type     string   `json:"type"`
	JobID    string   `json:"job_id"`
	Deleted  int      `json:"deleted"`
	Failed   int      `json:"failed"`
	InFlight []string `json:"in_flight,omitempty"`
}

type DeleteCompleteEvent struct {
	Type    string       `json:"type"`
	JobID   string       `json:"job_id"`
	Status  string       `json:"status"`
	Results []FileResult `json:"results"`
	Deleted int          `json:"deleted"`
	Failed  int          `json:"failed"`
}

type envelope struct {
	Type   string `json:"type"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// TerminalUploadStatus reports whether a job-level upload status ends the
// stream.
func TerminalUploadStatus(status string) bool {
	switch status {
	case "completed", "failed", "cancelled":
		return true
	}
	return false
}

// Classify resolves a raw payload to its event kind. Predicates run in a
// fixed order: the "type" discriminator wins when present; an untyped
// payload naming a job id is an upload dictionary, terminal when its
// job-level status is terminal. Anything else is unknown and gets dropped
// by the caller.
func Classify(raw []byte) EventKind {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return EventUnknown
	}

	switch env.Type {
	case typeFolderDiscovered:
		return EventFolderDiscovered
	case typeScanComplete:
		return EventScanComplete
	case typeFileAnalyzed:
		return EventFileAnalyzed
	case typeDeleteProgress:
		return EventDeleteProgress
	case typeDeleteComplete:
		return EventDeleteComplete
	}

	if env.Type == "" && env.JobID != "" {
		if TerminalUploadStatus(env.Status) {
			return EventUploadTerminal
		}
		return EventUploadProgress
	}

	return EventUnknown
}
