package job

import "batchup/internal/model"

// Per-kind mapping from executor file statuses onto store statuses. From a
// row's perspective an aborted transfer is indistinguishable from a failed
// one, so "cancelled" maps to FAILED.

func uploadRowStatus(s string) model.RowStatus {
	switch s {
	case "pending", "queued":
		return model.StatusQueued
	case "analyzing", "uploading":
		return model.StatusInProgress
	case "completed", "uploaded":
		return model.StatusCompleted
	case "skipped":
		return model.StatusSkipped
	case "failed", "cancelled":
		return model.StatusFailed
	default:
		return model.StatusInProgress
	}
}

func deleteRowStatus(s string) model.RowStatus {
	switch s {
	case "pending", "queued":
		return model.StatusQueued
	case "deleting", "verifying":
		return model.StatusInProgress
	case "deleted", "verified":
		return model.StatusCompleted
	case "skipped":
		return model.StatusSkipped
	case "failed", "cancelled":
		return model.StatusFailed
	default:
		return model.StatusInProgress
	}
}

func scanRowStatus(present bool) model.RowStatus {
	if present {
		return model.StatusAlreadyPresent
	}
	return model.StatusNew
}
