package model

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want EventKind
	}{
		{"folder discovered", `{"type":"folder_discovered","job_id":"j1","folder":"docs","files":[]}`, EventFolderDiscovered},
		{"scan complete", `{"type":"scan_complete","job_id":"j1","total_files":4}`, EventScanComplete},
		{"file analyzed", `{"type":"file_analyzed","job_id":"j1","path":"a.txt","action":"upload"}`, EventFileAnalyzed},
		{"delete progress", `{"type":"delete_progress","job_id":"j1","deleted":2}`, EventDeleteProgress},
		{"delete complete", `{"type":"delete_complete","job_id":"j1","status":"completed","results":[]}`, EventDeleteComplete},
		{"upload progress dict", `{"job_id":"j1","status":"uploading","files":[]}`, EventUploadProgress},
		{"upload terminal completed", `{"job_id":"j1","status":"completed","results":[]}`, EventUploadTerminal},
		{"upload terminal cancelled", `{"job_id":"j1","status":"cancelled"}`, EventUploadTerminal},
		{"upload terminal failed", `{"job_id":"j1","status":"failed"}`, EventUploadTerminal},
		{"untyped without job id", `{"status":"uploading"}`, EventUnknown},
		{"unknown type", `{"type":"heartbeat"}`, EventUnknown},
		{"not json", `:keep-alive`, EventUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify([]byte(tc.raw)); got != tc.want {
				t.Fatalf("Classify(%s) = %d, want %d", tc.raw, got, tc.want)
			}
		})
	}
}

func TestRowStatusRankOrder(t *testing.T) {
	order := []RowStatus{
		StatusNew,
		StatusAlreadyPresent,
		StatusInProgress,
		StatusQueued,
		StatusCompleted,
		StatusSkipped,
		StatusFailed,
	}

	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Fatalf("expected %q to rank below %q", order[i-1], order[i])
		}
	}
}

func TestRowPatchApplyClamps(t *testing.T) {
	row := Row{Path: "a", Status: StatusNew}

	pct := 120.0
	status := StatusInProgress
	RowPatch{Status: &status, Progress: &pct}.Apply(&row)

	if row.Progress != 100 {
		t.Fatalf("expected clamped progress, got %v", row.Progress)
	}
	if row.Status != StatusInProgress {
		t.Fatalf("unexpected status %q", row.Status)
	}
}
