package job

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"batchup/internal/logger"
	"batchup/internal/model"
	"batchup/internal/remote"
	"batchup/internal/store"
	"batchup/internal/stream"
)

// Upload drives one upload job. The stream multiplexes two phases: typed
// analysis events while the executor classifies files, then untyped
// progress dictionaries once transfers are underway. Row ordering is frozen
// for the duration of the job so progress updates do not reshuffle the view.
type Upload struct {
	eng    *engine
	store  *store.Store
	client *remote.Client
	httpc  *http.Client
}

func NewUpload(st *store.Store, cl *remote.Client, sink Sink) *Upload {
	c := &Upload{
		store:  st,
		client: cl,
	}
	c.eng = newEngine(model.JobUpload, sink, st.Unfreeze)
	return c
}

func (c *Upload) Start(ctx context.Context, p remote.UploadParams) error {
	if err := c.eng.begin(); err != nil {
		return err
	}

	resp, err := c.client.StartUpload(ctx, p)
	if err != nil {
		c.eng.abort()
		return fmt.Errorf("failed to start upload: %w", err)
	}

	c.eng.run(resp.JobID, resp.TotalItems)
	c.store.Freeze()

	logger.Log.Info("upload started",
		zap.String("job_id", resp.JobID),
		zap.Int("files", len(p.Paths)))

	st, err := stream.Open(context.Background(), c.httpc, c.client.EventsURL(resp.JobID), c.handleEvent, c.handleStreamErr, c.handleStreamClose)
	if err != nil {
		c.eng.finish(model.OutcomeFailed, err.Error())
		return fmt.Errorf("failed to subscribe to upload events: %w", err)
	}
	c.eng.attach(st)

	return nil
}

func (c *Upload) Cancel(ctx context.Context) error {
	id := c.eng.currentJob()
	if id == "" {
		return nil
	}

	c.eng.markCancelRequested()
	if err := c.client.Cancel(ctx, id); err != nil {
		c.eng.finish(model.OutcomeCancelled, "cancel call failed: "+err.Error())
		return err
	}

	return nil
}

func (c *Upload) Running() bool             { return c.eng.Running() }
func (c *Upload) Phase() model.JobPhase     { return c.eng.Phase() }
func (c *Upload) Summary() model.JobSummary { return c.eng.Summary() }

func (c *Upload) handleEvent(data []byte) {
	jobID := c.eng.currentJob()
	if jobID == "" {
		return
	}

	switch model.Classify(data) {
	case model.EventFileAnalyzed:
		var ev model.FileAnalyzedEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.JobID != jobID {
			return
		}
		c.applyAnalysis(ev)

	case model.EventUploadProgress:
		var ev model.UploadProgressEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.JobID != jobID {
			return
		}
		c.applyProgress(ev)

	case model.EventUploadTerminal:
		var ev model.UploadProgressEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.JobID != jobID {
			return
		}
		c.applyTerminal(ev)
	}
}

func (c *Upload) applyAnalysis(ev model.FileAnalyzedEvent) {
	status := model.StatusInProgress
	if ev.Action == "skip" {
		status = model.StatusSkipped
	}
	c.store.Update(ev.Path, model.RowPatch{Status: &status})
}

func (c *Upload) applyProgress(ev model.UploadProgressEvent) {
	for _, f := range ev.Files {
		status := uploadRowStatus(f.Status)
		pct := f.Percent
		c.store.Update(f.Path, model.RowPatch{
			Status:   &status,
			Progress: &pct,
		})
	}

	c.eng.updateSummary(func(s *model.JobSummary) {
		s.BytesDone = ev.BytesSent
		if ev.BytesTotal > 0 {
			s.BytesTotal = ev.BytesTotal
		}
		s.Completed = ev.Completed
		s.Skipped = ev.Skipped
		s.Failed = ev.Failed
	})
}

func (c *Upload) applyTerminal(ev model.UploadProgressEvent) {
	patches := make(map[string]model.RowPatch, len(ev.Results))
	for _, r := range ev.Results {
		patches[r.Path] = terminalPatch(r, uploadRowStatus(r.Status))
	}
	c.store.MergeCompletion(patches)

	c.eng.updateSummary(func(s *model.JobSummary) {
		s.BytesDone = ev.BytesSent
		if ev.BytesTotal > 0 {
			s.BytesTotal = ev.BytesTotal
		}
		s.Completed = ev.Completed
		s.Skipped = ev.Skipped
		s.Failed = ev.Failed
	})

	c.eng.finish(jobOutcome(ev.Status), "")
}

func (c *Upload) handleStreamErr(err error) {
	c.eng.finish(model.OutcomeFailed, err.Error())
}

func (c *Upload) handleStreamClose() {
	c.eng.finish(model.OutcomeFailed, "stream closed before terminal event")
}

// terminalPatch maps one executor file result onto a final row patch.
func terminalPatch(r model.FileResult, status model.RowStatus) model.RowPatch {
	patch := model.RowPatch{Status: &status}

	dur := time.Duration(r.DurationMS) * time.Millisecond
	patch.Duration = &dur
	tp := r.Throughput
	patch.Throughput = &tp

	if status == model.StatusCompleted {
		full := 100.0
		patch.Progress = &full
		if r.RemotePath != "" {
			rp := r.RemotePath
			patch.RemotePath = &rp
		}
	}
	if r.Error != "" {
		msg := r.Error
		patch.ErrMsg = &msg
	}

	return patch
}

func jobOutcome(status string) model.JobOutcome {
	switch status {
	case "completed":
		return model.OutcomeCompleted
	case "cancelled":
		return model.OutcomeCancelled
	default:
		return model.OutcomeFailed
	}
}
