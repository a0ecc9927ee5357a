package job

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"batchup/internal/logger"
	"batchup/internal/model"
	"batchup/internal/remote"
	"batchup/internal/store"
	"batchup/internal/stream"
)

// Delete drives one verified-delete job. Ordering is frozen like upload;
// progress events carry counters plus the paths currently in flight.
type Delete struct {
	eng    *engine
	store  *store.Store
	client *remote.Client
	httpc  *http.Client
}

func NewDelete(st *store.Store, cl *remote.Client, sink Sink) *Delete {
	c := &Delete{
		store:  st,
		client: cl,
	}
	c.eng = newEngine(model.JobDelete, sink, st.Unfreeze)
	return c
}

func (c *Delete) Start(ctx context.Context, p remote.DeleteParams) error {
	if err := c.eng.begin(); err != nil {
		return err
	}

	resp, err := c.client.StartDelete(ctx, p)
	if err != nil {
		c.eng.abort()
		return fmt.Errorf("failed to start delete: %w", err)
	}

	c.eng.run(resp.JobID, resp.TotalItems)
	c.store.Freeze()

	logger.Log.Info("delete started",
		zap.String("job_id", resp.JobID),
		zap.Int("files", len(p.Paths)),
		zap.Bool("verify", p.Verify))

	st, err := stream.Open(context.Background(), c.httpc, c.client.EventsURL(resp.JobID), c.handleEvent, c.handleStreamErr, c.handleStreamClose)
	if err != nil {
		c.eng.finish(model.OutcomeFailed, err.Error())
		return fmt.Errorf("failed to subscribe to delete events: %w", err)
	}
	c.eng.attach(st)

	return nil
}

func (c *Delete) Cancel(ctx context.Context) error {
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

func (c *Delete) Running() bool             { return c.eng.Running() }
func (c *Delete) Phase() model.JobPhase     { return c.eng.Phase() }
func (c *Delete) Summary() model.JobSummary { return c.eng.Summary() }

func (c *Delete) handleEvent(data []byte) {
	jobID := c.eng.currentJob()
	if jobID == "" {
		return
	}

	switch model.Classify(data) {
	case model.EventDeleteProgress:
		var ev model.DeleteProgressEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.JobID != jobID {
			return
		}

		for _, path := range ev.InFlight {
			status := model.StatusInProgress
			c.store.Update(path, model.RowPatch{Status: &status})
		}

		c.eng.updateSummary(func(s *model.JobSummary) {
			s.Completed = ev.Deleted
			s.Failed = ev.Failed
		})

	case model.EventDeleteComplete:
		var ev model.DeleteCompleteEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.JobID != jobID {
			return
		}

		patches := make(map[string]model.RowPatch, len(ev.Results))
		for _, r := range ev.Results {
			patches[r.Path] = terminalPatch(r, deleteRowStatus(r.Status))
		}
		c.store.MergeCompletion(patches)

		c.eng.updateSummary(func(s *model.JobSummary) {
			s.Completed = ev.Deleted
			s.Failed = ev.Failed
		})

		c.eng.finish(jobOutcome(ev.Status), "")
	}
}

func (c *Delete) handleStreamErr(err error) {
	c.eng.finish(model.OutcomeFailed, err.Error())
}

func (c *Delete) handleStreamClose() {
	c.eng.finish(model.OutcomeFailed, "stream closed before terminal event")
}
