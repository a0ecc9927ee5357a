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

// Scan drives one scan job: the executor walks the remote folder tree and
// reports discovered files folder by folder, so the store fills in while
// the walk is still running.
type Scan struct {
	eng    *engine
	store  *store.Store
	client *remote.Client
	httpc  *http.Client
}

func NewScan(st *store.Store, cl *remote.Client, sink Sink) *Scan {
	return &Scan{
		eng:    newEngine(model.JobScan, sink, nil),
		store:  st,
		client: cl,
	}
}

func (c *Scan) Start(ctx context.Context, p remote.ScanParams) error {
	if err := c.eng.begin(); err != nil {
		return err
	}

	resp, err := c.client.StartScan(ctx, p)
	if err != nil {
		c.eng.abort()
		return fmt.Errorf("failed to start scan: %w", err)
	}

	// A new scan supersedes the previous row cycle entirely.
	c.store.Clear()
	c.eng.run(resp.JobID, resp.TotalItems)

	logger.Log.Info("scan started",
		zap.String("job_id", resp.JobID),
		zap.String("folder", p.Folder))

	st, err := stream.Open(context.Background(), c.httpc, c.client.EventsURL(resp.JobID), c.handleEvent, c.handleStreamErr, c.handleStreamClose)
	if err != nil {
		c.eng.finish(model.OutcomeFailed, err.Error())
		return fmt.Errorf("failed to subscribe to scan events: %w", err)
	}
	c.eng.attach(st)

	return nil
}

// Cancel requests cooperative cancellation. Only a failed cancel call
// forces a local terminal transition; otherwise the executor's terminal
// event ends the job.
func (c *Scan) Cancel(ctx context.Context) error {
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

func (c *Scan) Running() bool             { return c.eng.Running() }
func (c *Scan) Phase() model.JobPhase     { return c.eng.Phase() }
func (c *Scan) Summary() model.JobSummary { return c.eng.Summary() }

func (c *Scan) handleEvent(data []byte) {
	jobID := c.eng.currentJob()
	if jobID == "" {
		return
	}

	switch model.Classify(data) {
	case model.EventFolderDiscovered:
		var ev model.FolderDiscoveredEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.JobID != jobID {
			return
		}
		c.store.Hydrate(model.DiscoveryBatch{Folder: ev.Folder, Files: ev.Files})

	case model.EventScanComplete:
		var ev model.ScanCompleteEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.JobID != jobID {
			return
		}

		c.eng.updateSummary(func(s *model.JobSummary) {
			s.TotalItems = ev.TotalFiles
			s.BytesTotal = ev.TotalBytes
		})

		logger.Log.Info("scan complete",
			zap.Int("total", ev.TotalFiles),
			zap.Int("new", ev.NewFiles),
			zap.Int("present", ev.PresentFiles))

		c.eng.finish(model.OutcomeCompleted, "")
	}
}

func (c *Scan) handleStreamErr(err error) {
	c.eng.finish(model.OutcomeFailed, err.Error())
}

func (c *Scan) handleStreamClose() {
	c.eng.finish(model.OutcomeFailed, "stream closed before terminal event")
}
