// Package job owns the start/cancel lifecycle for the three job kinds and
// translates stream events into row-store facts.
package job

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"batchup/internal/logger"
	"batchup/internal/model"
	"batchup/internal/stream"
)

// Sink receives the final summary exactly once per finished job.
type Sink func(model.JobSummary)

// engine is the state machine shared by all controllers:
// idle → starting → running → idle-with-result.
type engine struct {
	mu         sync.Mutex
	kind       model.JobKind
	phase      model.JobPhase
	jobID      string
	summary    model.JobSummary
	stream     *stream.Stream
	sink       Sink
	onTerminal func()
}

func newEngine(kind model.JobKind, sink Sink, onTerminal func()) *engine {
	return &engine{
		kind:       kind,
		phase:      model.PhaseIdle,
		sink:       sink,
		onTerminal: onTerminal,
	}
}

func (e *engine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != model.PhaseIdle {
		return fmt.Errorf("%s job already active", e.kind)
	}

	e.phase = model.PhaseStarting
	e.summary = model.JobSummary{
		Kind:      e.kind,
		CreatedAt: time.Now(),
	}

	return nil
}

// abort returns to idle after a failed start call. The sink is not invoked:
// no job ever existed.
func (e *engine) abort() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.phase = model.PhaseIdle
	e.jobID = ""
}

func (e *engine) run(jobID string, totalItems int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.phase = model.PhaseRunning
	e.jobID = jobID
	e.summary.JobID = jobID
	e.summary.TotalItems = totalItems
	e.summary.StartedAt = time.Now()
}

// attach hands the open stream to the engine. If a terminal event already
// raced the open, the stream is torn down on the spot.
func (e *engine) attach(st *stream.Stream) {
	e.mu.Lock()
	if e.phase != model.PhaseRunning {
		e.mu.Unlock()
		st.Close()
		return
	}
	e.stream = st
	e.mu.Unlock()
}

// currentJob returns the active job id, empty once the job is over. Event
// handlers use it to fence off late frames from superseded streams.
func (e *engine) currentJob() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.jobID
}

func (e *engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase == model.PhaseRunning
}

func (e *engine) Phase() model.JobPhase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *engine) Summary() model.JobSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary
}

func (e *engine) markCancelRequested() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.summary.Cancelled = true
}

// updateSummary applies fn to the live counters while the job is running.
func (e *engine) updateSummary(fn func(*model.JobSummary)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != model.PhaseRunning {
		return
	}
	fn(&e.summary)
}

// finish ends the running job: closes the stream, clears the job id, stamps
// the outcome, and hands the summary to the sink. Repeat calls are no-ops,
// so a transport error arriving after a terminal event does nothing.
func (e *engine) finish(outcome model.JobOutcome, errMsg string) {
	e.mu.Lock()
	if e.phase != model.PhaseRunning {
		e.mu.Unlock()
		return
	}

	e.phase = model.PhaseIdle
	e.jobID = ""
	e.summary.Outcome = outcome
	e.summary.FinishedAt = time.Now()
	if errMsg != "" {
		e.summary.ErrMsg = errMsg
	}
	if outcome == model.OutcomeCancelled {
		e.summary.Cancelled = true
	}

	st := e.stream
	e.stream = nil
	summary := e.summary
	e.mu.Unlock()

	if st != nil {
		st.Close()
	}
	if e.onTerminal != nil {
		e.onTerminal()
	}

	logger.Log.Info("job finished",
		zap.String("kind", string(summary.Kind)),
		zap.String("job_id", summary.JobID),
		zap.String("outcome", string(outcome)))

	if e.sink != nil {
		e.sink(summary)
	}
}
