package biz

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	plog "RouteSim/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// State is the controller state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

func (s State) gauge() float64 {
	switch s {
	case StateRunning:
		return 1
	case StatePaused:
		return 2
	default:
		return 0
	}
}

// Status is a point-in-time view of the controller.
type Status struct {
	RunID              string    `json:"run_id,omitempty"`
	State              State     `json:"state"`
	Processed          int64     `json:"processed"`
	Target             int       `json:"target"`
	Batch              int       `json:"batch"`
	OverallSuccessRate float64   `json:"overall_success_rate"`
	StartedAt          time.Time `json:"started_at,omitempty"`
}

// SimulationController drives sequential batches of a run and owns its
// state machine: idle -> running <-> paused, and back to idle on stop or
// when the target is reached.
type SimulationController struct {
	// ctrlMu serializes control operations.
	ctrlMu sync.Mutex

	mu               sync.Mutex
	state            State
	defaults         SimulationConfig
	cfg              SimulationConfig
	connectors       []Connector
	runID            string
	startedAt        time.Time
	processed        int64
	batch            int
	cancel           context.CancelFunc
	driveDone        chan struct{}
	summaryAttempted bool
	summary          RunSummary

	inFlight  atomic.Bool
	seq       Sequencer
	summaries sync.WaitGroup

	upstream   UpstreamSettings
	registry   *ConnectorRegistry
	batches    *BatchProcessor
	stats      *StatsAggregator
	summarizer Summarizer
	audit      AuditLogger
	progress   ProgressPublisher
	metrics    *Metrics
	log        *plog.LogHelper
}

// NewSimulationController creates an idle controller.
func NewSimulationController(
	defaults SimulationConfig,
	upstream UpstreamSettings,
	registry *ConnectorRegistry,
	batches *BatchProcessor,
	summarizer Summarizer,
	audit AuditLogger,
	progress ProgressPublisher,
	metrics *Metrics,
	logger log.Logger,
) *SimulationController {
	return &SimulationController{
		state:      StateIdle,
		defaults:   defaults.Clone(),
		summary:    RunSummary{Status: SummaryNone},
		upstream:   upstream,
		registry:   registry,
		batches:    batches,
		stats:      NewStatsAggregator(registry.Keys()),
		summarizer: summarizer,
		audit:      audit,
		progress:   progress,
		metrics:    metrics,
		log:        plog.NewLogHelper(logger),
	}
}

// DefaultConfig returns a copy of the configured run parameters.
func (c *SimulationController) DefaultConfig() SimulationConfig {
	return c.defaults.Clone()
}

// Start begins a fresh run from idle, resetting all statistics. From paused
// it resumes the current run and cfg is ignored. While running it is a no-op.
// A nil cfg uses the defaults.
func (c *SimulationController) Start(ctx context.Context, cfg *SimulationConfig) error {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()

	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateRunning:
		c.log.Simulation("start ignored, simulation already running", "run_id", c.currentRunID())
		return nil
	case StatePaused:
		return c.resumeLocked(ctx)
	}

	if err := c.upstream.Validate(); err != nil {
		c.log.Errorw("msg", "cannot start simulation", "type", "simulation", "error", err)
		return err
	}
	runCfg := c.defaults.Clone()
	if cfg != nil {
		runCfg = cfg.Clone()
	}
	if err := runCfg.Validate(); err != nil {
		c.log.Errorw("msg", "cannot start simulation", "type", "simulation", "error", err)
		return err
	}

	runID := uuid.NewString()
	c.stats.Reset(c.registry.Keys())
	c.seq.Reset()

	c.mu.Lock()
	c.state = StateRunning
	c.cfg = runCfg
	c.connectors = c.registry.List()
	c.runID = runID
	c.startedAt = time.Now()
	c.processed = 0
	c.batch = 0
	c.summaryAttempted = false
	c.summary = RunSummary{RunID: runID, Status: SummaryNone}
	c.launchLocked(runID)
	snapshot := c.progressLocked()
	c.mu.Unlock()

	c.metrics.Processed.Set(0)
	c.metrics.OverallSuccessRate.Set(0)
	c.metrics.State.Set(StateRunning.gauge())
	c.audit.LogRunEvent(ctx, runID, AuditEventRunStarted, map[string]interface{}{
		"total_attempts":        runCfg.TotalAttempts,
		"batch_size":            runCfg.BatchSize,
		"success_based_routing": runCfg.SuccessBasedRouting,
	})
	c.progress.Publish(ctx, snapshot)
	c.log.Simulation("simulation started",
		"run_id", runID,
		"total_attempts", runCfg.TotalAttempts,
		"batch_size", runCfg.BatchSize,
	)
	return nil
}

// Pause cancels the in-flight batch and keeps all statistics.
func (c *SimulationController) Pause(ctx context.Context) error {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()

	c.mu.Lock()
	if c.state != StateRunning {
		state := c.state
		c.mu.Unlock()
		return newInvalidTransitionError("pause", state)
	}
	c.state = StatePaused
	cancel, done, runID := c.cancel, c.driveDone, c.runID
	c.mu.Unlock()

	c.halt(cancel, done)

	c.mu.Lock()
	snapshot := c.progressLocked()
	c.mu.Unlock()

	c.metrics.State.Set(StatePaused.gauge())
	c.audit.LogRunEvent(context.WithoutCancel(ctx), runID, AuditEventRunPaused, map[string]interface{}{"processed": snapshot.Processed})
	c.progress.Publish(context.WithoutCancel(ctx), snapshot)
	c.log.Simulation("simulation paused", "run_id", runID, "processed", snapshot.Processed)
	return nil
}

// Resume continues a paused run without resetting statistics.
func (c *SimulationController) Resume(ctx context.Context) error {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	return c.resumeLocked(ctx)
}

func (c *SimulationController) resumeLocked(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StatePaused {
		state := c.state
		c.mu.Unlock()
		return newInvalidTransitionError("resume", state)
	}
	c.state = StateRunning
	runID := c.runID
	c.launchLocked(runID)
	snapshot := c.progressLocked()
	c.mu.Unlock()

	c.metrics.State.Set(StateRunning.gauge())
	c.audit.LogRunEvent(ctx, runID, AuditEventRunResumed, map[string]interface{}{"processed": snapshot.Processed})
	c.progress.Publish(ctx, snapshot)
	c.log.Simulation("simulation resumed", "run_id", runID, "processed", snapshot.Processed)
	return nil
}

// Stop ends the run from running or paused and triggers the end-of-run summary.
func (c *SimulationController) Stop(ctx context.Context) error {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()

	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return newInvalidTransitionError("stop", StateIdle)
	}
	c.state = StateIdle
	cancel, done, runID := c.cancel, c.driveDone, c.runID
	c.mu.Unlock()

	c.halt(cancel, done)

	c.finish(ctx, runID, AuditEventRunStopped)
	return nil
}

// Shutdown stops an active run and waits for a pending summary.
func (c *SimulationController) Shutdown(ctx context.Context) error {
	if err := c.Stop(ctx); err != nil && !IsInvalidTransition(err) {
		return err
	}

	done := make(chan struct{})
	go func() {
		c.summaries.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current state and progress.
func (c *SimulationController) Status() Status {
	_, _, rate := c.stats.Totals()

	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		RunID:              c.runID,
		State:              c.state,
		Processed:          c.processed,
		Target:             c.cfg.TotalAttempts,
		Batch:              c.batch,
		OverallSuccessRate: rate,
		StartedAt:          c.startedAt,
	}
}

// Stats returns the statistics of the current or last run.
func (c *SimulationController) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// Logs returns a page of the outcome log of the current or last run.
func (c *SimulationController) Logs(offset, limit int) ([]AttemptOutcome, int) {
	return c.stats.Logs(offset, limit)
}

// Summary returns the end-of-run summary of the last run.
func (c *SimulationController) Summary() RunSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

func (c *SimulationController) currentRunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// launchLocked starts the drive loop with a fresh cancellation token.
// c.mu must be held.
func (c *SimulationController) launchLocked(runID string) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.driveDone = done
	go c.drive(ctx, runID, done)
}

// halt cancels the drive loop and waits until it has folded its last batch.
// The wait ignores the caller's context; the loop is already cancelled.
func (c *SimulationController) halt(cancel context.CancelFunc, done chan struct{}) {
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// drive runs batches until the target is reached or ctx is cancelled.
func (c *SimulationController) drive(ctx context.Context, runID string, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		advanced, completed := c.advance(ctx, runID)
		if completed {
			c.complete(ctx, runID)
			return
		}
		if !advanced {
			return
		}
	}
}

// advance runs and folds one batch. It is a no-op while another batch is in
// flight. completed reports that the target had already been reached.
func (c *SimulationController) advance(ctx context.Context, runID string) (advanced, completed bool) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return false, false
	}
	defer c.inFlight.Store(false)

	c.mu.Lock()
	if c.state != StateRunning || c.runID != runID {
		c.mu.Unlock()
		return false, false
	}
	remaining := int64(c.cfg.TotalAttempts) - c.processed
	if remaining <= 0 {
		c.mu.Unlock()
		return false, true
	}
	size := c.cfg.BatchSize
	if int64(size) > remaining {
		size = int(remaining)
	}
	c.batch++
	batchNum := c.batch
	spec := BatchSpec{
		StartIndex: c.processed + 1,
		Size:       size,
		Config:     c.cfg,
		Sequencer:  &c.seq,
	}
	c.mu.Unlock()

	spec.Candidates = c.registry.Enabled()
	bctx := plog.WithRunContext(ctx, runID, batchNum)
	c.log.Batch(bctx, "batch started", "size", size, "candidates", len(spec.Candidates))

	outcomes := c.batches.RunBatch(bctx, spec)
	added := c.stats.Fold(outcomes)

	c.mu.Lock()
	c.processed += int64(added)
	snapshot := c.progressLocked()
	c.mu.Unlock()

	c.metrics.Processed.Set(float64(snapshot.Processed))
	c.metrics.OverallSuccessRate.Set(snapshot.OverallSuccessRate)
	c.progress.Publish(bctx, snapshot)
	c.log.Batch(bctx, "batch folded",
		"settled", added,
		"processed", snapshot.Processed,
		"target", snapshot.Target,
		"overall_success_rate", snapshot.OverallSuccessRate,
		"duration_ms", plog.GetElapsedTime(bctx),
	)
	return true, false
}

// complete moves a run that reached its target to idle.
func (c *SimulationController) complete(ctx context.Context, runID string) {
	c.mu.Lock()
	if c.state != StateRunning || c.runID != runID {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.mu.Unlock()

	c.finish(ctx, runID, AuditEventRunCompleted)
}

// finish records the end of a run and requests its summary.
func (c *SimulationController) finish(ctx context.Context, runID string, event AuditEventType) {
	c.mu.Lock()
	snapshot := c.progressLocked()
	c.mu.Unlock()

	c.metrics.State.Set(StateIdle.gauge())
	c.audit.LogRunEvent(context.WithoutCancel(ctx), runID, event, map[string]interface{}{
		"processed":            snapshot.Processed,
		"total_successful":     snapshot.TotalSuccessful,
		"total_failed":         snapshot.TotalFailed,
		"overall_success_rate": snapshot.OverallSuccessRate,
	})
	c.progress.Publish(context.WithoutCancel(ctx), snapshot)
	kvs := []interface{}{
		"run_id", runID,
		"event", string(event),
		"processed", snapshot.Processed,
		"overall_success_rate", snapshot.OverallSuccessRate,
	}
	if event == AuditEventRunCompleted {
		c.log.Success("simulation completed", kvs...)
	} else {
		c.log.Simulation("simulation finished", kvs...)
	}

	c.requestSummary(runID)
}

// requestSummary calls the summarizer at most once per run, and only when the
// run logged at least one outcome.
func (c *SimulationController) requestSummary(runID string) {
	c.mu.Lock()
	if c.summaryAttempted || c.runID != runID {
		c.mu.Unlock()
		return
	}
	c.summaryAttempted = true

	logs, total := c.stats.Logs(0, 0)
	if total == 0 {
		c.summary = RunSummary{RunID: runID, Status: SummarySkipped}
		c.mu.Unlock()
		return
	}
	input := buildSummaryInput(c.connectors, c.cfg, c.stats.Snapshot(), logs)
	c.summary = RunSummary{RunID: runID, Status: SummaryPending}
	c.mu.Unlock()

	c.summaries.Add(1)
	go func() {
		defer c.summaries.Done()

		text, err := c.summarizer.Summarize(context.Background(), input)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.runID != runID {
			return
		}
		if err != nil {
			c.summary = RunSummary{RunID: runID, Status: SummaryFailed, Error: err.Error()}
			c.log.Warnw("msg", "summary generation failed", "type", "summary", "run_id", runID, "error", err)
			return
		}
		c.summary = RunSummary{RunID: runID, Status: SummaryReady, Text: text}
		c.log.Summary("summary generated", "run_id", runID, "length", len(text))
	}()
}

// progressLocked builds a progress snapshot. c.mu must be held.
func (c *SimulationController) progressLocked() ProgressSnapshot {
	successful, failed, rate := c.stats.Totals()
	return ProgressSnapshot{
		RunID:              c.runID,
		State:              c.state,
		Processed:          c.processed,
		Target:             c.cfg.TotalAttempts,
		Batch:              c.batch,
		TotalSuccessful:    successful,
		TotalFailed:        failed,
		OverallSuccessRate: rate,
		UpdatedAt:          time.Now(),
	}
}
