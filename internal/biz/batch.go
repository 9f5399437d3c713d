package biz

import (
	"context"
	"sort"
	"time"

	plog "RouteSim/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// AttemptRunner executes one attempt. *PaymentExecutor implements it.
type AttemptRunner interface {
	Execute(ctx context.Context, seq *Sequencer, index int64, candidates []Connector, cfg SimulationConfig) (AttemptOutcome, error)
}

// BatchSpec describes one batch of a run.
type BatchSpec struct {
	// StartIndex is the 1-based index of the first attempt in the batch.
	StartIndex int64
	Size       int
	Candidates []Connector
	Config     SimulationConfig
	Sequencer  *Sequencer
}

// BatchProcessor fans a batch out to concurrent attempts and collects the
// outcomes that settle.
type BatchProcessor struct {
	runner  AttemptRunner
	metrics *Metrics
	log     *plog.LogHelper
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(runner AttemptRunner, metrics *Metrics, logger log.Logger) *BatchProcessor {
	return &BatchProcessor{
		runner:  runner,
		metrics: metrics,
		log:     plog.NewLogHelper(logger),
	}
}

type attemptResult struct {
	outcome AttemptOutcome
	err     error
}

// RunBatch issues spec.Size attempts concurrently and waits for all of them.
// When ctx is cancelled it stops waiting and returns what has settled so far.
// Cancelled attempts produce no outcome. Attempts that fail with any other
// error become failed outcomes without a connector. The result is ordered by
// sequence number.
func (p *BatchProcessor) RunBatch(ctx context.Context, spec BatchSpec) []AttemptOutcome {
	if spec.Size <= 0 {
		return nil
	}
	started := time.Now()

	results := make(chan attemptResult, spec.Size)
	for i := 0; i < spec.Size; i++ {
		index := spec.StartIndex + int64(i)
		go func() {
			outcome, err := p.runner.Execute(ctx, spec.Sequencer, index, spec.Candidates, spec.Config)
			results <- attemptResult{outcome: outcome, err: err}
		}()
	}

	outcomes := make([]AttemptOutcome, 0, spec.Size)
	collect := func(r attemptResult) {
		switch {
		case r.err == nil:
			outcomes = append(outcomes, r.outcome)
		case isCancelled(r.err):
		default:
			p.log.PaymentWarn(ctx, "attempt failed", "error", r.err)
			p.metrics.Attempts.WithLabelValues("unresolved", "error").Inc()
			outcomes = append(outcomes, AttemptOutcome{
				Sequence:  spec.Sequencer.Next(),
				Success:   false,
				Status:    "error",
				Approach:  ApproachNotApplicable,
				Timestamp: time.Now(),
				Error:     r.err.Error(),
			})
		}
	}

	pending := spec.Size
wait:
	for pending > 0 {
		select {
		case r := <-results:
			pending--
			collect(r)
		case <-ctx.Done():
			break wait
		}
	}

	// Keep whatever settled in the same instant as the cancellation.
	for drained := false; pending > 0 && !drained; {
		select {
		case r := <-results:
			pending--
			collect(r)
		default:
			drained = true
		}
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Sequence < outcomes[j].Sequence })

	p.metrics.BatchDuration.Observe(time.Since(started).Seconds())
	if pending > 0 {
		p.log.BatchError(ctx, "batch interrupted, attempts abandoned", "settled", len(outcomes), "abandoned", pending)
	}
	return outcomes
}
