package log

import (
	"context"
	"time"
)

type contextKey string

const runContextKey contextKey = "routesim_run_context"

// RunContext carries the identifiers of the simulation run a call belongs to,
// so per-attempt logs from concurrent goroutines can be correlated.
type RunContext struct {
	RunID     string
	Batch     int
	StartTime time.Time
}

// WithRunContext returns a copy of ctx carrying the run id and batch number.
func WithRunContext(ctx context.Context, runID string, batch int) context.Context {
	return context.WithValue(ctx, runContextKey, &RunContext{
		RunID:     runID,
		Batch:     batch,
		StartTime: time.Now(),
	})
}

// GetRunContext 从 Context 中提取 RunContext
// 如果不存在，返回一个默认的空 RunContext
func GetRunContext(ctx context.Context) *RunContext {
	if ctx != nil {
		if runCtx, ok := ctx.Value(runContextKey).(*RunContext); ok {
			return runCtx
		}
	}
	return &RunContext{RunID: "unknown"}
}

// GetRunID 从 Context 中提取 Run ID
func GetRunID(ctx context.Context) string {
	return GetRunContext(ctx).RunID
}

// GetElapsedTime returns milliseconds since the context was tagged.
func GetElapsedTime(ctx context.Context) int64 {
	runCtx := GetRunContext(ctx)
	if runCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(runCtx.StartTime).Milliseconds()
}
