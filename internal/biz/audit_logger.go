package biz

import (
	"context"
	"time"
)

// AuditEventType defines the type of run audit event
type AuditEventType string

const (
	AuditEventRunStarted   AuditEventType = "RUN_STARTED"
	AuditEventRunPaused    AuditEventType = "RUN_PAUSED"
	AuditEventRunResumed   AuditEventType = "RUN_RESUMED"
	AuditEventRunStopped   AuditEventType = "RUN_STOPPED"
	AuditEventRunCompleted AuditEventType = "RUN_COMPLETED"
)

// AuditLogger records controller transitions. Implementations must not block.
type AuditLogger interface {
	LogRunEvent(ctx context.Context, runID string, event AuditEventType, details map[string]interface{})
}

// ProgressSnapshot is published after every fold and transition.
type ProgressSnapshot struct {
	RunID              string    `json:"run_id"`
	State              State     `json:"state"`
	Processed          int64     `json:"processed"`
	Target             int       `json:"target"`
	Batch              int       `json:"batch"`
	TotalSuccessful    int64     `json:"total_successful"`
	TotalFailed        int64     `json:"total_failed"`
	OverallSuccessRate float64   `json:"overall_success_rate"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ProgressPublisher fans progress out to external dashboards. Failures are
// logged by the implementation.
type ProgressPublisher interface {
	Publish(ctx context.Context, snapshot ProgressSnapshot)
}

// ProgressReader reads back the latest published snapshot of a run.
type ProgressReader interface {
	Latest(ctx context.Context, runID string) (ProgressSnapshot, error)
}
