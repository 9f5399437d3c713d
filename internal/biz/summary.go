package biz

import "context"

// ProcessorMetric is one connector's line in the summary input.
type ProcessorMetric struct {
	Name       string  `json:"name"`
	Volume     int64   `json:"volume"`
	ObservedSR float64 `json:"observedSr"`
	BaseSR     float64 `json:"baseSr"`
}

// IncidentFlag tells the summarizer a connector had an injected incident.
type IncidentFlag struct {
	ProcessorName string `json:"processorName"`
	IsActive      bool   `json:"isActive"`
}

// SummaryInput is what the summarizer is given at the end of a run.
type SummaryInput struct {
	TotalPaymentsProcessed  int64             `json:"totalPaymentsProcessed"`
	TargetTotalPayments     int               `json:"targetTotalPayments"`
	OverallSuccessRate      float64           `json:"overallSuccessRate"`
	TotalSuccessful         int64             `json:"totalSuccessful"`
	TotalFailed             int64             `json:"totalFailed"`
	EffectiveTPS            float64           `json:"effectiveTps"`
	ProcessorMetrics        []ProcessorMetric `json:"processorMetrics"`
	Incidents               []IncidentFlag    `json:"incidents"`
	SimulationDurationSteps int               `json:"simulationDurationSteps"`
	TransactionLogs         []AttemptOutcome  `json:"transactionLogs"`
}

// Summarizer turns a finished run into a narrative. It is called at most once
// per run.
type Summarizer interface {
	Summarize(ctx context.Context, in SummaryInput) (string, error)
}

// SummaryStatus tracks the end-of-run summary of the last run.
type SummaryStatus string

const (
	SummaryNone    SummaryStatus = "none"
	SummaryPending SummaryStatus = "pending"
	SummaryReady   SummaryStatus = "ready"
	SummaryFailed  SummaryStatus = "failed"
	SummarySkipped SummaryStatus = "skipped"
)

// RunSummary is the summary of the last finished run.
type RunSummary struct {
	RunID  string        `json:"run_id"`
	Status SummaryStatus `json:"status"`
	Text   string        `json:"summary_text,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func buildSummaryInput(connectors []Connector, cfg SimulationConfig, snap StatsSnapshot, logs []AttemptOutcome) SummaryInput {
	byID := make(map[string]ConnectorStats, len(snap.Connectors))
	for _, c := range snap.Connectors {
		byID[c.ID] = c
	}

	metrics := make([]ProcessorMetric, 0, len(connectors))
	incidents := make([]IncidentFlag, 0, len(connectors))
	for _, c := range connectors {
		name := c.DisplayName()
		stats := byID[c.ID]
		metrics = append(metrics, ProcessorMetric{
			Name:       name,
			Volume:     stats.Attempts,
			ObservedSR: stats.SuccessRate,
			BaseSR:     100 - cfg.FailurePercent(name),
		})
		incidents = append(incidents, IncidentFlag{ProcessorName: name, IsActive: cfg.Incidents[name]})
	}

	return SummaryInput{
		TotalPaymentsProcessed:  snap.Processed,
		TargetTotalPayments:     cfg.TotalAttempts,
		OverallSuccessRate:      snap.OverallSuccessRate,
		TotalSuccessful:         snap.TotalSuccessful,
		TotalFailed:             snap.TotalFailed,
		ProcessorMetrics:        metrics,
		Incidents:               incidents,
		SimulationDurationSteps: len(snap.OverallHistory),
		TransactionLogs:         logs,
	}
}
