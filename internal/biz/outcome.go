package biz

import (
	"sync/atomic"
	"time"
)

// RoutingApproach is the router's classification of a decision.
type RoutingApproach string

const (
	ApproachExploration  RoutingApproach = "exploration"
	ApproachExploitation RoutingApproach = "exploitation"
	ApproachUnknown      RoutingApproach = "unknown"
	// ApproachNotApplicable marks outcomes synthesized for attempts that errored.
	ApproachNotApplicable RoutingApproach = "N/A"
)

// ApproachFromCode maps the router's numeric classification.
func ApproachFromCode(code int) RoutingApproach {
	switch code {
	case 0:
		return ApproachExploration
	case 1:
		return ApproachExploitation
	default:
		return ApproachUnknown
	}
}

// AttemptOutcome is the normalized result of one synthetic payment.
type AttemptOutcome struct {
	Sequence int64           `json:"sequence"`
	Success  bool            `json:"success"`
	Status   string          `json:"status"`
	Approach RoutingApproach `json:"routing_approach"`

	// ConnectorID is the registry key of the connector that processed the
	// payment, empty when it could not be resolved.
	ConnectorID   string             `json:"connector_id,omitempty"`
	ConnectorName string             `json:"connector_name"`
	Scores        map[string]float64 `json:"sr_scores,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
	Error         string             `json:"error,omitempty"`
}

// Resolved reports whether the outcome is attributed to a connector.
func (o AttemptOutcome) Resolved() bool {
	return o.ConnectorID != ""
}

// Sequencer hands out the 1-based attempt sequence numbers of a run.
type Sequencer struct {
	n atomic.Int64
}

// Next returns the next sequence number.
func (s *Sequencer) Next() int64 {
	return s.n.Add(1)
}

// Current returns the last number handed out.
func (s *Sequencer) Current() int64 {
	return s.n.Load()
}

// Reset restarts numbering at 1.
func (s *Sequencer) Reset() {
	s.n.Store(0)
}
