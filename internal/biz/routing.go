package biz

import "context"

// RankingRequest asks the router to score a set of candidate connector labels.
type RankingRequest struct {
	Labels             []string
	MinAggregatesSize  int
	ExplorationPercent float64
}

// Ranking is the router's answer. Selected is empty when no decision was made.
type Ranking struct {
	Selected string
	Approach RoutingApproach
	Scores   map[string]float64
}

// OutcomeReport feeds an observed result back into the router's window.
type OutcomeReport struct {
	Label             string
	Success           bool
	MaxAggregatesSize int
	BlockThreshold    BlockThreshold
}

// RoutingClient talks to the external success-rate router. Both calls fail
// soft: problems are logged by the implementation and never returned.
type RoutingClient interface {
	// FetchRanking returns Selected="" and ApproachUnknown on any failure and
	// for an empty candidate set, in which case no remote call is made.
	FetchRanking(ctx context.Context, req RankingRequest) Ranking
	// ReportOutcome is fire-and-forget and never retried.
	ReportOutcome(ctx context.Context, report OutcomeReport)
}

// RoutingOverride pins a payment to one connector.
type RoutingOverride struct {
	Connector           string
	MerchantConnectorID string
}

// PaymentRequest is one synthetic payment.
type PaymentRequest struct {
	Index      int64
	RunID      string
	Amount     int64
	Currency   string
	Instrument Instrument
	Routing    *RoutingOverride
}

// PaymentResponse is the part of the payment answer the engine looks at.
// Header fields come from the sandbox's simulation debug headers.
type PaymentResponse struct {
	OK                  bool
	Status              string
	ConnectorName       string
	MerchantConnectorID string
	HeaderStatus        string
	HeaderConnector     string
}

// PaymentGateway submits synthetic payments. Errors cover transport failures
// and malformed bodies; a declined payment is a response, not an error.
type PaymentGateway interface {
	Submit(ctx context.Context, req PaymentRequest) (PaymentResponse, error)
}

var acceptedStatuses = map[string]bool{
	"succeeded":        true,
	"requires_capture": true,
	"processing":       true,
}

// IsAcceptedStatus reports whether a payment status counts as a success.
func IsAcceptedStatus(status string) bool {
	return acceptedStatuses[status]
}
