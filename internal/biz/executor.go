package biz

import (
	"context"
	"fmt"
	"time"

	plog "RouteSim/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const unknownConnector = "unknown"

// PaymentExecutor runs one attempt end to end: rank, pick a card, pay,
// resolve the connector that processed it, and report back to the router.
type PaymentExecutor struct {
	routing  RoutingClient
	gateway  PaymentGateway
	cards    *CardSelector
	registry *ConnectorRegistry
	limiter  *rate.Limiter
	tracer   trace.Tracer
	metrics  *Metrics
	log      *plog.LogHelper
}

// NewPaymentExecutor creates an executor. A nil limiter disables pacing.
func NewPaymentExecutor(
	routing RoutingClient,
	gateway PaymentGateway,
	cards *CardSelector,
	registry *ConnectorRegistry,
	limiter *rate.Limiter,
	metrics *Metrics,
	logger log.Logger,
) *PaymentExecutor {
	return &PaymentExecutor{
		routing:  routing,
		gateway:  gateway,
		cards:    cards,
		registry: registry,
		limiter:  limiter,
		tracer:   otel.Tracer("RouteSim/internal/biz"),
		metrics:  metrics,
		log:      plog.NewLogHelper(logger),
	}
}

// NewAttemptLimiter returns a limiter admitting perSecond attempts, or nil
// when perSecond is not positive.
func NewAttemptLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Execute runs attempt index against the enabled candidates. It returns
// ErrCancelled when ctx is cancelled before the payment settles. Any other
// error means the attempt failed without a usable response.
func (e *PaymentExecutor) Execute(ctx context.Context, seq *Sequencer, index int64, candidates []Connector, cfg SimulationConfig) (AttemptOutcome, error) {
	ctx, span := e.tracer.Start(ctx, "payment.attempt", trace.WithAttributes(
		attribute.Int64("attempt.index", index),
		attribute.String("run.id", plog.GetRunID(ctx)),
	))
	defer span.End()

	ranking := Ranking{Approach: ApproachUnknown}
	if labels := candidateLabels(candidates); len(labels) > 0 {
		ranking = e.routing.FetchRanking(ctx, RankingRequest{
			Labels:             labels,
			MinAggregatesSize:  cfg.MinAggregatesSize,
			ExplorationPercent: cfg.ExplorationPercent,
		})
	}
	e.metrics.RoutingDecisions.WithLabelValues(string(ranking.Approach)).Inc()

	req := PaymentRequest{
		Index:    index,
		RunID:    plog.GetRunID(ctx),
		Amount:   cfg.Amount,
		Currency: cfg.Currency,
	}
	target, pinned := findByName(candidates, ranking.Selected)
	if cfg.SuccessBasedRouting && pinned {
		req.Instrument = e.cards.SelectInstrument(target.Name, cfg.FailurePercent(target.Name), cfg.TestCards)
		req.Routing = &RoutingOverride{Connector: target.Name, MerchantConnectorID: target.ID}
	} else {
		req.Instrument = e.cards.SelectInstrument("", 0, cfg.TestCards)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return AttemptOutcome{}, ErrCancelled
		}
	}

	resp, err := e.gateway.Submit(ctx, req)
	if err != nil {
		if ctx.Err() != nil || isCancelled(err) {
			span.SetStatus(codes.Error, "cancelled")
			return AttemptOutcome{}, ErrCancelled
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AttemptOutcome{}, fmt.Errorf("attempt %d: %w", index, err)
	}

	logged, routedID := e.resolveConnector(resp)
	status := firstNonEmpty(resp.HeaderStatus, resp.Status, "unknown")
	success := resp.OK && IsAcceptedStatus(resp.Status)

	if logged != unknownConnector {
		label := logged
		if c, ok := e.registry.FindByNameOrID(logged); ok {
			label = c.DisplayName()
		}
		e.routing.ReportOutcome(ctx, OutcomeReport{
			Label:             label,
			Success:           success,
			MaxAggregatesSize: cfg.MaxAggregatesSize,
			BlockThreshold:    cfg.BlockThreshold,
		})
	}

	outcome := AttemptOutcome{
		Sequence:      seq.Next(),
		Success:       success,
		Status:        status,
		Approach:      ranking.Approach,
		ConnectorID:   routedID,
		ConnectorName: logged,
		Scores:        roundScores(ranking.Scores),
		Timestamp:     time.Now(),
	}

	result := "failure"
	if success {
		result = "success"
	}
	metricConnector := routedID
	if metricConnector == "" {
		metricConnector = "unresolved"
	}
	e.metrics.Attempts.WithLabelValues(metricConnector, result).Inc()

	span.SetAttributes(
		attribute.Int64("attempt.sequence", outcome.Sequence),
		attribute.String("routing.approach", string(outcome.Approach)),
		attribute.String("routing.selected", ranking.Selected),
		attribute.String("connector.id", routedID),
		attribute.String("payment.status", status),
		attribute.Bool("payment.success", success),
	)

	e.log.Payment(ctx, "attempt settled",
		"sequence", outcome.Sequence,
		"connector", logged,
		"connector_id", routedID,
		"status", status,
		"success", success,
		"approach", outcome.Approach,
	)

	return outcome, nil
}

// resolveConnector returns the connector name to log and the registry key to
// attribute the outcome to. Debug headers win over the body; the key may be
// empty when nothing identifies the connector.
func (e *PaymentExecutor) resolveConnector(resp PaymentResponse) (logged, routedID string) {
	logged = firstNonEmpty(resp.HeaderConnector, resp.ConnectorName, resp.MerchantConnectorID, unknownConnector)

	if resp.ConnectorName != "" {
		if c, ok := e.registry.FindByName(resp.ConnectorName); ok {
			routedID = c.ID
		}
	} else if resp.MerchantConnectorID != "" {
		routedID = resp.MerchantConnectorID
	}

	if routedID == "" && logged != unknownConnector {
		if c, ok := e.registry.FindByName(logged); ok {
			routedID = c.ID
		} else {
			routedID = logged
		}
	}
	return logged, routedID
}

func candidateLabels(candidates []Connector) []string {
	seen := make(map[string]bool, len(candidates))
	labels := make([]string, 0, len(candidates))
	for _, c := range candidates {
		name := c.DisplayName()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		labels = append(labels, name)
	}
	return labels
}

func findByName(candidates []Connector, name string) (Connector, bool) {
	if name == "" {
		return Connector{}, false
	}
	for _, c := range candidates {
		if c.DisplayName() == name {
			return c, true
		}
	}
	return Connector{}, false
}

func roundScores(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return nil
	}
	out := make(map[string]float64, len(scores))
	for label, score := range scores {
		out[label] = decimal.NewFromFloat(score).Round(2).InexactFloat64()
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
