package data

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"RouteSim/internal/biz"
	perrors "RouteSim/pkg/errors"
	plog "RouteSim/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sony/gobreaker"
)

const (
	fetchRankingPath  = "/dynamic-routing/success_rate.SuccessRateCalculator/FetchSuccessRate"
	reportOutcomePath = "/dynamic-routing/success_rate.SuccessRateCalculator/UpdateSuccessRateWindow"

	// featureDynamo selects the success-rate engine on the router.
	featureDynamo = "dynamo"
	// routingParams is the payment dimension every window is keyed by.
	routingParams = "card"
	// defaultSuccessRate seeds labels the router has no data for.
	defaultSuccessRate = 100.0

	opFetchRanking  = "fetch_ranking"
	opReportOutcome = "report_outcome"

	rankingBreakerName       = "routing"
	defaultBreakerTimeout    = 30 * time.Second
	rankingBreakerMaxFailure = 5
)

type rankingConfig struct {
	MinAggregatesSize  int     `json:"min_aggregates_size"`
	DefaultSuccessRate float64 `json:"default_success_rate"`
	ExplorationPercent float64 `json:"exploration_percent"`
}

type rankingPayload struct {
	ID     string        `json:"id"`
	Params string        `json:"params"`
	Labels []string      `json:"labels"`
	Config rankingConfig `json:"config"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type rankingResponse struct {
	LabelsWithScore []labelScore `json:"labels_with_score"`
	RoutingApproach *int         `json:"routing_approach"`
}

type labelStatus struct {
	Label  string `json:"label"`
	Status bool   `json:"status"`
}

type blockThreshold struct {
	DurationInMins int `json:"duration_in_mins"`
	MaxTotalCount  int `json:"max_total_count"`
}

type windowConfig struct {
	MaxAggregatesSize     int            `json:"max_aggregates_size"`
	CurrentBlockThreshold blockThreshold `json:"current_block_threshold"`
}

type outcomePayload struct {
	ID                     string        `json:"id"`
	Params                 string        `json:"params"`
	LabelsWithStatus       []labelStatus `json:"labels_with_status"`
	GlobalLabelsWithStatus []labelStatus `json:"global_labels_with_status"`
	Config                 windowConfig  `json:"config"`
}

// RoutingClient implements biz.RoutingClient against the success-rate router.
// Ranking calls go through a circuit breaker.
type RoutingClient struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	profileID string
	breaker   *gobreaker.CircuitBreaker
	metrics   *biz.Metrics
	log       *plog.LogHelper
}

// NewRoutingClient creates a router client. The router URL falls back to the
// payments base URL.
func NewRoutingClient(d *Data, metrics *biz.Metrics, logger log.Logger) *RoutingClient {
	helper := plog.NewLogHelper(logger)
	up := d.upstream

	baseURL := up.RouterURL
	if baseURL == "" {
		baseURL = up.BaseURL
	}
	timeout := defaultBreakerTimeout
	if up.BreakerTimeout != nil && up.BreakerTimeout.AsDuration() > 0 {
		timeout = up.BreakerTimeout.AsDuration()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        rankingBreakerName,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= rankingBreakerMaxFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			helper.Breaker("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		// 调用方取消不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || perrors.IsCancelled(err)
		},
	})
	metrics.BreakerState.WithLabelValues(rankingBreakerName).Set(float64(gobreaker.StateClosed))

	return &RoutingClient{
		client:    d.httpClient,
		baseURL:   baseURL,
		apiKey:    up.APIKey,
		profileID: up.ProfileID,
		breaker:   breaker,
		metrics:   metrics,
		log:       helper,
	}
}

func (c *RoutingClient) headers() map[string]string {
	return map[string]string{
		headerFeature: featureDynamo,
		headerAPIKey:  c.apiKey,
	}
}

// FetchRanking implements biz.RoutingClient.
func (c *RoutingClient) FetchRanking(ctx context.Context, req biz.RankingRequest) biz.Ranking {
	none := biz.Ranking{Approach: biz.ApproachUnknown}
	if len(req.Labels) == 0 {
		return none
	}

	payload := rankingPayload{
		ID:     c.profileID,
		Params: routingParams,
		Labels: req.Labels,
		Config: rankingConfig{
			MinAggregatesSize:  req.MinAggregatesSize,
			DefaultSuccessRate: defaultSuccessRate,
			ExplorationPercent: req.ExplorationPercent,
		},
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := doJSON(ctx, c.client, http.MethodPost, joinURL(c.baseURL, fetchRankingPath), c.headers(), payload, opFetchRanking)
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, perrors.NewHTTPStatusError(opFetchRanking, resp.StatusCode, resp.Body)
		}
		var parsed rankingResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return nil, perrors.NewDecodeError(opFetchRanking, err)
		}
		return &parsed, nil
	})
	if err != nil {
		c.failed(ctx, opFetchRanking, err)
		return none
	}

	parsed := result.(*rankingResponse)
	ranking := biz.Ranking{
		Approach: biz.ApproachUnknown,
		Scores:   make(map[string]float64, len(parsed.LabelsWithScore)),
	}
	if parsed.RoutingApproach != nil {
		ranking.Approach = biz.ApproachFromCode(*parsed.RoutingApproach)
	}

	// first entry wins ties
	best := -1
	for i, ls := range parsed.LabelsWithScore {
		ranking.Scores[ls.Label] = ls.Score
		if best < 0 || ls.Score > parsed.LabelsWithScore[best].Score {
			best = i
		}
	}
	if best >= 0 {
		ranking.Selected = parsed.LabelsWithScore[best].Label
	}
	return ranking
}

// ReportOutcome implements biz.RoutingClient. It is sent once, without the
// breaker and without retries.
func (c *RoutingClient) ReportOutcome(ctx context.Context, report biz.OutcomeReport) {
	status := []labelStatus{{Label: report.Label, Status: report.Success}}
	payload := outcomePayload{
		ID:                     c.profileID,
		Params:                 routingParams,
		LabelsWithStatus:       status,
		GlobalLabelsWithStatus: status,
		Config: windowConfig{
			MaxAggregatesSize: report.MaxAggregatesSize,
			CurrentBlockThreshold: blockThreshold{
				DurationInMins: report.BlockThreshold.DurationMinutes,
				MaxTotalCount:  report.BlockThreshold.MaxTotalCount,
			},
		},
	}

	resp, err := doJSON(ctx, c.client, http.MethodPost, joinURL(c.baseURL, reportOutcomePath), c.headers(), payload, opReportOutcome)
	if err != nil {
		c.failed(ctx, opReportOutcome, err)
		return
	}
	if !resp.OK() {
		c.failed(ctx, opReportOutcome, perrors.NewHTTPStatusError(opReportOutcome, resp.StatusCode, resp.Body))
		return
	}

	// the body is optional: {status: 0|1}
	if len(resp.Body) == 0 {
		return
	}
	var ack struct {
		Status *int `json:"status"`
	}
	if err := json.Unmarshal(resp.Body, &ack); err != nil {
		c.log.Routing(ctx, "unparseable outcome acknowledgement", "label", report.Label, "error", err)
		return
	}
	if ack.Status != nil && *ack.Status != 0 {
		c.log.Routing(ctx, "router rejected outcome report", "label", report.Label, "status", *ack.Status)
	}
}

func (c *RoutingClient) failed(ctx context.Context, op string, err error) {
	errType := perrors.ClassifyUpstreamError(err)
	c.metrics.UpstreamErrors.WithLabelValues(op, string(errType)).Inc()
	if errType == perrors.ErrorTypeCancelled {
		return
	}
	c.log.Routing(ctx, "router call failed", "op", op, "error_type", string(errType), "error", err)
}
