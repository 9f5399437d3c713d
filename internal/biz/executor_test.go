package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, routing RoutingClient, gateway PaymentGateway, connectors []Connector) *PaymentExecutor {
	t.Helper()
	registry, err := NewConnectorRegistry(connectors)
	require.NoError(t, err)
	return NewPaymentExecutor(routing, gateway, NewSeededCardSelector(1, 1), registry, nil, NewMetrics(nil), testLogger)
}

func testConfig() SimulationConfig {
	return SimulationConfig{
		TotalAttempts:       10,
		BatchSize:           5,
		MinAggregatesSize:   5,
		MaxAggregatesSize:   10,
		ExplorationPercent:  20,
		BlockThreshold:      BlockThreshold{DurationMinutes: 15, MaxTotalCount: 5},
		SuccessBasedRouting: true,
		Amount:              6540,
		Currency:            "USD",
		FailurePercentages:  map[string]float64{},
	}
}

var twoConnectors = []Connector{
	{ID: "mca_a", Name: "A", Enabled: true},
	{ID: "mca_b", Name: "B", Enabled: true},
}

func TestExecute_ExploitationPicksTopScore(t *testing.T) {
	routing := new(MockRoutingClient)
	gateway := new(MockPaymentGateway)
	exec := newTestExecutor(t, routing, gateway, twoConnectors)
	cfg := testConfig()
	cfg.FailurePercentages["B"] = 100

	routing.On("FetchRanking", mock.Anything, RankingRequest{
		Labels:             []string{"A", "B"},
		MinAggregatesSize:  5,
		ExplorationPercent: 20,
	}).Return(Ranking{
		Selected: "B",
		Approach: ApproachExploitation,
		Scores:   map[string]float64{"B": 80.123, "A": 60},
	})
	gateway.On("Submit", mock.Anything, mock.MatchedBy(func(req PaymentRequest) bool {
		return req.Routing != nil &&
			req.Routing.Connector == "B" &&
			req.Routing.MerchantConnectorID == "mca_b" &&
			req.Instrument == DefaultFailureInstrument
	})).Return(PaymentResponse{OK: true, Status: "failed", ConnectorName: "B", MerchantConnectorID: "mca_b"}, nil)
	routing.On("ReportOutcome", mock.Anything, OutcomeReport{
		Label:             "B",
		Success:           false,
		MaxAggregatesSize: 10,
		BlockThreshold:    BlockThreshold{DurationMinutes: 15, MaxTotalCount: 5},
	}).Return()

	var seq Sequencer
	outcome, err := exec.Execute(context.Background(), &seq, 1, twoConnectors, cfg)
	require.NoError(t, err)

	assert.Equal(t, int64(1), outcome.Sequence)
	assert.Equal(t, ApproachExploitation, outcome.Approach)
	assert.Equal(t, "mca_b", outcome.ConnectorID)
	assert.Equal(t, "B", outcome.ConnectorName)
	assert.False(t, outcome.Success)
	assert.Equal(t, "failed", outcome.Status)
	assert.Equal(t, 80.12, outcome.Scores["B"])
	routing.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestExecute_NoCandidatesUsesDefaultInstrument(t *testing.T) {
	routing := new(MockRoutingClient)
	gateway := new(MockPaymentGateway)
	exec := newTestExecutor(t, routing, gateway, nil)

	gateway.On("Submit", mock.Anything, mock.MatchedBy(func(req PaymentRequest) bool {
		return req.Routing == nil && req.Instrument == DefaultSuccessInstrument
	})).Return(PaymentResponse{OK: true, Status: "succeeded"}, nil)

	var seq Sequencer
	outcome, err := exec.Execute(context.Background(), &seq, 1, nil, testConfig())
	require.NoError(t, err)

	assert.Equal(t, ApproachUnknown, outcome.Approach)
	assert.Empty(t, outcome.ConnectorID)
	assert.Equal(t, "unknown", outcome.ConnectorName)
	assert.True(t, outcome.Success)
	routing.AssertNotCalled(t, "FetchRanking", mock.Anything, mock.Anything)
	routing.AssertNotCalled(t, "ReportOutcome", mock.Anything, mock.Anything)
}

func TestExecute_WithoutSuccessBasedRoutingNoOverride(t *testing.T) {
	routing := new(MockRoutingClient)
	gateway := new(MockPaymentGateway)
	exec := newTestExecutor(t, routing, gateway, twoConnectors)
	cfg := testConfig()
	cfg.SuccessBasedRouting = false
	cfg.FailurePercentages["A"] = 100

	routing.On("FetchRanking", mock.Anything, mock.Anything).
		Return(Ranking{Selected: "A", Approach: ApproachExploration})
	gateway.On("Submit", mock.Anything, mock.MatchedBy(func(req PaymentRequest) bool {
		return req.Routing == nil && req.Instrument == DefaultSuccessInstrument
	})).Return(PaymentResponse{OK: true, Status: "processing", ConnectorName: "A"}, nil)
	routing.On("ReportOutcome", mock.Anything, mock.MatchedBy(func(r OutcomeReport) bool {
		return r.Label == "A" && r.Success
	})).Return()

	var seq Sequencer
	outcome, err := exec.Execute(context.Background(), &seq, 1, twoConnectors, cfg)
	require.NoError(t, err)
	assert.True(t, outcome.Success, "processing counts as accepted")
	assert.Equal(t, "mca_a", outcome.ConnectorID)
	gateway.AssertExpectations(t)
}

func TestExecute_ConnectorResolution(t *testing.T) {
	tests := []struct {
		name       string
		resp       PaymentResponse
		wantLogged string
		wantID     string
		wantStatus string
		wantReport string
	}{
		{
			name:       "debug_headers_win",
			resp:       PaymentResponse{OK: true, Status: "succeeded", HeaderConnector: "A", HeaderStatus: "charged"},
			wantLogged: "A",
			wantID:     "mca_a",
			wantStatus: "charged",
			wantReport: "A",
		},
		{
			name:       "body_connector_name",
			resp:       PaymentResponse{OK: true, Status: "succeeded", ConnectorName: "B", MerchantConnectorID: "mca_x"},
			wantLogged: "B",
			wantID:     "mca_b",
			wantStatus: "succeeded",
			wantReport: "B",
		},
		{
			name:       "merchant_connector_id_only",
			resp:       PaymentResponse{OK: true, Status: "succeeded", MerchantConnectorID: "mca_b"},
			wantLogged: "mca_b",
			wantID:     "mca_b",
			wantStatus: "succeeded",
			wantReport: "B",
		},
		{
			name:       "unregistered_name_used_verbatim",
			resp:       PaymentResponse{OK: true, Status: "succeeded", ConnectorName: "paypal"},
			wantLogged: "paypal",
			wantID:     "paypal",
			wantStatus: "succeeded",
			wantReport: "paypal",
		},
		{
			name:       "nothing_reported",
			resp:       PaymentResponse{OK: false},
			wantLogged: "unknown",
			wantID:     "",
			wantStatus: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routing := new(MockRoutingClient)
			gateway := new(MockPaymentGateway)
			exec := newTestExecutor(t, routing, gateway, twoConnectors)

			routing.On("FetchRanking", mock.Anything, mock.Anything).Return(Ranking{Approach: ApproachUnknown})
			gateway.On("Submit", mock.Anything, mock.Anything).Return(tt.resp, nil)
			if tt.wantReport != "" {
				routing.On("ReportOutcome", mock.Anything, mock.MatchedBy(func(r OutcomeReport) bool {
					return r.Label == tt.wantReport
				})).Return().Once()
			}

			var seq Sequencer
			outcome, err := exec.Execute(context.Background(), &seq, 1, twoConnectors, testConfig())
			require.NoError(t, err)

			assert.Equal(t, tt.wantLogged, outcome.ConnectorName)
			assert.Equal(t, tt.wantID, outcome.ConnectorID)
			assert.Equal(t, tt.wantStatus, outcome.Status)
			if tt.wantReport == "" {
				routing.AssertNotCalled(t, "ReportOutcome", mock.Anything, mock.Anything)
			}
			routing.AssertExpectations(t)
		})
	}
}

func TestExecute_SubmitErrorIsReturned(t *testing.T) {
	routing := new(MockRoutingClient)
	gateway := new(MockPaymentGateway)
	exec := newTestExecutor(t, routing, gateway, twoConnectors)

	routing.On("FetchRanking", mock.Anything, mock.Anything).Return(Ranking{Approach: ApproachUnknown})
	gateway.On("Submit", mock.Anything, mock.Anything).Return(PaymentResponse{}, errors.New("invalid character '<'"))

	var seq Sequencer
	_, err := exec.Execute(context.Background(), &seq, 7, twoConnectors, testConfig())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCancelled)
	assert.Equal(t, int64(0), seq.Current(), "no sequence number for an attempt that did not settle")
	routing.AssertNotCalled(t, "ReportOutcome", mock.Anything, mock.Anything)
}

func TestExecute_CancellationIsDistinguished(t *testing.T) {
	routing := new(MockRoutingClient)
	gateway := new(MockPaymentGateway)
	exec := newTestExecutor(t, routing, gateway, twoConnectors)

	ctx, cancel := context.WithCancel(context.Background())
	routing.On("FetchRanking", mock.Anything, mock.Anything).Return(Ranking{Approach: ApproachUnknown})
	gateway.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(PaymentResponse{}, context.Canceled)

	var seq Sequencer
	_, err := exec.Execute(ctx, &seq, 1, twoConnectors, testConfig())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), seq.Current())
}

func TestExecute_LimiterWaitCancelled(t *testing.T) {
	routing := new(MockRoutingClient)
	gateway := new(MockPaymentGateway)
	registry, err := NewConnectorRegistry(nil)
	require.NoError(t, err)
	limiter := NewAttemptLimiter(0.001)
	require.NotNil(t, limiter)
	require.True(t, limiter.Allow(), "drain the single token")

	exec := NewPaymentExecutor(routing, gateway, NewSeededCardSelector(1, 1), registry, limiter, NewMetrics(nil), testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var seq Sequencer
	_, err = exec.Execute(ctx, &seq, 1, nil, testConfig())
	assert.ErrorIs(t, err, ErrCancelled)
	gateway.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestNewAttemptLimiter(t *testing.T) {
	assert.Nil(t, NewAttemptLimiter(0))
	assert.Nil(t, NewAttemptLimiter(-1))

	l := NewAttemptLimiter(20)
	require.NotNil(t, l)
	assert.Equal(t, 20, l.Burst())
}

func TestApproachFromCode(t *testing.T) {
	assert.Equal(t, ApproachExploration, ApproachFromCode(0))
	assert.Equal(t, ApproachExploitation, ApproachFromCode(1))
	assert.Equal(t, ApproachUnknown, ApproachFromCode(2))
	assert.Equal(t, ApproachUnknown, ApproachFromCode(-1))
}
