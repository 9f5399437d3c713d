package biz

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/mock"
)

var testLogger = log.NewStdLogger(io.Discard)

var validUpstream = UpstreamSettings{
	BaseURL:    "https://sandbox.example.test",
	APIKey:     "snd_test",
	ProfileID:  "pro_test",
	MerchantID: "merchant_test",
}

// MockRoutingClient is a mock implementation of RoutingClient for testing.
type MockRoutingClient struct {
	mock.Mock
}

func (m *MockRoutingClient) FetchRanking(ctx context.Context, req RankingRequest) Ranking {
	args := m.Called(ctx, req)
	return args.Get(0).(Ranking)
}

func (m *MockRoutingClient) ReportOutcome(ctx context.Context, report OutcomeReport) {
	m.Called(ctx, report)
}

// MockPaymentGateway is a mock implementation of PaymentGateway for testing.
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Submit(ctx context.Context, req PaymentRequest) (PaymentResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(PaymentResponse), args.Error(1)
}

// MockSummarizer is a mock implementation of Summarizer for testing.
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, in SummaryInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

// roundRobinRouter selects candidate labels in turn with fixed scores and
// records every report.
type roundRobinRouter struct {
	next    atomic.Int64
	mu      sync.Mutex
	reports []OutcomeReport
}

func (r *roundRobinRouter) FetchRanking(_ context.Context, req RankingRequest) Ranking {
	if len(req.Labels) == 0 {
		return Ranking{Approach: ApproachUnknown}
	}
	i := int(r.next.Add(1)-1) % len(req.Labels)
	scores := make(map[string]float64, len(req.Labels))
	for j, label := range req.Labels {
		scores[label] = float64(50 + j)
	}
	return Ranking{Selected: req.Labels[i], Approach: ApproachExploration, Scores: scores}
}

func (r *roundRobinRouter) ReportOutcome(_ context.Context, report OutcomeReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *roundRobinRouter) reportCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

// sandboxGateway declines the default failure card and accepts everything
// else, echoing the pinned connector. While block is set every submission
// waits for cancellation.
type sandboxGateway struct {
	calls atomic.Int64
	block atomic.Bool
	// blockAfter makes submissions past this many calls block.
	blockAfter atomic.Int64
}

func (g *sandboxGateway) Submit(ctx context.Context, req PaymentRequest) (PaymentResponse, error) {
	n := g.calls.Add(1)
	if g.block.Load() || (g.blockAfter.Load() > 0 && n > g.blockAfter.Load()) {
		<-ctx.Done()
		return PaymentResponse{}, ctx.Err()
	}

	resp := PaymentResponse{OK: true, Status: "succeeded"}
	if req.Instrument.Number == DefaultFailureInstrument.Number {
		resp.Status = "failed"
	}
	if req.Routing != nil {
		resp.ConnectorName = req.Routing.Connector
		resp.MerchantConnectorID = req.Routing.MerchantConnectorID
	}
	return resp, nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []AuditEventType
}

func (a *recordingAudit) LogRunEvent(_ context.Context, _ string, event AuditEventType, _ map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *recordingAudit) Events() []AuditEventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AuditEventType(nil), a.events...)
}

type recordingProgress struct {
	mu        sync.Mutex
	snapshots []ProgressSnapshot
}

func (p *recordingProgress) Publish(_ context.Context, s ProgressSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, s)
}

func (p *recordingProgress) Last() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) == 0 {
		return ProgressSnapshot{}
	}
	return p.snapshots[len(p.snapshots)-1]
}

// slowProgress records snapshots after a fixed delay, keeping the drive loop
// busy after each fold.
type slowProgress struct {
	recordingProgress
	delay time.Duration
}

func (p *slowProgress) Publish(ctx context.Context, s ProgressSnapshot) {
	time.Sleep(p.delay)
	p.recordingProgress.Publish(ctx, s)
}

// syncBuffer is a log sink safe to read while the drive loop writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
