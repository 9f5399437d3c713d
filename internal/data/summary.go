package data

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"RouteSim/internal/biz"
	"RouteSim/internal/conf"
	perrors "RouteSim/pkg/errors"
	plog "RouteSim/pkg/log"

	"github.com/avast/retry-go/v5"
	"github.com/go-kratos/kratos/v2/log"
)

const (
	opSummarize = "summarize"

	defaultSummaryTimeout = time.Minute
	defaultSummaryRetries = 3
	summaryRetryDelay     = time.Second
)

// ErrSummaryDisabled is returned when no summary endpoint is configured.
var ErrSummaryDisabled = errors.New("summary: endpoint not configured")

type summaryResponse struct {
	SummaryText string `json:"summaryText"`
}

// SummaryClient implements biz.Summarizer by posting the run input to a
// narrative generation service.
type SummaryClient struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
	attempts uint
	delay    time.Duration
	log      *plog.LogHelper
}

// NewSummaryClient creates a summary client.
func NewSummaryClient(d *Data, c *conf.Summary, logger log.Logger) *SummaryClient {
	client := &SummaryClient{
		client:   d.httpClient,
		timeout:  defaultSummaryTimeout,
		attempts: defaultSummaryRetries,
		delay:    summaryRetryDelay,
		log:      plog.NewLogHelper(logger),
	}
	if c != nil {
		client.endpoint = c.Endpoint
		if c.Timeout != nil && c.Timeout.AsDuration() > 0 {
			client.timeout = c.Timeout.AsDuration()
		}
		if c.MaxRetries > 0 {
			client.attempts = c.MaxRetries
		}
	}
	return client
}

// Summarize implements biz.Summarizer.
func (c *SummaryClient) Summarize(ctx context.Context, in biz.SummaryInput) (string, error) {
	if c.endpoint == "" {
		return "", ErrSummaryDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var text string
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(perrors.IsRetryable),
		retry.LastErrorOnly(true),
	).Do(func() error {
		resp, err := doJSON(ctx, c.client, http.MethodPost, c.endpoint, nil, in, opSummarize)
		if err != nil {
			return err
		}
		if !resp.OK() {
			return perrors.NewHTTPStatusError(opSummarize, resp.StatusCode, resp.Body)
		}
		var parsed summaryResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return perrors.NewDecodeError(opSummarize, err)
		}
		text = strings.TrimSpace(parsed.SummaryText)
		if text == "" {
			return perrors.NewDecodeError(opSummarize, errors.New("empty summaryText"))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	c.log.Summary("summary received", "logs", len(in.TransactionLogs), "length", len(text))
	return text, nil
}
