package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"RouteSim/internal/biz"
	perrors "RouteSim/pkg/errors"
	plog "RouteSim/pkg/log"

	"github.com/avast/retry-go/v5"
	"github.com/go-kratos/kratos/v2/log"
)

const (
	opListConnectors = "list_connectors"

	listConnectorsAttempts = 3
	listConnectorsDelay    = 500 * time.Millisecond
)

type merchantConnector struct {
	MerchantConnectorID string `json:"merchant_connector_id"`
	ConnectorName       string `json:"connector_name"`
	ConnectorLabel      string `json:"connector_label"`
	ConnectorType       string `json:"connector_type"`
	Disabled            bool   `json:"disabled"`
}

// ConnectorClient implements biz.ConnectorLister against the profile
// connectors endpoint of the payments API.
type ConnectorClient struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	profileID  string
	merchantID string
	attempts   uint
	delay      time.Duration
	log        *plog.LogHelper
}

// NewConnectorClient creates a connector lister.
func NewConnectorClient(d *Data, logger log.Logger) *ConnectorClient {
	return &ConnectorClient{
		client:     d.httpClient,
		baseURL:    d.upstream.BaseURL,
		apiKey:     d.upstream.APIKey,
		profileID:  d.upstream.ProfileID,
		merchantID: d.upstream.MerchantID,
		attempts:   listConnectorsAttempts,
		delay:      listConnectorsDelay,
		log:        plog.NewLogHelper(logger),
	}
}

// ListConnectors implements biz.ConnectorLister. Connection failures, 429 and
// 5xx answers are retried with backoff; anything else fails at once.
func (c *ConnectorClient) ListConnectors(ctx context.Context) ([]biz.Connector, error) {
	var missing []string
	if c.merchantID == "" {
		missing = append(missing, "PAYMENTS_MERCHANT_ID is required to list connectors")
	}
	if c.profileID == "" {
		missing = append(missing, "PAYMENTS_PROFILE_ID is required to list connectors")
	}
	if len(missing) > 0 {
		return nil, biz.NewConfigurationError(missing...)
	}

	endpoint := joinURL(c.baseURL, fmt.Sprintf("/account/%s/profile/connectors", url.PathEscape(c.merchantID)))
	headers := map[string]string{
		headerAPIKey:    c.apiKey,
		headerProfileID: c.profileID,
	}

	var listed []merchantConnector
	attempt := 0
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(perrors.IsRetryable),
		retry.LastErrorOnly(true),
	).Do(func() error {
		attempt++
		start := time.Now()
		resp, err := doJSON(ctx, c.client, http.MethodGet, endpoint, headers, nil, opListConnectors)
		if err != nil {
			c.log.Warnw("msg", "connector listing failed", "attempt", attempt, "error", err)
			return err
		}
		c.log.Request(http.MethodGet, endpoint, resp.StatusCode, time.Since(start).Milliseconds(), "attempt", attempt)
		if !resp.OK() {
			return perrors.NewHTTPStatusError(opListConnectors, resp.StatusCode, resp.Body)
		}
		if err := json.Unmarshal(resp.Body, &listed); err != nil {
			return perrors.NewDecodeError(opListConnectors, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	connectors := make([]biz.Connector, 0, len(listed))
	for _, mc := range listed {
		key := mc.MerchantConnectorID
		if key == "" {
			key = mc.ConnectorName
		}
		if key == "" {
			continue
		}
		connectors = append(connectors, biz.Connector{
			ID:      key,
			Name:    mc.ConnectorName,
			Label:   mc.ConnectorLabel,
			Type:    mc.ConnectorType,
			Enabled: !mc.Disabled,
		})
	}

	c.log.Connector("connectors listed", "count", len(connectors), "attempts", attempt)
	return connectors, nil
}
