package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"RouteSim/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnectorClient(t *testing.T, baseURL string) *ConnectorClient {
	t.Helper()
	client := NewConnectorClient(newTestData(t, baseURL), log.DefaultLogger)
	client.delay = time.Millisecond
	return client
}

func TestConnectorClient_ListConnectors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/account/merchant_test/profile/connectors", r.URL.Path)
		assert.Equal(t, "snd_test_key", r.Header.Get("api-key"))
		assert.Equal(t, "pro_test", r.Header.Get("x-profile-id"))

		_, _ = w.Write([]byte(`[
			{"merchant_connector_id":"mca_1","connector_name":"stripe","connector_label":"stripe_US","connector_type":"payment_processor","disabled":false},
			{"connector_name":"adyen","disabled":true},
			{"connector_label":"orphan"}
		]`))
	}))
	defer server.Close()

	connectors, err := newTestConnectorClient(t, server.URL).ListConnectors(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []biz.Connector{
		{ID: "mca_1", Name: "stripe", Label: "stripe_US", Type: "payment_processor", Enabled: true},
		{ID: "adyen", Name: "adyen", Enabled: false},
	}, connectors)
}

func TestConnectorClient_RetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"merchant_connector_id":"mca_1","connector_name":"stripe"}]`))
	}))
	defer server.Close()

	connectors, err := newTestConnectorClient(t, server.URL).ListConnectors(context.Background())
	require.NoError(t, err)
	assert.Len(t, connectors, 1)
	assert.Equal(t, int32(3), hits.Load())
}

func TestConnectorClient_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer server.Close()

	_, err := newTestConnectorClient(t, server.URL).ListConnectors(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
	assert.Equal(t, int32(1), hits.Load())
}

func TestConnectorClient_GivesUpAfterAttempts(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestConnectorClient(t, server.URL).ListConnectors(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(listConnectorsAttempts), hits.Load())
}

func TestConnectorClient_MissingCredentials(t *testing.T) {
	d := newTestData(t, "http://127.0.0.1:1")
	d.upstream.MerchantID = ""

	_, err := NewConnectorClient(d, log.DefaultLogger).ListConnectors(context.Background())
	require.Error(t, err)
	assert.True(t, biz.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "PAYMENTS_MERCHANT_ID")
}
