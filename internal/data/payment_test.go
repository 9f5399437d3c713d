package data

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"RouteSim/internal/biz"
	perrors "RouteSim/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPaymentRequest() biz.PaymentRequest {
	return biz.PaymentRequest{
		Index:      7,
		RunID:      "run-1",
		Amount:     6540,
		Currency:   "USD",
		Instrument: biz.DefaultSuccessInstrument,
		Routing:    &biz.RoutingOverride{Connector: "stripe", MerchantConnectorID: "mca_stripe"},
	}
}

func TestPaymentClient_Submit(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "snd_test_key", r.Header.Get("api-key"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))

		w.Header().Set("x-simulation-payment-status", "succeeded")
		w.Header().Set("x-simulation-payment-connector", "stripe")
		_, _ = w.Write([]byte(`{"status":"succeeded","connector_name":"stripe","merchant_connector_id":"mca_stripe"}`))
	}))
	defer server.Close()

	client := NewPaymentClient(newTestData(t, server.URL), log.DefaultLogger)
	resp, err := client.Submit(context.Background(), testPaymentRequest())
	require.NoError(t, err)

	assert.Equal(t, biz.PaymentResponse{
		OK:                  true,
		Status:              "succeeded",
		ConnectorName:       "stripe",
		MerchantConnectorID: "mca_stripe",
		HeaderStatus:        "succeeded",
		HeaderConnector:     "stripe",
	}, resp)

	assert.Equal(t, 6540.0, received["amount"])
	assert.Equal(t, "USD", received["currency"])
	assert.Equal(t, true, received["confirm"])
	assert.Equal(t, "pro_test", received["profile_id"])
	assert.Equal(t, "automatic", received["capture_method"])
	assert.Equal(t, "no_three_ds", received["authentication_type"])
	assert.Equal(t, "card", received["payment_method"])
	assert.Equal(t, "credit", received["payment_method_type"])

	cust := received["customer"].(map[string]interface{})
	assert.Equal(t, "cus_sim_run1_7", cust["id"])

	pmd := received["payment_method_data"].(map[string]interface{})
	card := pmd["card"].(map[string]interface{})
	assert.Equal(t, biz.DefaultSuccessInstrument.Number, card["card_number"])
	assert.Equal(t, biz.DefaultSuccessInstrument.CVC, card["card_cvc"])
	billingAddr := pmd["billing"].(map[string]interface{})["address"].(map[string]interface{})
	assert.Equal(t, "San Francisco", billingAddr["city"])

	routing := received["routing"].(map[string]interface{})
	assert.Equal(t, "single", routing["type"])
	assert.Equal(t, map[string]interface{}{"connector": "stripe", "merchant_connector_id": "mca_stripe"}, routing["data"])
}

func TestPaymentClient_Submit_NoRoutingOverride(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		_, _ = w.Write([]byte(`{"status":"processing","connector_name":"adyen"}`))
	}))
	defer server.Close()

	req := testPaymentRequest()
	req.Routing = nil

	client := NewPaymentClient(newTestData(t, server.URL), log.DefaultLogger)
	resp, err := client.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.NotContains(t, received, "routing")
	assert.True(t, resp.OK)
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, "adyen", resp.ConnectorName)
	assert.Empty(t, resp.HeaderConnector)
}

func TestPaymentClient_Submit_Declined(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   biz.PaymentResponse
	}{
		{
			name:   "json error body",
			status: http.StatusBadRequest,
			body:   `{"status":"failed","connector_name":"adyen"}`,
			want:   biz.PaymentResponse{Status: "failed", ConnectorName: "adyen"},
		},
		{
			name:   "plain text error body",
			status: http.StatusBadGateway,
			body:   `upstream unavailable`,
			want:   biz.PaymentResponse{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewPaymentClient(newTestData(t, server.URL), log.DefaultLogger)
			resp, err := client.Submit(context.Background(), testPaymentRequest())
			require.NoError(t, err, "a declined payment is a response, not an error")
			assert.Equal(t, tt.want, resp)
		})
	}
}

func TestPaymentClient_Submit_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":`))
	}))
	defer server.Close()

	client := NewPaymentClient(newTestData(t, server.URL), log.DefaultLogger)
	_, err := client.Submit(context.Background(), testPaymentRequest())
	require.Error(t, err)
	assert.Equal(t, perrors.ErrorTypeDecode, perrors.ClassifyUpstreamError(err))
}

func TestPaymentClient_Submit_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewPaymentClient(newTestData(t, url), log.DefaultLogger)
	_, err := client.Submit(context.Background(), testPaymentRequest())
	require.Error(t, err)
	assert.Equal(t, perrors.ErrorTypeConnection, perrors.ClassifyUpstreamError(err))
}

func TestPaymentClient_Submit_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewPaymentClient(newTestData(t, server.URL), log.DefaultLogger)
	_, err := client.Submit(ctx, testPaymentRequest())
	require.Error(t, err)
	assert.True(t, perrors.IsCancelled(err))
}

func TestCustomerID(t *testing.T) {
	assert.Equal(t, "cus_sim_abc123_4", customerID(biz.PaymentRequest{RunID: "abc-123", Index: 4}))

	generated := customerID(biz.PaymentRequest{Index: 1})
	assert.Regexp(t, `^cus_sim_[0-9a-f]{32}_1$`, generated)
}
