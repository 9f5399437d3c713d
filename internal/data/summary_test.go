package data

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"RouteSim/internal/biz"
	"RouteSim/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

func newTestSummaryClient(t *testing.T, endpoint string) *SummaryClient {
	t.Helper()
	client := NewSummaryClient(newTestData(t, "http://127.0.0.1:1"), &conf.Summary{
		Endpoint:   endpoint,
		Timeout:    durationpb.New(5 * time.Second),
		MaxRetries: 3,
	}, log.DefaultLogger)
	client.delay = time.Millisecond
	return client
}

func TestSummaryClient_Summarize(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		_, _ = w.Write([]byte(`{"summaryText":"  stripe carried the run.  "}`))
	}))
	defer server.Close()

	text, err := newTestSummaryClient(t, server.URL).Summarize(context.Background(), biz.SummaryInput{
		TotalPaymentsProcessed: 10,
		TargetTotalPayments:    10,
		OverallSuccessRate:     80,
		ProcessorMetrics:       []biz.ProcessorMetric{{Name: "stripe", Volume: 10, ObservedSR: 80, BaseSR: 90}},
	})
	require.NoError(t, err)
	assert.Equal(t, "stripe carried the run.", text)

	assert.Equal(t, 10.0, received["totalPaymentsProcessed"])
	assert.Equal(t, 80.0, received["overallSuccessRate"])
	metrics := received["processorMetrics"].([]interface{})
	require.Len(t, metrics, 1)
	assert.Equal(t, "stripe", metrics[0].(map[string]interface{})["name"])
}

func TestSummaryClient_Disabled(t *testing.T) {
	_, err := newTestSummaryClient(t, "").Summarize(context.Background(), biz.SummaryInput{})
	assert.ErrorIs(t, err, ErrSummaryDisabled)
}

func TestSummaryClient_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"summaryText":"done"}`))
	}))
	defer server.Close()

	text, err := newTestSummaryClient(t, server.URL).Summarize(context.Background(), biz.SummaryInput{})
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, int32(2), hits.Load())
}

func TestSummaryClient_EmptyText(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"summaryText":""}`))
	}))
	defer server.Close()

	_, err := newTestSummaryClient(t, server.URL).Summarize(context.Background(), biz.SummaryInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty summaryText")
	assert.Equal(t, int32(1), hits.Load(), "decode errors are not retried")
}

func TestNewSummaryClient_Defaults(t *testing.T) {
	client := NewSummaryClient(newTestData(t, "http://127.0.0.1:1"), nil, log.DefaultLogger)
	assert.Empty(t, client.endpoint)
	assert.Equal(t, defaultSummaryTimeout, client.timeout)
	assert.Equal(t, uint(defaultSummaryRetries), client.attempts)
}
