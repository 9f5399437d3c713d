package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	perrors "RouteSim/pkg/errors"
)

const (
	// UserAgent is sent with every upstream call.
	UserAgent = "RouteSim/1.0"

	headerAPIKey    = "api-key"
	headerProfileID = "x-profile-id"
	headerFeature   = "x-feature"

	maxResponseBody = 4 << 20
)

// upstreamResponse is a raw upstream answer.
type upstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx answer.
func (r *upstreamResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// doJSON sends payload (nil for no body) as JSON and reads the whole answer.
// Transport failures come back classified under op; the status is not checked.
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, payload interface{}, op string) (*upstreamResponse, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, perrors.Wrap(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, perrors.Wrap(op, err)
	}

	return &upstreamResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

// joinURL appends path to base without doubling the slash.
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
