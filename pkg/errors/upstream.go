// Package errors classifies failures of outbound calls and storage writes so
// they can be logged and counted under a small fixed set of labels.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
)

// UpstreamErrorType is the label of a failed upstream call.
type UpstreamErrorType string

const (
	// ErrorTypeCancelled means the caller's context was cancelled.
	ErrorTypeCancelled UpstreamErrorType = "cancelled"
	// ErrorTypeTimeout means a deadline expired before a response arrived.
	ErrorTypeTimeout UpstreamErrorType = "timeout"
	// ErrorTypeConnection means the peer could not be reached.
	ErrorTypeConnection UpstreamErrorType = "connection"
	// ErrorTypeDecode means the response body was malformed.
	ErrorTypeDecode UpstreamErrorType = "decode"
	// ErrorTypeHTTPStatus means the peer answered with a non-2xx status.
	ErrorTypeHTTPStatus UpstreamErrorType = "http_status"
	// ErrorTypeBreakerOpen means the call was short-circuited by a circuit breaker.
	ErrorTypeBreakerOpen UpstreamErrorType = "breaker_open"
	// ErrorTypeUnknown covers everything else.
	ErrorTypeUnknown UpstreamErrorType = "unknown"
)

// UpstreamError wraps a failed call with its operation name and classification.
type UpstreamError struct {
	Op         string
	Type       UpstreamErrorType
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	switch {
	case e.Type == ErrorTypeHTTPStatus:
		return fmt.Sprintf("%s failed (HTTP %d): %s", e.Op, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Type, e.Err)
	default:
		return fmt.Sprintf("%s failed (%s)", e.Op, e.Type)
	}
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewHTTPStatusError records a non-2xx answer. Long bodies are truncated.
func NewHTTPStatusError(op string, statusCode int, body []byte) *UpstreamError {
	text := strings.TrimSpace(string(body))
	if len(text) > 512 {
		text = text[:512] + "..."
	}
	return &UpstreamError{Op: op, Type: ErrorTypeHTTPStatus, StatusCode: statusCode, Body: text}
}

// NewDecodeError records a response body that could not be parsed.
func NewDecodeError(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Type: ErrorTypeDecode, Err: err}
}

// Wrap classifies err and attaches the operation name. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return err
	}
	return &UpstreamError{Op: op, Type: ClassifyUpstreamError(err), Err: err}
}

// ClassifyUpstreamError maps err onto one of the UpstreamErrorType labels.
// It returns an empty label for a nil error.
func ClassifyUpstreamError(err error) UpstreamErrorType {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) {
		return ErrorTypeCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrorTypeBreakerOpen
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Type
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrorTypeConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorTypeConnection
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ErrorTypeConnection
	}

	return ErrorTypeUnknown
}

// IsRetryable reports whether repeating the call may succeed:
// connection failures, timeouts, 429 and 5xx answers.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch ClassifyUpstreamError(err) {
	case ErrorTypeConnection, ErrorTypeTimeout:
		return true
	case ErrorTypeHTTPStatus:
		var upErr *UpstreamError
		if errors.As(err, &upErr) {
			return upErr.StatusCode == 429 || upErr.StatusCode >= 500
		}
	}
	return false
}

// IsCancelled reports whether err stems from a cancelled context.
func IsCancelled(err error) bool {
	return ClassifyUpstreamError(err) == ErrorTypeCancelled
}
