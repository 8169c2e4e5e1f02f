package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrorKind is the closed classification every failed call is reduced to at
// the network boundary. All downstream logic (retry, refresh, notification)
// consumes kinds, never raw response shapes.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUnauthenticated
	KindForbidden
	KindRateLimited
	KindServerError
	KindTimeout
	KindValidationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	case KindTimeout:
		return "timeout"
	case KindValidationFailed:
		return "validation_failed"
	default:
		return "unknown"
	}
}

// APIError is the tagged error produced once per failed call.
type APIError struct {
	Kind   ErrorKind
	Status int // 0 means the failure never produced an HTTP status
	// Fields carries structured validation errors on KindValidationFailed,
	// passed through unmodified from the backend.
	Fields map[string][]string
	cause  error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("api error (%s, status %d): %v", e.Kind, e.Status, e.cause)
	}
	return fmt.Sprintf("api error (%s, status %d)", e.Kind, e.Status)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Retryable reports whether the failure permits automatic re-issuance of the
// request. 403 is included because a stale session can surface as Forbidden
// on some backends; the retry path refreshes the session first.
func (e *APIError) Retryable() bool {
	if e.Kind == KindTimeout {
		return true
	}
	switch {
	case e.Status == 0, e.Status == 429, e.Status == 403, e.Status > 500:
		return true
	}
	return false
}

// classify reduces a transport error or a non-2xx response to an APIError.
func classify(resp *Response, err error) *APIError {
	if err != nil {
		if isTimeout(err) {
			return &APIError{Kind: KindTimeout, Status: 0, cause: err}
		}
		return &APIError{Kind: KindUnknown, Status: 0, cause: err}
	}

	switch {
	case resp.StatusCode == 401:
		return &APIError{Kind: KindUnauthenticated, Status: resp.StatusCode}
	case resp.StatusCode == 403:
		return &APIError{Kind: KindForbidden, Status: resp.StatusCode}
	case resp.StatusCode == 422:
		return &APIError{Kind: KindValidationFailed, Status: resp.StatusCode, Fields: parseValidationFields(resp.Body)}
	case resp.StatusCode == 429:
		return &APIError{Kind: KindRateLimited, Status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &APIError{Kind: KindServerError, Status: resp.StatusCode}
	default:
		return &APIError{Kind: KindUnknown, Status: resp.StatusCode}
	}
}

func parseValidationFields(body []byte) map[string][]string {
	var payload struct {
		Errors map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
