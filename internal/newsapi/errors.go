package newsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrClientDisabled is returned after an authentication failure.
	ErrClientDisabled = errors.New("news api client disabled")
	// ErrMissingAPIKey is returned by NewClient without an API key.
	ErrMissingAPIKey = errors.New("news api key is required")
	// ErrNoCache is returned by NewClient without a budget cache.
	ErrNoCache = errors.New("news api client requires a budget cache")
)

// ErrorKind classifies API failures.
type ErrorKind string

const (
	// KindAuth is fatal; the client disables itself.
	KindAuth ErrorKind = "auth"
	// KindRateLimit opens the breaker for the cooldown.
	KindRateLimit ErrorKind = "rate_limit"
	// KindParameter means the request was rejected as malformed.
	KindParameter ErrorKind = "parameter"
	// KindNetwork is transient.
	KindNetwork ErrorKind = "network"
)

// APIError is a classified API failure.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Code       string
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "news api %s error", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Cause }

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind reports whether err is an *APIError of kind.
func IsKind(err error, kind ErrorKind) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == kind
}

// classify maps an error body code and HTTP status to a kind. The body
// code wins when it is recognised.
func classify(status int, code string) ErrorKind {
	switch strings.ToLower(code) {
	case "unauthorized", "apikeyinvalid", "apikeymissing", "apikeydisabled", "forbidden":
		return KindAuth
	case "ratelimitexceeded", "apilimitexceeded", "toomanyrequests":
		return KindRateLimit
	case "unsupportedparameter", "unsupportedfilter", "parameterinvalid", "parametermissing", "invalidparameter":
		return KindParameter
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusNotFound:
		return KindParameter
	default:
		return KindNetwork
	}
}

func networkError(err error) *APIError {
	msg := ""
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "timeout"
	}
	return &APIError{Kind: KindNetwork, Message: msg, Cause: err}
}
