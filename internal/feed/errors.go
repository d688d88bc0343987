package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a feed fetch failure.
type ErrorKind string

const (
	KindTimeout          ErrorKind = "timeout"
	KindDNSError         ErrorKind = "dns_error"
	KindNetwork          ErrorKind = "network"
	KindHTTPError        ErrorKind = "http_error"
	KindHTMLInsteadOfXML ErrorKind = "html_instead_of_xml"
	KindParseError       ErrorKind = "parse_error"
	KindEmptyFeed        ErrorKind = "empty_feed"
)

// FetchError is a classified feed fetch failure.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	URL        string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("feed fetch %s: HTTP %d for %s", e.Kind, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("feed fetch %s: %v for %s", e.Kind, e.Cause, e.URL)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Retryable reports whether another attempt could succeed. A server that
// answers with an HTML page will keep doing so, and an empty feed does not
// fill up within a backoff window.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindHTMLInsteadOfXML, KindEmptyFeed:
		return false
	default:
		return true
	}
}

// Class is the reporting class. Empty feeds are reported as parse failures.
func (e *FetchError) Class() ErrorKind {
	if e.Kind == KindEmptyFeed {
		return KindParseError
	}
	return e.Kind
}

// ClassifyTransportError maps a request error to a FetchError.
func ClassifyTransportError(err error, url string) *FetchError {
	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.As(err, &dnsErr) && !dnsErr.IsTimeout:
		return &FetchError{Kind: KindDNSError, URL: url, Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: KindTimeout, URL: url, Cause: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &FetchError{Kind: KindTimeout, URL: url, Cause: err}
	default:
		return &FetchError{Kind: KindNetwork, URL: url, Cause: err}
	}
}

// ClassifyHTTPStatus maps a non-success status to a FetchError.
func ClassifyHTTPStatus(status int, url string) *FetchError {
	return &FetchError{Kind: KindHTTPError, StatusCode: status, URL: url, Cause: fmt.Errorf("HTTP %d", status)}
}

// AsFetchError extracts a FetchError, wrapping unknown errors as network failures.
func AsFetchError(err error, url string) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return ClassifyTransportError(err, url)
}
