// Package httpclient builds the outbound HTTP clients used by fetchers.
package httpclient

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 15 * time.Second

	DefaultMaxIdleConns          = 100
	DefaultMaxIdleConnsPerHost   = 10
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultExpectContinueTimeout = time.Second
)

// ClientConfig configures an HTTP client.
type ClientConfig struct {
	// Timeout is the whole-request limit. Zero uses DefaultTimeout.
	Timeout time.Duration
	// MaxIdleConnsPerHost controls keep-alive reuse per upstream host.
	MaxIdleConnsPerHost int
	// ResponseHeaderTimeout, if non-zero, limits the wait for response headers.
	ResponseHeaderTimeout time.Duration
}

// NewClient creates an HTTP client with pooled transport settings.
// A nil cfg uses defaults.
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	perHost := cfg.MaxIdleConnsPerHost
	if perHost == 0 {
		perHost = DefaultMaxIdleConnsPerHost
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: DefaultExpectContinueTimeout,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
