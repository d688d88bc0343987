package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jonesrussell/newsgate/internal/cache"
	"github.com/jonesrussell/newsgate/internal/httpclient"
)

// maxBodyBytes caps how much of a feed body is read.
const maxBodyBytes = 10 << 20

// Response is the result of a single feed GET.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
	Validators  cache.Validators
}

// HTTPFetcher performs conditional GETs with a rotating User-Agent.
type HTTPFetcher struct {
	client *http.Client
	agents *httpclient.UserAgents
}

// NewHTTPFetcher creates a fetcher backed by client.
func NewHTTPFetcher(client *http.Client, agents *httpclient.UserAgents) *HTTPFetcher {
	if client == nil {
		client = httpclient.NewClient(nil)
	}
	if agents == nil {
		agents = httpclient.NewUserAgents(nil)
	}
	return &HTTPFetcher{client: client, agents: agents}
}

// Fetch issues a GET, sending If-None-Match and If-Modified-Since when
// validators are set. Transport failures are returned as *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, validators cache.Validators) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new feed request: %w", err)
	}

	req.Header.Set("User-Agent", f.agents.Next())
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")
	setConditionalHeaders(req, validators)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, ClassifyTransportError(err, url)
	}
	defer resp.Body.Close()

	out := &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Validators: cache.Validators{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		},
	}

	if resp.StatusCode != http.StatusNotModified {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, ClassifyTransportError(readErr, url)
		}
		out.Body = body
	}
	return out, nil
}

func setConditionalHeaders(req *http.Request, v cache.Validators) {
	if v.ETag != "" {
		req.Header.Set("If-None-Match", v.ETag)
	}
	if v.LastModified != "" {
		req.Header.Set("If-Modified-Since", v.LastModified)
	}
}
