package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/kasir-bff/internal/common"
	"github.com/noah-isme/kasir-bff/internal/obs"
	"github.com/noah-isme/kasir-bff/internal/resilience"
)

// Client talks to the API server that owns the catalog, stock and
// transaction data. Every request carries the session's bearer token; the
// BFF holds no credentials of its own.
type Client struct {
	BaseURL string
	HTTP    resilience.HTTPClient
}

// New builds a client around the given base URL with a shared breaker
// targeting the API server.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{},
			Breaker:     resilience.NewBreaker(5, 0.5, 15*time.Second).WithTarget("api-server"),
			MaxAttempts: 2,
			BaseBackoff: 150 * time.Millisecond,
			Jitter:      0.2,
			Timeout:     timeout,
		},
	}
}

// Do issues a request against the API server. The bearer token is read from
// the request context; requests without one go out unauthenticated and the
// upstream responds with its own 401.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	if c == nil || c.BaseURL == "" {
		return nil, errors.New("upstream client not configured")
	}
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := common.Token(ctx); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resource := resourceLabel(path)
	start := time.Now()
	resp, err := c.HTTP.Do(ctx, req)
	if obs.UpstreamLatency != nil {
		obs.UpstreamLatency.WithLabelValues(resource).Observe(obs.DurationMillis(time.Since(start)))
	}
	if obs.UpstreamRequestTotal != nil {
		result := "ok"
		switch {
		case err != nil:
			result = "error"
		case resp.StatusCode >= 400:
			result = "upstream_4xx_5xx"
		}
		obs.UpstreamRequestTotal.WithLabelValues(resource, result).Inc()
	}
	return resp, err
}

func resourceLabel(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i > 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "root"
	}
	return trimmed
}
