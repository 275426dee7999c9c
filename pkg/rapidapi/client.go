// Package rapidapi provides clients for job search APIs published on
// RapidAPI: JSearch and Active Jobs DB.
package rapidapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

// Option configures a client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) { c.retry = p }
}

// httpClient signs GET requests with the RapidAPI headers. The host header
// is derived from the base URL.
type httpClient struct {
	service string
	apiKey  string
	baseURL string
	host    string
	http    *http.Client
	retry   resilience.Policy
}

func newHTTPClient(service, apiKey, baseURL string, opts []Option) (*httpClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, eris.Errorf("%s: invalid base url %q", service, baseURL)
	}
	c := &httpClient{
		service: service,
		apiKey:  apiKey,
		baseURL: baseURL,
		host:    u.Host,
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.OnRetry = resilience.LogRetries(service, "fetch")
	return c, nil
}

func (c *httpClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: create request", c.service)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("x-rapidapi-host", c.host)
		req.Header.Set("x-rapidapi-key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: request failed", c.service)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: read response body", c.service)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, resilience.StatusError(c.service, resp.StatusCode, string(body))
		}
		return body, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "%s: unmarshal response", c.service)
	}
	return nil
}
