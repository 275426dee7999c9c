// Package search runs web searches through an ordered list of providers,
// falling through to the next provider when one fails or finds nothing.
package search

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/duckduckgo"
	"github.com/sells-group/prospect-cli/pkg/jina"
)

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider is a single search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Chain queries providers in order and returns the first non-empty result
// set.
type Chain struct {
	providers []Provider
	breakers  *resilience.Breakers
}

// NewChain creates a Chain over providers.
func NewChain(providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		breakers:  resilience.NewBreakers(resilience.BreakerConfig{}),
	}
}

// UseBreakers shares a breaker set with other components.
func (c *Chain) UseBreakers(b *resilience.Breakers) *Chain {
	c.breakers = b
	return c
}

// Search returns at most limit results for query. An empty result with a
// nil error means every provider answered but none found anything.
func (c *Chain) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		return nil, nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, eris.New("search: empty query")
	}

	var lastErr error
	answered := false
	for _, p := range c.providers {
		breaker := c.breakers.For("search:" + p.Name())
		results, err := resilience.Call(ctx, breaker, func(ctx context.Context) ([]Result, error) {
			return p.Search(ctx, query, limit)
		})
		if err != nil {
			zap.L().Debug("search: provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.String("query", query),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		answered = true
		results = clean(results)
		if len(results) > 0 {
			if len(results) > limit {
				results = results[:limit]
			}
			return results, nil
		}
	}

	if !answered && lastErr != nil {
		return nil, eris.Wrap(lastErr, "search: all providers failed")
	}
	return nil, nil
}

// clean drops results without a URL and repeated URLs.
func clean(results []Result) []Result {
	seen := make(map[string]bool, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}

// JinaProvider searches with Jina AI Search.
type JinaProvider struct {
	client  jina.Client
	country string
}

// NewJinaProvider creates a JinaProvider. country is an ISO code such as "FR".
func NewJinaProvider(client jina.Client, country string) *JinaProvider {
	return &JinaProvider{client: client, country: country}
}

// Name implements Provider.
func (p *JinaProvider) Name() string { return "jina" }

// Search implements Provider.
func (p *JinaProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	opts := []jina.SearchOption{jina.WithCount(limit)}
	if p.country != "" {
		opts = append(opts, jina.WithCountry(p.country))
	}
	resp, err := p.client.Search(ctx, query, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(resp.Data))
	for _, r := range resp.Data {
		snippet := r.Description
		if snippet == "" {
			snippet = truncate(r.Content, 300)
		}
		out = append(out, Result{Title: r.Title, URL: r.URL, Snippet: snippet})
	}
	return out, nil
}

// DuckDuckGoProvider searches the DuckDuckGo HTML endpoint.
type DuckDuckGoProvider struct {
	client duckduckgo.Client
}

// NewDuckDuckGoProvider creates a DuckDuckGoProvider.
func NewDuckDuckGoProvider(client duckduckgo.Client) *DuckDuckGoProvider {
	return &DuckDuckGoProvider{client: client}
}

// Name implements Provider.
func (p *DuckDuckGoProvider) Name() string { return "duckduckgo" }

// Search implements Provider.
func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	hits, err := p.client.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, Result{Title: h.Title, URL: h.URL, Snippet: h.Snippet})
	}
	return out, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
