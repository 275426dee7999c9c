package scrape

import (
	"context"
	"net/url"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

// Chain tries scrapers in priority order, returning the first success. Each
// scraper sits behind its own circuit breaker and requests are rate limited
// per target host.
type Chain struct {
	PathMatcher *PathMatcher
	scrapers    []Scraper
	breakers    *resilience.Breakers
	hosts       *hostLimiter
}

// NewChain creates a Chain. Scrapers are tried in order.
func NewChain(matcher *PathMatcher, scrapers ...Scraper) *Chain {
	if matcher == nil {
		matcher = NewPathMatcher(nil)
	}
	return &Chain{
		PathMatcher: matcher,
		scrapers:    scrapers,
		breakers:    resilience.NewBreakers(resilience.BreakerConfig{}),
		hosts:       newHostLimiter(2, 2),
	}
}

// UseBreakers shares a breaker set with other components.
func (c *Chain) UseBreakers(b *resilience.Breakers) *Chain {
	c.breakers = b
	return c
}

// LimitHosts sets the per-host request rate.
func (c *Chain) LimitHosts(perSecond float64, burst int) *Chain {
	c.hosts = newHostLimiter(perSecond, burst)
	return c
}

// Scrape tries each scraper in order for a single URL.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if c.PathMatcher.IsExcluded(targetURL) {
		return nil, eris.Errorf("scrape: url excluded by path matcher: %s", targetURL)
	}
	if err := c.hosts.wait(ctx, targetURL); err != nil {
		return nil, eris.Wrap(err, "scrape: host rate limit")
	}

	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		breaker := c.breakers.For("scrape:" + s.Name())
		result, err := resilience.Call(ctx, breaker, func(ctx context.Context) (*Result, error) {
			return s.Scrape(ctx, targetURL)
		})
		if err == nil && result != nil {
			return result, nil
		}
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}

// FetchPage returns the readable content of targetURL.
func (c *Chain) FetchPage(ctx context.Context, targetURL string) (string, error) {
	res, err := c.Scrape(ctx, targetURL)
	if err != nil {
		return "", err
	}
	return res.Page.Content, nil
}

// hostLimiter rate-limits per hostname.
type hostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func newHostLimiter(perSecond float64, burst int) *hostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &hostLimiter{m: make(map[string]*rate.Limiter), r: rate.Limit(perSecond), b: burst}
}

func (hl *hostLimiter) wait(ctx context.Context, raw string) error {
	host := "_"
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host = u.Host
	}

	hl.mu.Lock()
	lim, ok := hl.m[host]
	if !ok {
		lim = rate.NewLimiter(hl.r, hl.b)
		hl.m[host] = lim
	}
	hl.mu.Unlock()

	return lim.Wait(ctx)
}
