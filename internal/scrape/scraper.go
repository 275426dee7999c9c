// Package scrape fetches page content for enrichment through a chain of
// readers: Jina Reader, Firecrawl, then a local HTTP fetch.
package scrape

import "context"

// Page is the readable content of one URL.
type Page struct {
	URL     string
	Title   string
	Content string
}

// Result holds a scraped page with the scraper that produced it.
type Result struct {
	Page   Page
	Source string // "jina", "firecrawl", "local_http"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
