package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// LocalScraper fetches HTML directly and converts it to plaintext. It needs
// no API key and is the last scraper of the chain.
type LocalScraper struct {
	client *http.Client
}

// NewLocalScraper creates a LocalScraper with conservative timeouts.
func NewLocalScraper() *LocalScraper {
	return &LocalScraper{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Name implements Scraper.
func (l *LocalScraper) Name() string { return "local_http" }

// Supports implements Scraper.
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL, detects anti-bot pages and extracts the text.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ProspectBot/1.0)")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", kind)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	title, text, err := ExtractText(body)
	if err != nil {
		return nil, err
	}
	if len(text) < 50 {
		return nil, eris.New("local_http: empty page")
	}
	return &Result{
		Page:   Page{URL: targetURL, Title: title, Content: text},
		Source: "local_http",
	}, nil
}

// ExtractText returns the title and visible text of an HTML document.
// Scripts, styles, navigation and footers are dropped and whitespace is
// collapsed, one line per block element.
func ExtractText(html []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", "", eris.Wrap(err, "local_http: parse html")
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, noscript, nav, footer, svg, iframe").Remove()

	var lines []string
	doc.Find("body").Find("h1, h2, h3, h4, p, li, td, dd, dt, blockquote").Each(func(_ int, s *goquery.Selection) {
		if line := strings.Join(strings.Fields(s.Text()), " "); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		if all := strings.Join(strings.Fields(doc.Find("body").Text()), " "); all != "" {
			lines = append(lines, all)
		}
	}
	return title, strings.Join(lines, "\n"), nil
}
