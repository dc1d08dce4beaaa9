package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sha1n/newsdex/internal/dedup"
	"github.com/sha1n/newsdex/internal/domain"
	"github.com/sha1n/newsdex/internal/metrics"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

const (
	// DefaultFetchTimeout bounds a single page fetch.
	DefaultFetchTimeout = 10 * time.Second

	// MaxPageBytes caps how much of a page body is read.
	MaxPageBytes = 5 * 1024 * 1024
)

// hiddenElements never contribute to a page's visible text.
const hiddenElements = "script, style, noscript, template"

// Options configures a Crawler.
type Options struct {
	UserAgent    string
	FetchTimeout time.Duration
	// HostInterval is the minimum spacing between requests to one host. Zero disables it.
	HostInterval time.Duration
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Crawler fetches single pages and turns them into Documents.
// Each distinct URL is attempted at most once per Crawler lifetime.
type Crawler struct {
	visited   *dedup.URLSet
	policy    PolicyChecker
	limiter   *HostRateLimiter
	client    *http.Client
	userAgent string
	now       func() time.Time
}

// NewCrawler creates a crawler that records attempts in visited and consults policy before
// every fetch.
func NewCrawler(visited *dedup.URLSet, policy PolicyChecker, opts Options) *Crawler {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var limiter *HostRateLimiter
	if opts.HostInterval > 0 {
		limiter = NewHostRateLimiter(opts.HostInterval)
	}

	return &Crawler{
		visited:   visited,
		policy:    policy,
		limiter:   limiter,
		client:    &http.Client{Timeout: opts.FetchTimeout},
		userAgent: opts.UserAgent,
		now:       opts.Now,
	}
}

// Crawl fetches rawURL and extracts its title, visible body text and domain.
// It returns false when the URL was already attempted, is disallowed by robots.txt,
// or could not be fetched or parsed. Failures are logged, not returned.
func (c *Crawler) Crawl(ctx context.Context, rawURL string) (domain.Document, bool) {
	if !c.visited.Add(rawURL) {
		metrics.RecordCrawl(metrics.OutcomeSkipped)
		return domain.Document{}, false
	}

	if !c.policy.IsAllowed(ctx, rawURL) {
		slog.Info("Blocked by robots.txt", "url", rawURL)
		metrics.RecordCrawl(metrics.OutcomeBlocked)
		return domain.Document{}, false
	}

	doc, err := c.fetch(ctx, rawURL)
	if err != nil {
		slog.Warn("Failed to crawl", "url", rawURL, "error", err)
		metrics.RecordCrawl(metrics.OutcomeFailed)
		return domain.Document{}, false
	}

	slog.Info("Crawled", "url", rawURL, "domain", doc.Domain)
	metrics.RecordCrawl(metrics.OutcomeOK)
	return doc, true
}

// fetch performs the HTTP round trip. Non-2xx responses are parsed like any other.
func (c *Crawler) fetch(ctx context.Context, rawURL string) (domain.Document, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitForHost(ctx, rawURL); err != nil {
			return domain.Document{}, fmt.Errorf("rate limiting failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.Document{}, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Document{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := charset.NewReader(io.LimitReader(resp.Body, MaxPageBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return domain.Document{}, fmt.Errorf("decode body failed: %w", err)
	}

	title, content, err := ExtractText(body)
	if err != nil {
		return domain.Document{}, err
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return domain.Document{
		Title:      title,
		URL:        rawURL,
		Content:    content,
		Domain:     domain.HostOf(finalURL),
		ObservedAt: c.now(),
	}, nil
}

// ExtractText parses an HTML document and returns its title and visible body text,
// both whitespace-collapsed.
func ExtractText(r io.Reader) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", fmt.Errorf("parse html failed: %w", err)
	}

	title = collapseSpaces(doc.Find("title").First().Text())

	body := doc.Find("body")
	body.Find(hiddenElements).Remove()

	var sb strings.Builder
	for _, n := range body.Nodes {
		collectText(n, &sb)
	}

	return title, collapseSpaces(sb.String()), nil
}

// collectText appends every text node under n, separated by spaces so that adjacent
// block elements do not run together.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, sb)
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
