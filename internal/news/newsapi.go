package news

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sha1n/newsdex/internal/domain"
)

const (
	// DefaultEndpoint is the NewsAPI "everything" search endpoint.
	DefaultEndpoint = "https://newsapi.org/v2/everything"

	// DefaultLanguage restricts provider results to English articles.
	DefaultLanguage = "en"

	// DefaultPageSize is the number of articles requested per query.
	DefaultPageSize = 10

	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 4 * 1024 * 1024
)

// ClientConfig configures a NewsAPIClient.
type ClientConfig struct {
	Endpoint string
	APIKey   string
	Language string
	PageSize int
	Timeout  time.Duration
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// NewsAPIClient pulls candidate documents from a NewsAPI-compatible provider.
// It performs no caching or deduplication.
type NewsAPIClient struct {
	cfg    ClientConfig
	client *http.Client
	policy *bluemonday.Policy
}

// apiResponse mirrors the provider payload.
type apiResponse struct {
	Status   string       `json:"status"`
	Articles []apiArticle `json:"articles"`
}

type apiArticle struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Content     *string    `json:"content"`
	Source      *apiSource `json:"source"`
	PublishedAt string     `json:"publishedAt"`
}

type apiSource struct {
	Name string `json:"name"`
}

// NewNewsAPIClient creates a provider client, filling unset config with defaults.
func NewNewsAPIClient(cfg ClientConfig) *NewsAPIClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &NewsAPIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		policy: bluemonday.StrictPolicy(),
	}
}

// Name identifies this source in logs and metrics.
func (c *NewsAPIClient) Name() string {
	return "newsapi"
}

// FetchByQuery returns the provider's articles for query in provider order.
// Any provider failure yields an empty slice.
func (c *NewsAPIClient) FetchByQuery(ctx context.Context, query string) []domain.Document {
	resp, err := c.fetch(ctx, query)
	if err != nil {
		slog.Warn("News provider request failed", "query", query, "error", err)
		return []domain.Document{}
	}

	fetchedAt := c.cfg.Now()
	docs := make([]domain.Document, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if strings.TrimSpace(a.URL) == "" {
			continue
		}
		docs = append(docs, c.toDocument(a, fetchedAt))
	}
	return docs
}

func (c *NewsAPIClient) fetch(ctx context.Context, query string) (*apiResponse, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	q := u.Query()
	q.Set("q", query)
	q.Set("language", c.cfg.Language)
	q.Set("pageSize", strconv.Itoa(c.cfg.PageSize))
	if c.cfg.APIKey != "" {
		q.Set("apiKey", c.cfg.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("provider error (status %d): %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var apiResp apiResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	return &apiResp, nil
}

func (c *NewsAPIClient) toDocument(a apiArticle, fetchedAt time.Time) domain.Document {
	content := ""
	if a.Content != nil {
		content = c.plainText(*a.Content)
	}

	source := ""
	if a.Source != nil {
		source = a.Source.Name
	}

	articleDomain := domain.HostOf(a.URL)
	if articleDomain == "" {
		articleDomain = source
	}

	return domain.Document{
		Title:      c.plainText(a.Title),
		URL:        a.URL,
		Content:    content,
		Domain:     articleDomain,
		Source:     source,
		ObservedAt: parsePublishedAt(a.PublishedAt, fetchedAt),
	}
}

// plainText strips markup and decodes entities left behind by the sanitizer.
func (c *NewsAPIClient) plainText(s string) string {
	return stripHTML(c.policy, s)
}

func stripHTML(policy *bluemonday.Policy, s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(policy.Sanitize(s))), " ")
}

// parsePublishedAt parses an ISO-8601 timestamp, falling back to fallback when absent or malformed.
func parsePublishedAt(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC()
	}
	return fallback
}
