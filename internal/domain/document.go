package domain

import (
	"net/url"
	"time"
)

// Document is one crawled page or ingested article.
// It is the primary data structure stored in the Bleve search index.
type Document struct {
	// Title is the page or article headline.
	Title string `json:"title"`

	// URL is the sole identity key. Indexing the same URL again replaces the prior entry.
	URL string `json:"url"`

	// Content is the plain-text body used for matching and snippets.
	Content string `json:"content"`

	// Domain is the host name the document was served from.
	// Example: "spring.io"
	Domain string `json:"domain"`

	// Source names the provider or feed an ingested article came from. Empty for crawled pages.
	Source string `json:"source,omitempty"`

	// ObservedAt is the crawl completion or publication time.
	ObservedAt time.Time `json:"observed_at"`
}

// SearchResult is one ranked hit returned to callers. It is derived per query and never stored.
type SearchResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Snippet    string  `json:"snippet"`
	Domain     string  `json:"domain"`
	ObservedAt int64   `json:"observedAt"`
	Score      float64 `json:"score"`
}

// SearchResponse is a page of ranked results plus the collaborator's total hit count.
type SearchResponse struct {
	TotalResults uint64         `json:"totalResults"`
	Results      []SearchResult `json:"results"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	FieldTitle     = "title"
	FieldURL       = "url"
	FieldContent   = "content"
	FieldDomain    = "domain"
	FieldSource    = "source"
	FieldTimestamp = "timestamp"
)

// HostOf returns the host name (without port) of rawURL, or "" when it cannot be parsed.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Millis converts t to milliseconds since the Unix epoch.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts milliseconds since the Unix epoch to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
