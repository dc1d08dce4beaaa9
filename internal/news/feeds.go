package news

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"github.com/sha1n/newsdex/internal/domain"
)

// FeedConfig configures a FeedSource.
type FeedConfig struct {
	UserAgent string
	Timeout   time.Duration
	Now       func() time.Time
}

// FeedSource reads RSS and Atom feeds into documents.
type FeedSource struct {
	cfg    FeedConfig
	client *http.Client
	policy *bluemonday.Policy
}

// NewFeedSource creates a feed reader.
func NewFeedSource(cfg FeedConfig) *FeedSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &FeedSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		policy: bluemonday.StrictPolicy(),
	}
}

// FetchFeed returns the feed's items as documents. Items without a link are skipped.
// Any fetch or parse failure yields an empty slice.
func (s *FeedSource) FetchFeed(ctx context.Context, feedURL string) []domain.Document {
	fp := gofeed.NewParser()
	fp.Client = s.client
	if s.cfg.UserAgent != "" {
		fp.UserAgent = s.cfg.UserAgent
	}

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		slog.Warn("Feed fetch failed", "feed", feedURL, "error", err)
		return []domain.Document{}
	}

	fetchedAt := s.cfg.Now()
	source := strings.TrimSpace(feed.Title)
	docs := make([]domain.Document, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}

		body := item.Content
		if body == "" {
			body = item.Description
		}

		observedAt := fetchedAt
		switch {
		case item.PublishedParsed != nil:
			observedAt = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			observedAt = *item.UpdatedParsed
		}

		itemDomain := domain.HostOf(link)
		if itemDomain == "" {
			itemDomain = source
		}

		docs = append(docs, domain.Document{
			Title:      stripHTML(s.policy, item.Title),
			URL:        link,
			Content:    stripHTML(s.policy, body),
			Domain:     itemDomain,
			Source:     source,
			ObservedAt: observedAt,
		})
	}

	slog.Debug("Feed fetched", "feed", feedURL, "items", len(docs))
	return docs
}
