package testkit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
)

// Property names published by the fake services
const (
	PropSiteURL = "site.url"
	PropFeedURL = "feed.url"
	PropNewsURL = "news.url"
)

// SitePage is one HTML page served by SiteService
type SitePage struct {
	Title string
	Body  string
}

// SiteService serves a small website with a robots.txt
type SiteService struct {
	Pages  map[string]SitePage // path -> page
	Robots string
	server *httptest.Server
}

func (s *SiteService) GetName() string { return "site" }

func (s *SiteService) Start() (map[string]any, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		if s.Robots == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, s.Robots)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		page, ok := s.Pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<html><head><title>%s</title></head><body><p>%s</p></body></html>", page.Title, page.Body)
	})
	s.server = httptest.NewServer(mux)
	return map[string]any{PropSiteURL: s.server.URL}, nil
}

func (s *SiteService) Stop() error {
	if s.server != nil {
		s.server.Close()
	}
	return nil
}

// FeedItem is one entry served by FeedService
type FeedItem struct {
	Title       string
	Link        string
	Description string
	PubDate     string // RFC1123Z
}

// FeedService serves an RSS 2.0 feed at /feed.xml
type FeedService struct {
	Title  string
	Items  []FeedItem
	server *httptest.Server
}

func (s *FeedService) GetName() string { return "feed" }

func (s *FeedService) Start() (map[string]any, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>%s</title>`, s.Title)
		for _, it := range s.Items {
			_, _ = fmt.Fprintf(w, `<item><title>%s</title><link>%s</link><description>%s</description><pubDate>%s</pubDate></item>`,
				it.Title, it.Link, it.Description, it.PubDate)
		}
		_, _ = fmt.Fprint(w, `</channel></rss>`)
	})
	s.server = httptest.NewServer(mux)
	return map[string]any{PropFeedURL: s.server.URL + "/feed.xml"}, nil
}

func (s *FeedService) Stop() error {
	if s.server != nil {
		s.server.Close()
	}
	return nil
}

// NewsArticle is one article returned by NewsAPIService
type NewsArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

// NewsAPIService answers NewsAPI-style "everything" queries with canned articles
type NewsAPIService struct {
	Articles []NewsArticle
	hits     atomic.Int64
	server   *httptest.Server
}

func (s *NewsAPIService) GetName() string { return "newsapi" }

func (s *NewsAPIService) Start() (map[string]any, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/everything", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"totalResults": len(s.Articles),
			"articles":     s.Articles,
		})
	})
	s.server = httptest.NewServer(mux)
	return map[string]any{PropNewsURL: s.server.URL + "/v2/everything"}, nil
}

func (s *NewsAPIService) Stop() error {
	if s.server != nil {
		s.server.Close()
	}
	return nil
}

// Hits returns the number of provider calls served so far
func (s *NewsAPIService) Hits() int64 {
	return s.hits.Load()
}
