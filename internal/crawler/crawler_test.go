package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sha1n/newsdex/internal/dedup"
)

// staticPolicy allows or denies every URL and counts calls
type staticPolicy struct {
	allow bool
	calls atomic.Int32
}

func (p *staticPolicy) IsAllowed(context.Context, string) bool {
	p.calls.Add(1)
	return p.allow
}

const samplePage = `<!DOCTYPE html>
<html>
<head><title>  Spring   Boot </title><style>body { color: red; }</style></head>
<body>
  <h1>Build anything</h1>
  <p>Spring Boot makes it easy.</p><p>Second paragraph</p>
  <script>var hidden = "do not index";</script>
  <noscript>enable js</noscript>
</body>
</html>`

func newTestCrawler(policy PolicyChecker, now time.Time) (*Crawler, *dedup.URLSet) {
	visited := dedup.NewURLSet()
	c := NewCrawler(visited, policy, Options{
		UserAgent:    "NewsdexBot/1.0",
		FetchTimeout: time.Second,
		Now:          func() time.Time { return now },
	})
	return c, visited
}

func TestExtractText(t *testing.T) {
	title, content, err := ExtractText(strings.NewReader(samplePage))
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}

	if title != "Spring Boot" {
		t.Errorf("title = %q", title)
	}
	want := "Build anything Spring Boot makes it easy. Second paragraph"
	if content != want {
		t.Errorf("content = %q, want %q", content, want)
	}
	if strings.Contains(content, "do not index") || strings.Contains(content, "color: red") || strings.Contains(content, "enable js") {
		t.Errorf("hidden elements leaked into content: %q", content)
	}
}

func TestExtractText_NoTitle(t *testing.T) {
	title, content, err := ExtractText(strings.NewReader("plain text body"))
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if title != "" {
		t.Errorf("title = %q, want empty", title)
	}
	if content != "plain text body" {
		t.Errorf("content = %q", content)
	}
}

func TestCrawler_Crawl(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c, visited := newTestCrawler(&staticPolicy{allow: true}, now)

	doc, ok := c.Crawl(context.Background(), srv.URL+"/guides")
	if !ok {
		t.Fatal("Expected crawl to succeed")
	}

	if doc.Title != "Spring Boot" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.URL != srv.URL+"/guides" {
		t.Errorf("URL = %q", doc.URL)
	}
	if doc.Domain != "127.0.0.1" {
		t.Errorf("Domain = %q, want 127.0.0.1", doc.Domain)
	}
	if !doc.ObservedAt.Equal(now) {
		t.Errorf("ObservedAt = %v, want %v", doc.ObservedAt, now)
	}
	if !strings.Contains(doc.Content, "Spring Boot makes it easy.") {
		t.Errorf("Content = %q", doc.Content)
	}
	if gotUA != "NewsdexBot/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if !visited.Contains(srv.URL + "/guides") {
		t.Error("URL should be marked visited")
	}
}

func TestCrawler_Idempotent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	c, _ := newTestCrawler(&staticPolicy{allow: true}, time.Now())
	ctx := context.Background()

	if _, ok := c.Crawl(ctx, srv.URL); !ok {
		t.Fatal("First crawl should return a document")
	}
	for i := 0; i < 3; i++ {
		if _, ok := c.Crawl(ctx, srv.URL); ok {
			t.Errorf("Crawl #%d of the same URL should return nothing", i+2)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestCrawler_BlockedByPolicy(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	policy := &staticPolicy{allow: false}
	c, visited := newTestCrawler(policy, time.Now())
	ctx := context.Background()

	if _, ok := c.Crawl(ctx, srv.URL+"/page"); ok {
		t.Error("Expected blocked URL to return nothing")
	}
	if !visited.Contains(srv.URL + "/page") {
		t.Error("Blocked URL should still be marked visited")
	}
	if hits.Load() != 0 {
		t.Errorf("Blocked URL should not be fetched, hits = %d", hits.Load())
	}

	// A second attempt short-circuits before consulting the policy again
	_, _ = c.Crawl(ctx, srv.URL+"/page")
	if policy.calls.Load() != 1 {
		t.Errorf("policy calls = %d, want 1", policy.calls.Load())
	}
}

func TestCrawler_NonSuccessStatusStillParsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html><head><title>Not Found</title></head><body>Missing page</body></html>"))
	}))
	defer srv.Close()

	c, _ := newTestCrawler(&staticPolicy{allow: true}, time.Now())

	doc, ok := c.Crawl(context.Background(), srv.URL+"/missing")
	if !ok {
		t.Fatal("Expected 404 body to be inspected")
	}
	if doc.Title != "Not Found" || doc.Content != "Missing page" {
		t.Errorf("Unexpected document: %+v", doc)
	}
}

func TestCrawler_DomainFromFinalURL(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<title>Moved</title><p>landed</p>"))
	}))
	defer target.Close()

	landing := strings.Replace(target.URL, "127.0.0.1", "localhost", 1)
	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, landing+"/final", http.StatusFound)
	}))
	defer redirector.Close()

	c, _ := newTestCrawler(&staticPolicy{allow: true}, time.Now())

	doc, ok := c.Crawl(context.Background(), redirector.URL+"/start")
	if !ok {
		t.Fatal("Expected crawl to follow redirect")
	}
	if doc.Domain != "localhost" {
		t.Errorf("Domain = %q, want localhost", doc.Domain)
	}
	if doc.URL != redirector.URL+"/start" {
		t.Errorf("URL should stay the requested URL, got %q", doc.URL)
	}
}

func TestCrawler_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c, visited := newTestCrawler(&staticPolicy{allow: true}, time.Now())

	if _, ok := c.Crawl(context.Background(), addr); ok {
		t.Error("Expected network failure to return nothing")
	}
	if !visited.Contains(addr) {
		t.Error("Failed URL should still be marked visited")
	}
}

func TestCrawler_InvalidURL(t *testing.T) {
	c, _ := newTestCrawler(&staticPolicy{allow: true}, time.Now())

	if _, ok := c.Crawl(context.Background(), "::bad"); ok {
		t.Error("Expected invalid URL to return nothing")
	}
}

func TestCrawler_Latin1Charset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<title>Caf\xe9</title><body>cr\xe8me</body>"))
	}))
	defer srv.Close()

	c, _ := newTestCrawler(&staticPolicy{allow: true}, time.Now())

	doc, ok := c.Crawl(context.Background(), srv.URL)
	if !ok {
		t.Fatal("Expected crawl to succeed")
	}
	if doc.Title != "Café" || doc.Content != "crème" {
		t.Errorf("Expected UTF-8 decoded text, got title=%q content=%q", doc.Title, doc.Content)
	}
}
