package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Engineering</title>
    <link>https://blog.example.com</link>
    <item>
      <title>Virtual threads in practice</title>
      <link>https://blog.example.com/posts/vthreads</link>
      <description>&lt;p&gt;Notes on &lt;em&gt;Loom&lt;/em&gt;.&lt;/p&gt;</description>
      <pubDate>Mon, 03 Feb 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Undated</title>
      <link>https://blog.example.com/posts/undated</link>
      <description>plain</description>
    </item>
    <item>
      <title>No link</title>
      <description>dropped</description>
    </item>
  </channel>
</rss>`

func TestFetchFeed(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	src := NewFeedSource(FeedConfig{
		UserAgent: "NewsdexBot/1.0",
		Timeout:   2 * time.Second,
		Now:       func() time.Time { return fixedNow },
	})
	docs := src.FetchFeed(context.Background(), server.URL)

	if gotUA != "NewsdexBot/1.0" {
		t.Errorf("user agent = %q", gotUA)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	first := docs[0]
	if first.URL != "https://blog.example.com/posts/vthreads" {
		t.Errorf("url = %q", first.URL)
	}
	if first.Content != "Notes on Loom." {
		t.Errorf("content = %q", first.Content)
	}
	if first.Domain != "blog.example.com" {
		t.Errorf("domain = %q", first.Domain)
	}
	if first.Source != "Example Engineering" {
		t.Errorf("source = %q", first.Source)
	}
	if want := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC); !first.ObservedAt.Equal(want) {
		t.Errorf("observedAt = %v, want %v", first.ObservedAt, want)
	}

	if !docs[1].ObservedAt.Equal(fixedNow) {
		t.Errorf("undated item should use fetch time, got %v", docs[1].ObservedAt)
	}
}

func TestFetchFeed_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
		{"not a feed", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("hello")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			docs := NewFeedSource(FeedConfig{}).FetchFeed(context.Background(), server.URL)
			if docs == nil || len(docs) != 0 {
				t.Errorf("expected empty non-nil slice, got %#v", docs)
			}
		})
	}
}
