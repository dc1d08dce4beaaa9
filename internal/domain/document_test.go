package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestHostOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://spring.io/guides", "spring.io"},
		{"http://www.oracle.com:8443/java/", "www.oracle.com"},
		{"https://a.com", "a.com"},
		{"not a url", ""},
		{"://broken", ""},
	}

	for _, tt := range tests {
		if got := HostOf(tt.in); got != tt.want {
			t.Errorf("HostOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMillisRoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 15, 250*int(time.Millisecond), time.UTC)

	ms := Millis(ts)
	if ms != ts.UnixNano()/int64(time.Millisecond) {
		t.Errorf("Millis = %d", ms)
	}
	if got := FromMillis(ms); !got.Equal(ts) {
		t.Errorf("FromMillis(%d) = %v, want %v", ms, got, ts)
	}
}

func TestSearchResponse_WireFieldNames(t *testing.T) {
	resp := SearchResponse{
		TotalResults: 1,
		Results: []SearchResult{{
			Title:      "Spring Boot",
			URL:        "https://spring.io",
			Snippet:    "Spring...",
			Domain:     "spring.io",
			ObservedAt: 1700000000000,
			Score:      1.5,
		}},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal SearchResponse: %v", err)
	}

	for _, key := range []string{`"totalResults"`, `"results"`, `"title"`, `"url"`, `"snippet"`, `"domain"`, `"observedAt"`, `"score"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("Expected key %s in %s", key, data)
		}
	}
}
