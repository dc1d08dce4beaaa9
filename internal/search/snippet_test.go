package search

import (
	"strings"
	"testing"
)

func TestBuildSnippet(t *testing.T) {
	long := strings.Repeat("a", 100) + " needle " + strings.Repeat("b", 200)

	tests := []struct {
		name    string
		content string
		query   string
		want    string
	}{
		{
			name:    "short content with match",
			content: "The quick brown fox jumps over the lazy dog",
			query:   "fox",
			want:    "The quick brown fox jumps over the lazy dog...",
		},
		{
			name:    "case insensitive match",
			content: "Hello World",
			query:   "WORLD",
			want:    "Hello World...",
		},
		{
			name:    "whitespace collapsed in window",
			content: "alpha\n\n  beta\tgamma",
			query:   "beta",
			want:    "alpha beta gamma...",
		},
		{
			name:    "window around match",
			content: long,
			query:   "needle",
			want:    strings.Repeat("a", 59) + " needle " + strings.Repeat("b", 99) + "...",
		},
		{
			name:    "no match uses leading text",
			content: strings.Repeat("x", 200),
			query:   "absent",
			want:    strings.Repeat("x", 160) + "...",
		},
		{
			name:    "no match keeps short content",
			content: "short text",
			query:   "absent",
			want:    "short text...",
		},
		{
			name:    "empty content",
			content: "",
			query:   "fox",
			want:    "",
		},
		{
			name:    "multibyte runes",
			content: "日本語のニュース記事",
			query:   "ニュース",
			want:    "日本語のニュース記事...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildSnippet(tt.content, tt.query); got != tt.want {
				t.Errorf("BuildSnippet() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildSnippet_ContainsQueryAndEllipsis(t *testing.T) {
	got := BuildSnippet("The quick brown fox jumps over the lazy dog", "fox")
	if !strings.Contains(got, "fox") || !strings.HasSuffix(got, "...") {
		t.Errorf("unexpected snippet %q", got)
	}
}
