package search

import (
	"strings"
	"unicode"
)

const (
	snippetBefore   = 60
	snippetAfter    = 100
	snippetFallback = 160
	ellipsis        = "..."
)

// BuildSnippet returns a short excerpt of content around the first
// case-insensitive occurrence of query. Lengths are counted in runes.
func BuildSnippet(content, query string) string {
	if content == "" {
		return ""
	}

	text := []rune(content)
	idx := indexFold(text, []rune(query))
	if idx < 0 || query == "" {
		end := min(len(text), snippetFallback)
		return string(text[:end]) + ellipsis
	}

	qlen := len([]rune(query))
	start := max(0, idx-snippetBefore)
	end := min(len(text), idx+qlen+snippetAfter)

	return strings.Join(strings.Fields(string(text[start:end])), " ") + ellipsis
}

// indexFold finds needle in haystack comparing lower-cased runes.
func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != unicode.ToLower(r) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
