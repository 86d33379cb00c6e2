// Package match filters posts against the configured keyword list.
package match

import (
	"strings"

	"redscout/internal/core/domain"
)

// Keywords returns the configured keywords that appear in text,
// case-insensitive, in declaration order. It is pure and deterministic.
func Keywords(text string, keywords []string) []string {
	haystack := strings.ToLower(text)
	var hits []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// Post matches a post's title and body (when present) against keywords.
func Post(p domain.Post, keywords []string) domain.MatchResult {
	text := p.Title
	if p.Body != "" {
		text += "\n" + p.Body
	}
	return domain.MatchResult{Post: p, Keywords: Keywords(text, keywords)}
}

// Preview returns a single-line, width-bounded preview of body text.
func Preview(text string, width int) string {
	if text == "" {
		return "(no body text)"
	}
	s := strings.Join(strings.Fields(text), " ")
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
