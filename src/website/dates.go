package website

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Meta tags checked for a publication date, in preference order.
var dateMetaKeys = []string{
	"article:published_time",
	"og:published_time",
	"datePublished",
	"DC.date",
}

var textDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
	regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
	regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})\b`),
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"January 2, 2006",
	"January 2 2006",
}

// extractDate finds a publication or last-updated date: meta tags first,
// then visible-text patterns. Returns "" when nothing parses.
func extractDate(doc *html.Node, text string) string {
	var walk func(*html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "meta" {
			key := attr(n, "property")
			if key == "" {
				key = attr(n, "name")
			}
			for _, want := range dateMetaKeys {
				if strings.EqualFold(key, want) {
					if date := normalizeDate(attr(n, "content")); date != "" {
						return date
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if date := walk(c); date != "" {
				return date
			}
		}
		return ""
	}
	if date := walk(doc); date != "" {
		return date
	}

	for _, re := range textDatePatterns {
		if m := re.FindString(text); m != "" {
			if date := normalizeDate(m); date != "" {
				return date
			}
		}
	}
	return ""
}

// normalizeDate parses a raw date string into YYYY-MM-DD.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			// Reject implausible years from stray number patterns.
			if t.Year() >= 1900 && t.Year() <= time.Now().Year()+1 {
				return t.Format("2006-01-02")
			}
		}
	}
	return ""
}
