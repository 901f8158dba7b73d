package website

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tradesafe/tradeverify/src/webclient"
	"golang.org/x/net/html"
)

// maxExcerpt bounds the stored page text.
const maxExcerpt = 5000

// fetchBytes bounds how much of a page body is read.
const fetchBytes = 1024 * 1024

// Page is the extracted content of one fetched page.
type Page struct {
	URL         string  `json:"url"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Text        string  `json:"text,omitempty"`
	PublishedAt *string `json:"publishedAt,omitempty"`
}

// Fetcher retrieves a page and extracts a bounded text excerpt plus
// best-effort metadata.
type Fetcher struct {
	client    *http.Client
	sanitizer *bluemonday.Policy
}

func NewFetcher(client *http.Client) *Fetcher {
	// StrictPolicy strips every tag, leaving visible text only.
	return &Fetcher{client: client, sanitizer: bluemonday.StrictPolicy()}
}

// Fetch retrieves the URL and extracts text, title, meta description and a
// publication date when one is discoverable.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	status, body, err := webclient.Get(ctx, f.client, url, fetchBytes)
	if err != nil {
		return nil, fmt.Errorf("website: fetch %s: %w", url, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("website: fetch %s: status %d", url, status)
	}

	raw := string(body)
	page := &Page{URL: url, Text: excerpt(f.sanitizer.Sanitize(raw))}

	if doc, err := html.Parse(strings.NewReader(raw)); err == nil {
		page.Title, page.Description = titleAndDescription(doc)
		if date := extractDate(doc, page.Text); date != "" {
			page.PublishedAt = &date
		}
	}
	return page, nil
}

// excerpt collapses whitespace and truncates to the excerpt bound.
func excerpt(text string) string {
	text = strings.Join(strings.Fields(html.UnescapeString(text)), " ")
	if len(text) > maxExcerpt {
		cut := maxExcerpt
		// Back up so the cut never splits a multi-byte rune.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

func titleAndDescription(doc *html.Node) (title, description string) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				if attr(n, "name") == "description" {
					description = attr(n, "content")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title, description
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
