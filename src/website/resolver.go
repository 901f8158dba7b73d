// Package website discovers and fetches official websites for business
// entities.
package website

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/tradesafe/tradeverify/src/matcher"
	"github.com/tradesafe/tradeverify/src/webclient"
)

// probeBytes bounds how much of a candidate page is read during validation.
const probeBytes = 256 * 1024

// Strategy is one URL discovery approach. Strategies are tried in order;
// the first validated URL wins.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, name, country string) (string, error)
}

// Resolver runs the discovery cascade: direct domain patterns, then name
// variations, then the external search fallback when configured.
type Resolver struct {
	strategies []Strategy
}

// NewResolver builds the cascade. searcher may be nil; the search strategy
// is then not configured at all.
func NewResolver(client *http.Client, searcher Searcher) *Resolver {
	v := &validator{client: client}
	strategies := []Strategy{
		&patternStrategy{v: v},
		&variationStrategy{v: v},
	}
	if searcher != nil {
		strategies = append(strategies, &searchStrategy{v: v, searcher: searcher})
	}
	return &Resolver{strategies: strategies}
}

// Resolve tries each strategy in order and returns the first validated URL,
// or "" when every strategy is exhausted.
func (r *Resolver) Resolve(ctx context.Context, name, country string) string {
	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return ""
		}
		url, err := s.Resolve(ctx, name, country)
		if err != nil {
			log.Printf("website: strategy %s for %q: %v", s.Name(), name, err)
			continue
		}
		if url != "" {
			log.Printf("website: resolved %q via %s: %s", name, s.Name(), url)
			return url
		}
	}
	return ""
}

// validator probes a candidate URL and accepts it when the page is
// reachable and its content mentions the entity name.
type validator struct {
	client *http.Client
}

func (v *validator) validate(ctx context.Context, url, entityName string) bool {
	status, body, err := webclient.Get(ctx, v.client, url, probeBytes)
	if err != nil || status != http.StatusOK {
		return false
	}
	return mentionsEntity(string(body), entityName)
}

// mentionsEntity checks whether any significant word of the entity name
// appears in the page content.
func mentionsEntity(content, entityName string) bool {
	haystack := matcher.Normalize(content)
	for _, word := range strings.Fields(matcher.Normalize(entityName)) {
		if len(word) > 3 && strings.Contains(haystack, word) {
			return true
		}
	}
	// Short names like "bp" would otherwise never validate.
	name := matcher.Normalize(entityName)
	return len(name) >= 2 && len(strings.Fields(name)) == 1 && strings.Contains(haystack, name)
}

type patternStrategy struct {
	v *validator
}

func (s *patternStrategy) Name() string { return "domain-patterns" }

func (s *patternStrategy) Resolve(ctx context.Context, name, country string) (string, error) {
	for _, url := range candidateURLs(name, country) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if s.v.validate(ctx, url, name) {
			return url, nil
		}
	}
	return "", nil
}

type variationStrategy struct {
	v *validator
}

func (s *variationStrategy) Name() string { return "name-variations" }

func (s *variationStrategy) Resolve(ctx context.Context, name, country string) (string, error) {
	for _, variation := range nameVariations(name) {
		if strings.EqualFold(variation, name) {
			continue // already covered by the pattern strategy
		}
		for _, url := range candidateURLs(variation, country) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			// Validate against the original name, not the variation.
			if s.v.validate(ctx, url, name) {
				return url, nil
			}
		}
	}
	return "", nil
}

type searchStrategy struct {
	v        *validator
	searcher Searcher
}

func (s *searchStrategy) Name() string { return "external-search" }

func (s *searchStrategy) Resolve(ctx context.Context, name, country string) (string, error) {
	query := name + " official website " + country
	results, err := s.searcher.Search(ctx, query)
	if err != nil {
		return "", err
	}
	for i, res := range results {
		if i == maxSearchResults {
			break
		}
		if res.URL == "" {
			continue
		}
		if s.v.validate(ctx, res.URL, name) {
			return res.URL, nil
		}
	}
	return "", nil
}
