// Package collector aggregates evidence for one verification request from
// every configured source, tolerating any subset of them failing.
package collector

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tradesafe/tradeverify/src/registry"
	"github.com/tradesafe/tradeverify/src/sanctions"
	"github.com/tradesafe/tradeverify/src/types"
	"github.com/tradesafe/tradeverify/src/website"
)

// SourceWebsite identifies the entity's own website in sourcesUsed.
// Sanctions lists and the registry contribute their own source names.
const SourceWebsite = "website"

// URLResolver discovers an official website URL, "" when none is found.
type URLResolver interface {
	Resolve(ctx context.Context, name, country string) string
}

// PageFetcher retrieves and extracts a page for an accepted URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*website.Page, error)
}

// RegistryLookup queries the corporate registry.
type RegistryLookup interface {
	Lookup(ctx context.Context, name, country string) registry.Result
}

// SanctionsScreener screens a name against every configured list.
type SanctionsScreener interface {
	Screen(ctx context.Context, name string) sanctions.Result
}

// Timeouts are the independent per-source budgets.
type Timeouts struct {
	Website   time.Duration
	Registry  time.Duration
	Sanctions time.Duration
}

// Request identifies the entity to collect evidence for. WebsiteURL, when
// supplied by the caller, skips the discovery cascade.
type Request struct {
	Name       string
	Country    string
	WebsiteURL string
}

// WebsiteEvidence is the website portion of a bundle. URL without Page
// means discovery succeeded but the fetch afterwards failed.
type WebsiteEvidence struct {
	URL  string        `json:"url,omitempty"`
	Page *website.Page `json:"page,omitempty"`
}

// Bundle holds every source's findings for one request. It is mutated only
// during Collect and frozen afterwards.
type Bundle struct {
	Website   WebsiteEvidence  `json:"website"`
	Registry  registry.Result  `json:"registry"`
	Sanctions sanctions.Result `json:"sanctions"`

	// SourcesUsed lists sources that returned usable data, in completion
	// order.
	SourcesUsed []string  `json:"sourcesUsed"`
	CollectedAt time.Time `json:"collectedAt"`
}

type Collector struct {
	resolver URLResolver
	fetcher  PageFetcher
	registry RegistryLookup
	screener SanctionsScreener
	timeouts Timeouts
}

func New(resolver URLResolver, fetcher PageFetcher, reg RegistryLookup, screener SanctionsScreener, timeouts Timeouts) *Collector {
	return &Collector{
		resolver: resolver,
		fetcher:  fetcher,
		registry: reg,
		screener: screener,
		timeouts: timeouts,
	}
}

// Collect runs all three sources concurrently under their own budgets and
// blocks until every one has produced a result or timed out. Each source
// call runs behind a result channel selected against its deadline, so even
// a source that ignores cancellation cannot hold the bundle past its
// budget; the in-flight call completes in the background and its late
// result is discarded. Source failures degrade to empty entries in the
// bundle; Collect itself never fails.
func (c *Collector) Collect(ctx context.Context, req Request) *Bundle {
	bundle := &Bundle{SourcesUsed: []string{}}

	var mu sync.Mutex
	addSource := func(name string) {
		mu.Lock()
		bundle.SourcesUsed = append(bundle.SourcesUsed, name)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		ev, ok := collectOne(ctx, c.timeouts.Website, "website", func(sctx context.Context) WebsiteEvidence {
			return c.collectWebsite(sctx, req)
		})
		if !ok {
			return
		}
		mu.Lock()
		bundle.Website = ev
		mu.Unlock()
		if ev.URL != "" {
			addSource(SourceWebsite)
		}
	}()

	go func() {
		defer wg.Done()
		res, ok := collectOne(ctx, c.timeouts.Registry, "registry", func(sctx context.Context) registry.Result {
			return c.registry.Lookup(sctx, req.Name, req.Country)
		})
		if !ok {
			return
		}
		mu.Lock()
		bundle.Registry = res
		mu.Unlock()
		if res.Status != types.RegistryUnsupported && res.Error == "" {
			addSource(res.Source)
		}
	}()

	go func() {
		defer wg.Done()
		res, ok := collectOne(ctx, c.timeouts.Sanctions, "sanctions", func(sctx context.Context) sanctions.Result {
			return c.screener.Screen(sctx, req.Name)
		})
		if !ok {
			return
		}
		mu.Lock()
		bundle.Sanctions = res
		mu.Unlock()
		for _, list := range res.Lists {
			if list.Status != types.SanctionsError {
				addSource(list.List)
			}
		}
	}()

	wg.Wait()
	bundle.CollectedAt = time.Now().UTC()
	return bundle
}

// collectOne runs a single source under its timeout. The second return is
// false when the source timed out or panicked; the zero-value bundle entry
// then stands in as the failed source.
func collectOne[T any](ctx context.Context, budget time.Duration, source string, fn func(context.Context) T) (T, bool) {
	sctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type outcome struct {
		res T
		ok  bool
	}
	// Buffered so a late result never leaks the goroutine.
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("collector: source %s panicked: %v", source, r)
				ch <- outcome{}
			}
		}()
		ch <- outcome{res: fn(sctx), ok: true}
	}()

	var zero T
	select {
	case out := <-ch:
		return out.res, out.ok
	case <-sctx.Done():
		log.Printf("collector: source %s did not finish within %v: %v", source, budget, sctx.Err())
		return zero, false
	}
}

func (c *Collector) collectWebsite(ctx context.Context, req Request) WebsiteEvidence {
	url := req.WebsiteURL
	if url == "" {
		url = c.resolver.Resolve(ctx, req.Name, req.Country)
	}
	if url == "" {
		return WebsiteEvidence{}
	}

	page, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		// The URL already validated; keep it even though the fetch failed.
		log.Printf("collector: fetch %s: %v", url, err)
		return WebsiteEvidence{URL: url}
	}
	return WebsiteEvidence{URL: url, Page: page}
}
