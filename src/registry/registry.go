// Package registry looks entities up in an authoritative company registry.
// Only the US registry (SEC EDGAR ticker file) is wired; other
// jurisdictions degrade to Unsupported rather than failing.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/tradesafe/tradeverify/src/matcher"
	"github.com/tradesafe/tradeverify/src/types"
)

// SourceEDGAR names the backing registry on results.
const SourceEDGAR = "SEC EDGAR"

const maxMatches = 5

// Company is one registry record.
type Company struct {
	CIK    string `json:"cik"`
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// Result is the outcome of a registry lookup.
type Result struct {
	Status    string    `json:"status"`
	Source    string    `json:"source,omitempty"`
	Companies []Company `json:"companies,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Registry serves name/ticker lookups over a lazily loaded ticker file.
type Registry struct {
	path string

	once     sync.Once
	byTicker map[string]Company
	index    *matcher.Index
	byID     map[string]Company
	err      error
}

func New(path string) *Registry {
	return &Registry{path: path}
}

// Supports reports whether a registry lookup is available for the country.
func (r *Registry) Supports(country string) bool {
	return strings.EqualFold(country, "US")
}

// Lookup matches the candidate against the registry for the given country.
// Unsupported jurisdictions return Unsupported; a failed file load or an
// expired context returns an errored result, never a panic or a request
// failure.
func (r *Registry) Lookup(ctx context.Context, name, country string) Result {
	if !r.Supports(country) {
		return Result{Status: types.RegistryUnsupported}
	}
	if err := ctx.Err(); err != nil {
		return Result{Status: types.RegistryNotFound, Source: SourceEDGAR, Error: err.Error()}
	}
	if err := r.load(); err != nil {
		return Result{Status: types.RegistryNotFound, Source: SourceEDGAR, Error: err.Error()}
	}
	if err := ctx.Err(); err != nil {
		return Result{Status: types.RegistryNotFound, Source: SourceEDGAR, Error: err.Error()}
	}

	var companies []Company
	seen := make(map[string]bool)

	// Ticker symbols match exactly; short candidates like "BP" are valid
	// tickers even though the name matcher would reject them.
	if c, ok := r.byTicker[strings.ToUpper(strings.TrimSpace(name))]; ok {
		companies = append(companies, c)
		seen[c.CIK] = true
	}

	if hits, err := r.index.Match(name); err == nil {
		for _, hit := range hits {
			c := r.byID[hit.Entity.ID]
			if seen[c.CIK] {
				continue
			}
			seen[c.CIK] = true
			companies = append(companies, c)
			if len(companies) == maxMatches {
				break
			}
		}
	}

	if len(companies) == 0 {
		return Result{Status: types.RegistryNotFound, Source: SourceEDGAR}
	}
	return Result{Status: types.RegistryFound, Source: SourceEDGAR, Companies: companies}
}

func (r *Registry) load() error {
	r.once.Do(func() {
		f, err := os.Open(r.path)
		if err != nil {
			r.err = fmt.Errorf("registry: open %s: %w", r.path, err)
			return
		}
		defer f.Close()
		r.err = r.parse(f)
		if r.err == nil {
			log.Printf("registry: loaded %d companies from %s", len(r.byID), r.path)
		} else {
			log.Printf("registry: load %s: %v", r.path, r.err)
		}
	})
	return r.err
}

// parse reads the ticker file format: {"0": {"cik_str": 320193, "ticker":
// "AAPL", "title": "Apple Inc."}, ...}.
func (r *Registry) parse(reader io.Reader) error {
	var raw map[string]struct {
		CIK    json.Number `json:"cik_str"`
		Ticker string      `json:"ticker"`
		Title  string      `json:"title"`
	}
	dec := json.NewDecoder(reader)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("registry: parse ticker file: %w", err)
	}

	r.byTicker = make(map[string]Company)
	r.byID = make(map[string]Company)
	r.index = matcher.NewIndex()

	for _, rec := range raw {
		cik := rec.CIK.String()
		title := strings.TrimSpace(rec.Title)
		ticker := strings.ToUpper(strings.TrimSpace(rec.Ticker))
		if cik == "" || (title == "" && ticker == "") {
			continue
		}
		c := Company{CIK: cik, Ticker: ticker, Name: title}
		r.byID[cik] = c
		if ticker != "" {
			r.byTicker[ticker] = c
		}
		if title != "" {
			r.index.Add(&matcher.Entity{ID: cik, Name: title})
		}
	}
	return nil
}
