package sanctions

import (
	"context"

	"github.com/tradesafe/tradeverify/src/matcher"
	"github.com/tradesafe/tradeverify/src/types"
)

// Cap on reported match details per list; the full hit count is still
// recorded.
const maxDetails = 5

// MatchDetail is one reported hit with list provenance.
type MatchDetail struct {
	List          string   `json:"list"`
	EntityID      string   `json:"entityId"`
	Name          string   `json:"name"`
	AliasUsed     string   `json:"aliasUsed"`
	Programs      []string `json:"programs,omitempty"`
	DatesOfBirth  []string `json:"datesOfBirth,omitempty"`
	PlacesOfBirth []string `json:"placesOfBirth,omitempty"`
}

// ListResult is the outcome of screening one list.
type ListResult struct {
	List       string        `json:"list"`
	Status     string        `json:"status"`
	MatchCount int           `json:"matchCount"`
	Details    []MatchDetail `json:"details,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Result aggregates all configured lists. Matched is true iff any list
// reported Matched; Lists preserves configuration order.
type Result struct {
	Matched bool         `json:"matched"`
	Lists   []ListResult `json:"lists"`
}

// MatchedLists returns the names of lists that reported a match.
func (r Result) MatchedLists() []string {
	var names []string
	for _, lr := range r.Lists {
		if lr.Status == types.SanctionsMatched {
			names = append(names, lr.List)
		}
	}
	return names
}

// Screener screens names against a fixed set of configured lists.
// Unconfigured jurisdictions are simply absent, not errors.
type Screener struct {
	lists []*List
}

func NewScreener(lists ...*List) *Screener {
	return &Screener{lists: lists}
}

// Lists returns the configured list names in order.
func (s *Screener) Lists() []string {
	names := make([]string, len(s.lists))
	for i, l := range s.lists {
		names[i] = l.name
	}
	return names
}

// Screen checks the name against every configured list. Lists are screened
// concurrently; one list failing to load or parse never suppresses the
// others' results. When ctx expires, lists that have not finished report
// Error; their in-flight screens complete in the background and the late
// results are discarded.
func (s *Screener) Screen(ctx context.Context, name string) Result {
	type indexed struct {
		i   int
		res ListResult
	}
	// Buffered so late screens never block after the deadline path.
	ch := make(chan indexed, len(s.lists))
	for idx, list := range s.lists {
		go func(i int, l *List) {
			ch <- indexed{i: i, res: l.screen(name)}
		}(idx, list)
	}

	results := make([]ListResult, len(s.lists))
	for i, l := range s.lists {
		results[i] = ListResult{List: l.name, Status: types.SanctionsError, Error: "screen not completed"}
	}

	remaining := len(s.lists)
	for remaining > 0 {
		select {
		case r := <-ch:
			results[r.i] = r.res
			remaining--
		case <-ctx.Done():
			for i := range results {
				if results[i].Status == types.SanctionsError && results[i].Error == "screen not completed" {
					results[i].Error = ctx.Err().Error()
				}
			}
			remaining = 0
		}
	}

	out := Result{Lists: results}
	for _, lr := range results {
		if lr.Status == types.SanctionsMatched {
			out.Matched = true
		}
	}
	return out
}

func (l *List) screen(name string) ListResult {
	ix, err := l.load()
	if err != nil {
		return ListResult{List: l.name, Status: types.SanctionsError, Error: err.Error()}
	}

	hits, err := ix.Match(name)
	if err != nil {
		return ListResult{List: l.name, Status: types.SanctionsError, Error: err.Error()}
	}
	if len(hits) == 0 {
		return ListResult{List: l.name, Status: types.SanctionsNotMatched}
	}

	res := ListResult{List: l.name, Status: types.SanctionsMatched, MatchCount: len(hits)}
	for i, hit := range hits {
		if i == maxDetails {
			break
		}
		res.Details = append(res.Details, MatchDetail{
			List:          l.name,
			EntityID:      hit.Entity.ID,
			Name:          hit.Entity.Name,
			AliasUsed:     hit.Name,
			Programs:      hit.Entity.Programs,
			DatesOfBirth:  hit.Entity.BirthDates,
			PlacesOfBirth: hit.Entity.BirthPlaces,
		})
	}
	return res
}

// StaticLoader returns a loader over an already-built index; used by tests
// and smoke tooling.
func StaticLoader(ix *matcher.Index) func() (*matcher.Index, error) {
	return func() (*matcher.Index, error) { return ix, nil }
}
