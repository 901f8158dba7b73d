// Package matcher provides normalized containment matching of candidate
// names against large reference lists of named entities.
package matcher

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidInput rejects candidates too short to match meaningfully; a
// one-letter candidate would hit nearly every indexed name.
var ErrInvalidInput = errors.New("matcher: candidate name empty or too short")

// Entity is one reference list record: a primary name plus aliases and
// whatever descriptive fields the list carries.
type Entity struct {
	ID          string
	Name        string
	Aliases     []string
	Programs    []string
	BirthDates  []string
	BirthPlaces []string
}

// Hit pairs a matched entity with the indexed name that produced the match.
type Hit struct {
	Entity *Entity
	Name   string
}

// Index holds reference entities keyed by normalized name. Built once
// during list load, read-only afterwards; concurrent reads need no locking.
type Index struct {
	names map[string][]*Entity
	count int
}

func NewIndex() *Index {
	return &Index{names: make(map[string][]*Entity)}
}

// Add indexes the entity under its primary name and every alias.
func (ix *Index) Add(e *Entity) {
	if e == nil {
		return
	}
	for _, name := range append([]string{e.Name}, e.Aliases...) {
		key := Normalize(name)
		if key == "" {
			continue
		}
		ix.names[key] = append(ix.names[key], e)
	}
	ix.count++
}

// Len returns the number of entities added.
func (ix *Index) Len() int { return ix.count }

// Match returns every entity whose indexed name contains the normalized
// candidate as a substring, or vice versa. All containment matches are
// equally valid; no ranking is performed. Results are deduplicated by
// entity ID, keeping the first name that hit.
func (ix *Index) Match(candidate string) ([]Hit, error) {
	needle := Normalize(candidate)
	if len(needle) < 2 {
		return nil, ErrInvalidInput
	}

	var hits []Hit
	seen := make(map[string]bool)
	for name, entities := range ix.names {
		if !strings.Contains(name, needle) && !strings.Contains(needle, name) {
			continue
		}
		for _, e := range entities {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			hits = append(hits, Hit{Entity: e, Name: name})
		}
	}
	return hits, nil
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases, folds diacritics and collapses whitespace so that
// "  Shéll PLC " and "shell plc" compare equal.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
