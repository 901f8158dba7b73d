// Package sanctions loads sanctions reference lists and screens entity
// names against them.
package sanctions

import (
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/tradesafe/tradeverify/src/matcher"
)

// Well-known list names.
const (
	ListSDN          = "OFAC SDN List"
	ListConsolidated = "EU Consolidated Sanctions List"
)

// List is one sanctions reference list. The underlying file is loaded
// lazily, once per process lifetime; a load failure is remembered and every
// subsequent screen against this list reports Error without aborting the
// other lists.
type List struct {
	name   string
	loader func() (*matcher.Index, error)

	once  sync.Once
	index *matcher.Index
	err   error
}

// NewList wraps a loader; name is the provenance recorded on results.
func NewList(name string, loader func() (*matcher.Index, error)) *List {
	return &List{name: name, loader: loader}
}

// Name returns the list's provenance name.
func (l *List) Name() string { return l.name }

func (l *List) load() (*matcher.Index, error) {
	l.once.Do(func() {
		l.index, l.err = l.loader()
		if l.err != nil {
			log.Printf("sanctions: load %s: %v", l.name, l.err)
		} else {
			log.Printf("sanctions: loaded %s (%d entities)", l.name, l.index.Len())
		}
	})
	return l.index, l.err
}

// SDNLoader streams an SDN-style XML file (hierarchical DistinctParty
// records) into a matcher index. Only one party's tree is materialized at a
// time.
func SDNLoader(path string) func() (*matcher.Index, error) {
	return func() (*matcher.Index, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("sanctions: open %s: %w", path, err)
		}
		defer f.Close()
		ix := matcher.NewIndex()
		if _, err := ParseSDN(f, ix); err != nil {
			return nil, err
		}
		return ix, nil
	}
}

// ConsolidatedLoader streams an EU-consolidated-style XML file
// (sanctionEntity records) into a matcher index.
func ConsolidatedLoader(path string) func() (*matcher.Index, error) {
	return func() (*matcher.Index, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("sanctions: open %s: %w", path, err)
		}
		defer f.Close()
		ix := matcher.NewIndex()
		if _, err := ParseConsolidated(f, ix); err != nil {
			return nil, err
		}
		return ix, nil
	}
}

type sdnParty struct {
	Profile struct {
		ID string `xml:"ID,attr"`
	} `xml:"Profile"`
	Names []struct {
		Parts []string `xml:"DocumentedNamePart>NamePartValue"`
	} `xml:"DocumentedName"`
	DatesOfBirth []struct {
		Year  string `xml:"Year"`
		Month string `xml:"Month"`
		Day   string `xml:"Day"`
	} `xml:"DateOfBirthList>DateOfBirth"`
	PlacesOfBirth []struct {
		City            string `xml:"City"`
		StateOrProvince string `xml:"StateOrProvince"`
		Country         string `xml:"Country"`
	} `xml:"PlaceOfBirthList>PlaceOfBirth"`
	Programs []string `xml:"ProgramList>Program"`
}

func (p sdnParty) entity() *matcher.Entity {
	var names []string
	for _, dn := range p.Names {
		var parts []string
		for _, part := range dn.Parts {
			if s := strings.TrimSpace(part); s != "" {
				parts = append(parts, s)
			}
		}
		if full := strings.Join(parts, " "); full != "" && !contains(names, full) {
			names = append(names, full)
		}
	}
	if len(names) == 0 {
		return nil
	}

	e := &matcher.Entity{
		ID:       p.Profile.ID,
		Name:     names[0],
		Aliases:  names[1:],
		Programs: p.Programs,
	}
	for _, dob := range p.DatesOfBirth {
		if dob.Year != "" {
			e.BirthDates = append(e.BirthDates, fmt.Sprintf("%s-%s-%s", dob.Year, dob.Month, dob.Day))
		}
	}
	for _, pob := range p.PlacesOfBirth {
		var parts []string
		for _, s := range []string{pob.City, pob.StateOrProvince, pob.Country} {
			if s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			e.BirthPlaces = append(e.BirthPlaces, strings.Join(parts, ", "))
		}
	}
	return e
}

// ParseSDN stream-parses SDN-style XML from r into ix, returning the number
// of entities indexed.
func ParseSDN(r io.Reader, ix *matcher.Index) (int, error) {
	dec := xml.NewDecoder(r)
	n := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("sanctions: parse SDN list: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "DistinctParty" {
			continue
		}
		var party sdnParty
		if err := dec.DecodeElement(&party, &se); err != nil {
			return n, fmt.Errorf("sanctions: parse SDN entry: %w", err)
		}
		if e := party.entity(); e != nil {
			ix.Add(e)
			n++
		}
	}
	return n, nil
}

type consolidatedEntity struct {
	LogicalID   string `xml:"logicalId,attr"`
	SubjectType struct {
		Code string `xml:"code,attr"`
	} `xml:"subjectType"`
	NameAliases []struct {
		WholeName  string `xml:"wholeName,attr"`
		FirstName  string `xml:"firstName,attr"`
		MiddleName string `xml:"middleName,attr"`
		LastName   string `xml:"lastName,attr"`
	} `xml:"nameAlias"`
	Regulations []struct {
		Programme   string `xml:"programme,attr"`
		NumberTitle string `xml:"numberTitle,attr"`
	} `xml:"regulation"`
	BirthDates []struct {
		Date string `xml:"birthdate,attr"`
	} `xml:"birthDate"`
	BirthPlaces []struct {
		City    string `xml:"city,attr"`
		Country string `xml:"countryDescription,attr"`
	} `xml:"birthPlace"`
}

func (c consolidatedEntity) entity() *matcher.Entity {
	var names []string
	for _, alias := range c.NameAliases {
		name := strings.TrimSpace(alias.WholeName)
		if name == "" {
			var parts []string
			for _, s := range []string{alias.FirstName, alias.MiddleName, alias.LastName} {
				if s = strings.TrimSpace(s); s != "" {
					parts = append(parts, s)
				}
			}
			name = strings.Join(parts, " ")
		}
		if name != "" && !contains(names, name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}

	e := &matcher.Entity{
		ID:      c.LogicalID,
		Name:    names[0],
		Aliases: names[1:],
	}
	for _, reg := range c.Regulations {
		code := reg.Programme
		if code == "" {
			code = reg.NumberTitle
		}
		if code != "" {
			e.Programs = append(e.Programs, code)
		}
	}
	for _, bd := range c.BirthDates {
		if bd.Date != "" {
			e.BirthDates = append(e.BirthDates, bd.Date)
		}
	}
	for _, bp := range c.BirthPlaces {
		var parts []string
		for _, s := range []string{bp.City, bp.Country} {
			if s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			e.BirthPlaces = append(e.BirthPlaces, strings.Join(parts, ", "))
		}
	}
	return e
}

// ParseConsolidated stream-parses EU-consolidated-style XML from r into ix.
func ParseConsolidated(r io.Reader, ix *matcher.Index) (int, error) {
	dec := xml.NewDecoder(r)
	n := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("sanctions: parse consolidated list: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sanctionEntity" {
			continue
		}
		var ent consolidatedEntity
		if err := dec.DecodeElement(&ent, &se); err != nil {
			return n, fmt.Errorf("sanctions: parse consolidated entry: %w", err)
		}
		if e := ent.entity(); e != nil {
			ix.Add(e)
			n++
		}
	}
	return n, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
