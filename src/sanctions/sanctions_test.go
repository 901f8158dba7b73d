package sanctions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradesafe/tradeverify/src/matcher"
	"github.com/tradesafe/tradeverify/src/types"
)

const sdnSample = `<?xml version="1.0" encoding="utf-8"?>
<Sanctions xmlns="https://example.gov/exports/ADVANCED_XML">
  <DistinctParty FixedRef="100">
    <Profile ID="100"/>
    <DocumentedName><DocumentedNamePart><NamePartValue>John</NamePartValue></DocumentedNamePart><DocumentedNamePart><NamePartValue>Smith</NamePartValue></DocumentedNamePart></DocumentedName>
    <DocumentedName><DocumentedNamePart><NamePartValue>Jon Smyth</NamePartValue></DocumentedNamePart></DocumentedName>
    <DateOfBirthList><DateOfBirth><Year>1970</Year><Month>4</Month><Day>12</Day></DateOfBirth></DateOfBirthList>
    <PlaceOfBirthList><PlaceOfBirth><City>Minsk</City><Country>Belarus</Country></PlaceOfBirth></PlaceOfBirthList>
    <ProgramList><Program>SDGT</Program></ProgramList>
  </DistinctParty>
  <DistinctParty FixedRef="200">
    <Profile ID="200"/>
    <DocumentedName><DocumentedNamePart><NamePartValue>Gazprom Neft</NamePartValue></DocumentedNamePart></DocumentedName>
    <ProgramList><Program>UKRAINE-EO13662</Program></ProgramList>
  </DistinctParty>
</Sanctions>`

const consolidatedSample = `<?xml version="1.0" encoding="utf-8"?>
<export xmlns="http://example.eu/fpi/fsd/export">
  <sanctionEntity logicalId="13">
    <subjectType code="person"/>
    <nameAlias wholeName="Viktor Petrov"/>
    <nameAlias firstName="Viktor" lastName="Petroff"/>
    <regulation programme="BLR" numberTitle="765/2006"/>
    <birthDate birthdate="1958-08-23"/>
    <birthPlace city="Gomel" countryDescription="Belarus"/>
  </sanctionEntity>
  <sanctionEntity logicalId="14">
    <subjectType code="enterprise"/>
    <nameAlias wholeName="Lukoil OAO"/>
    <regulation programme="RUS"/>
  </sanctionEntity>
</export>`

func TestParseSDN(t *testing.T) {
	ix := matcher.NewIndex()
	n, err := ParseSDN(strings.NewReader(sdnSample), ix)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := ix.Match("john smith")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	e := hits[0].Entity
	assert.Equal(t, "100", e.ID)
	assert.Equal(t, "John Smith", e.Name)
	assert.Equal(t, []string{"Jon Smyth"}, e.Aliases)
	assert.Equal(t, []string{"SDGT"}, e.Programs)
	assert.Equal(t, []string{"1970-4-12"}, e.BirthDates)
	assert.Equal(t, []string{"Minsk, Belarus"}, e.BirthPlaces)
}

func TestParseConsolidated(t *testing.T) {
	ix := matcher.NewIndex()
	n, err := ParseConsolidated(strings.NewReader(consolidatedSample), ix)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Constructed name from first/last attributes is an alias.
	hits, err := ix.Match("Viktor Petroff")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "13", hits[0].Entity.ID)
	assert.Equal(t, []string{"BLR"}, hits[0].Entity.Programs)
	assert.Equal(t, []string{"1958-08-23"}, hits[0].Entity.BirthDates)
}

func TestScreenMatchAcrossLists(t *testing.T) {
	ixA := matcher.NewIndex()
	_, err := ParseSDN(strings.NewReader(sdnSample), ixA)
	require.NoError(t, err)
	ixB := matcher.NewIndex()
	_, err = ParseConsolidated(strings.NewReader(consolidatedSample), ixB)
	require.NoError(t, err)

	s := NewScreener(
		NewList(ListSDN, StaticLoader(ixA)),
		NewList(ListConsolidated, StaticLoader(ixB)),
	)

	res := s.Screen(context.Background(), "Lukoil OAO")
	assert.True(t, res.Matched)
	require.Len(t, res.Lists, 2)
	assert.Equal(t, types.SanctionsNotMatched, res.Lists[0].Status)
	assert.Equal(t, types.SanctionsMatched, res.Lists[1].Status)
	assert.Equal(t, []string{ListConsolidated}, res.MatchedLists())
}

func TestScreenListErrorIsolated(t *testing.T) {
	ixB := matcher.NewIndex()
	ixB.Add(&matcher.Entity{ID: "1", Name: "John Smith"})

	s := NewScreener(
		NewList(ListSDN, func() (*matcher.Index, error) {
			return nil, errors.New("parse failure")
		}),
		NewList(ListConsolidated, StaticLoader(ixB)),
	)

	res := s.Screen(context.Background(), "John Smith")
	assert.True(t, res.Matched)
	require.Len(t, res.Lists, 2)
	assert.Equal(t, types.SanctionsError, res.Lists[0].Status)
	assert.NotEmpty(t, res.Lists[0].Error)
	assert.Equal(t, types.SanctionsMatched, res.Lists[1].Status)
}

func TestScreenLoadsOnce(t *testing.T) {
	calls := 0
	ix := matcher.NewIndex()
	ix.Add(&matcher.Entity{ID: "1", Name: "Acme"})

	list := NewList(ListSDN, func() (*matcher.Index, error) {
		calls++
		return ix, nil
	})
	s := NewScreener(list)

	s.Screen(context.Background(), "acme")
	s.Screen(context.Background(), "acme")
	assert.Equal(t, 1, calls)
}

func TestScreenContextExpiry(t *testing.T) {
	// One list is stuck loading well past the deadline; Screen must return
	// at the deadline with an Error entry for it while the fast list's
	// result survives.
	ixFast := matcher.NewIndex()
	ixFast.Add(&matcher.Entity{ID: "1", Name: "John Smith"})

	s := NewScreener(
		NewList(ListSDN, func() (*matcher.Index, error) {
			time.Sleep(2 * time.Second)
			return matcher.NewIndex(), nil
		}),
		NewList(ListConsolidated, StaticLoader(ixFast)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := s.Screen(ctx, "John Smith")

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, res.Lists, 2)
	assert.Equal(t, types.SanctionsError, res.Lists[0].Status)
	assert.NotEmpty(t, res.Lists[0].Error)
	assert.Equal(t, types.SanctionsMatched, res.Lists[1].Status)
	assert.True(t, res.Matched)
}

func TestScreenDetailCap(t *testing.T) {
	ix := matcher.NewIndex()
	for i := 0; i < 8; i++ {
		ix.Add(&matcher.Entity{ID: string(rune('a' + i)), Name: "Acme Holdings " + string(rune('a'+i))})
	}
	s := NewScreener(NewList(ListSDN, StaticLoader(ix)))

	res := s.Screen(context.Background(), "acme holdings")
	require.Equal(t, types.SanctionsMatched, res.Lists[0].Status)
	assert.Equal(t, 8, res.Lists[0].MatchCount)
	assert.Len(t, res.Lists[0].Details, 5)
}
