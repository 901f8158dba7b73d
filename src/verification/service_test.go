package verification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradesafe/tradeverify/src/collector"
	"github.com/tradesafe/tradeverify/src/matcher"
	"github.com/tradesafe/tradeverify/src/registry"
	"github.com/tradesafe/tradeverify/src/sanctions"
	"github.com/tradesafe/tradeverify/src/types"
	"github.com/tradesafe/tradeverify/src/website"
)

type memStore struct {
	writes   []types.Verification
	attempts int
	failNext int
}

func (m *memStore) Upsert(ctx context.Context, rec *types.Verification) error {
	m.attempts++
	if m.failNext > 0 {
		m.failNext--
		return errors.New("deadlock found when trying to get lock")
	}
	m.writes = append(m.writes, *rec)
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*types.Verification, error) {
	for i := len(m.writes) - 1; i >= 0; i-- {
		if m.writes[i].ID == id {
			rec := m.writes[i]
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

type stubCollector struct {
	bundle *collector.Bundle
	calls  int
}

func (s *stubCollector) Collect(ctx context.Context, req collector.Request) *collector.Bundle {
	s.calls++
	return s.bundle
}

type stubOracle struct {
	text   *string
	panics bool
}

func (s *stubOracle) Narrative(ctx context.Context, req Request, bundle *collector.Bundle) *string {
	if s.panics {
		panic("oracle stub")
	}
	return s.text
}

func testBundle() *collector.Bundle {
	url := "https://shell.co.uk"
	date := "2024-01-10"
	return &collector.Bundle{
		Website: collector.WebsiteEvidence{
			URL: url,
			Page: &website.Page{
				URL:         url,
				Text:        "An active and operational energy company with global reach and a long history of trading operations worldwide.",
				PublishedAt: &date,
			},
		},
		Registry: registry.Result{Status: types.RegistryUnsupported},
		Sanctions: sanctions.Result{Lists: []sanctions.ListResult{
			{List: sanctions.ListSDN, Status: types.SanctionsNotMatched},
			{List: sanctions.ListConsolidated, Status: types.SanctionsNotMatched},
		}},
		SourcesUsed: []string{collector.SourceWebsite, sanctions.ListSDN, sanctions.ListConsolidated},
		CollectedAt: time.Now().UTC(),
	}
}

func validRequest() Request {
	return Request{Client: "Shell plc", Country: "gb", Role: types.RoleExport}
}

func TestRunHappyPath(t *testing.T) {
	store := &memStore{}
	narrative := "The entity appears to be an active energy trading company."
	svc := NewService(store, &stubCollector{bundle: testBundle()}, &stubOracle{text: &narrative})

	rec, err := svc.Run(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateCompleted, rec.State)
	assert.Equal(t, "GB", rec.ClientCountry)
	require.NotNil(t, rec.Narrative)
	assert.Equal(t, narrative, *rec.Narrative)
	require.NotNil(t, rec.RiskScore)
	require.NotNil(t, rec.ActivityLevel)
	assert.Equal(t, types.ActivityActive, *rec.ActivityLevel)
	require.NotNil(t, rec.WebsiteURL)
	require.NotNil(t, rec.PubDate)
	assert.Equal(t, "2024-01-10", *rec.PubDate)
	require.NotNil(t, rec.DataCollectedAt)
	require.NotNil(t, rec.LastVerifiedAt)
	assert.JSONEq(t, `["website","OFAC SDN List","EU Consolidated Sanctions List"]`, rec.Sources)

	// Partial write before analysis, final write after.
	require.Len(t, store.writes, 2)
	partial := store.writes[0]
	assert.Equal(t, types.StateCollected, partial.State)
	assert.Nil(t, partial.RiskScore)
	assert.Nil(t, partial.Narrative)
	assert.NotEmpty(t, partial.Evidence)
	assert.Equal(t, rec.ID, partial.ID)
}

func TestRunRejectsInvalidInput(t *testing.T) {
	store := &memStore{}
	coll := &stubCollector{bundle: testBundle()}
	svc := NewService(store, coll, &stubOracle{})

	cases := []Request{
		{Client: "", Country: "GB", Role: types.RoleExport},
		{Client: "a", Country: "GB", Role: types.RoleExport},
		{Client: "Shell plc", Country: "GBR", Role: types.RoleExport},
		{Client: "Shell plc", Country: "GB", Role: "Broker"},
	}
	for _, req := range cases {
		_, err := svc.Run(context.Background(), req)
		assert.ErrorIs(t, err, matcher.ErrInvalidInput, "%+v", req)
	}
	assert.Equal(t, 0, coll.calls, "invalid input never reaches collection")
	assert.Empty(t, store.writes)
}

func TestRunOracleFailureStillCompletes(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, &stubCollector{bundle: testBundle()}, &stubOracle{text: nil})

	rec, err := svc.Run(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateCompleted, rec.State)
	assert.Nil(t, rec.Narrative)
	require.NotNil(t, rec.RiskScore)
	require.NotNil(t, rec.Confidence)
	require.NotNil(t, rec.ActivityLevel)
	assert.Equal(t, types.ActivityActive, *rec.ActivityLevel)
}

func TestRunNilOracle(t *testing.T) {
	svc := NewService(&memStore{}, &stubCollector{bundle: testBundle()}, nil)

	rec, err := svc.Run(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, types.StateCompleted, rec.State)
	assert.Nil(t, rec.Narrative)
}

func TestRunAnalysisFailure(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, &stubCollector{bundle: testBundle()}, &stubOracle{panics: true})

	rec, err := svc.Run(context.Background(), validRequest())
	require.NoError(t, err, "analysis failure is a degraded result, not a request failure")

	assert.Equal(t, types.StateAnalysisFailed, rec.State)
	assert.Nil(t, rec.RiskScore)
	assert.Nil(t, rec.Narrative)
	assert.Nil(t, rec.Confidence)
	assert.Equal(t, "[]", rec.Flags)
	assert.False(t, rec.IsRedFlag)

	// Evidence from collection remains valid.
	assert.NotNil(t, rec.DataCollectedAt)
	assert.NotEmpty(t, rec.Evidence)
	require.Len(t, store.writes, 2)
	assert.Equal(t, types.StateAnalysisFailed, store.writes[1].State)
}

func TestRunSanctionedEntityRedFlag(t *testing.T) {
	bundle := testBundle()
	bundle.Sanctions = sanctions.Result{
		Matched: true,
		Lists: []sanctions.ListResult{
			{List: sanctions.ListSDN, Status: types.SanctionsMatched, MatchCount: 1,
				Details: []sanctions.MatchDetail{{List: sanctions.ListSDN, Name: "Entity On List A"}}},
			{List: sanctions.ListConsolidated, Status: types.SanctionsNotMatched},
		},
	}
	svc := NewService(&memStore{}, &stubCollector{bundle: bundle}, nil)

	rec, err := svc.Run(context.Background(), Request{Client: "Entity On List A", Country: "RU", Role: types.RoleImport})
	require.NoError(t, err)

	assert.True(t, rec.IsRedFlag)
	require.NotNil(t, rec.RiskScore)
	assert.GreaterOrEqual(t, *rec.RiskScore, 0.8)
	require.NotNil(t, rec.Confidence)
	assert.Equal(t, types.ConfidenceHigh, *rec.Confidence)
	assert.Contains(t, rec.Flags, types.FlagSanctionsMatch)
}

func TestRunRetriesFailedPartialPersist(t *testing.T) {
	// The partial record gates the move into analysis; a transient store
	// failure gets one more attempt before the lifecycle proceeds.
	store := &memStore{failNext: 1}
	svc := NewService(store, &stubCollector{bundle: testBundle()}, nil)

	rec, err := svc.Run(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateCompleted, rec.State)
	assert.Equal(t, 3, store.attempts, "failed partial write is retried once")
	require.Len(t, store.writes, 2)
	assert.Equal(t, types.StateCollected, store.writes[0].State)
	assert.Equal(t, types.StateCompleted, store.writes[1].State)
}

func TestEvidenceSummaryBounded(t *testing.T) {
	bundle := testBundle()
	long := make([]byte, 3*maxOracleInput)
	for i := range long {
		long[i] = 'x'
	}
	bundle.Website.Page.Text = string(long)

	summary := evidenceSummary(validRequest(), bundle)
	assert.LessOrEqual(t, len(summary), maxOracleInput)
	assert.Contains(t, summary, "Shell plc")
}

func TestEvidenceSummaryKeepsRuneBoundary(t *testing.T) {
	bundle := testBundle()
	// Three-byte runes guarantee the byte cap lands mid-rune.
	bundle.Website.Page.Text = strings.Repeat("日", 2*maxOracleInput)

	summary := evidenceSummary(validRequest(), bundle)
	assert.LessOrEqual(t, len(summary), maxOracleInput)
	assert.True(t, utf8.ValidString(summary))
}

func TestStoreGetNotFound(t *testing.T) {
	store := &memStore{}
	_, err := store.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}
