package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradesafe/tradeverify/src/types"
)

const tickersSample = `{
  "0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
  "1": {"cik_str": 1067983, "ticker": "BRK-B", "title": "Berkshire Hathaway Inc"},
  "2": {"cik_str": 313807, "ticker": "BP", "title": "BP p.l.c."}
}`

func writeTickers(t *testing.T, content string) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "company_tickers.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return New(path)
}

func TestLookupByName(t *testing.T) {
	r := writeTickers(t, tickersSample)

	res := r.Lookup(context.Background(), "Apple", "US")
	require.Equal(t, types.RegistryFound, res.Status)
	assert.Equal(t, SourceEDGAR, res.Source)
	require.Len(t, res.Companies, 1)
	assert.Equal(t, "AAPL", res.Companies[0].Ticker)
	assert.Equal(t, "320193", res.Companies[0].CIK)
}

func TestLookupByTicker(t *testing.T) {
	r := writeTickers(t, tickersSample)

	res := r.Lookup(context.Background(), "BP", "US")
	require.Equal(t, types.RegistryFound, res.Status)
	// Ticker hit and name hit dedupe to one company.
	require.Len(t, res.Companies, 1)
	assert.Equal(t, "BP p.l.c.", res.Companies[0].Name)
}

func TestLookupNotFound(t *testing.T) {
	r := writeTickers(t, tickersSample)

	res := r.Lookup(context.Background(), "Nonexistent Widgets GmbH", "US")
	assert.Equal(t, types.RegistryNotFound, res.Status)
	assert.Empty(t, res.Companies)
}

func TestLookupUnsupportedJurisdiction(t *testing.T) {
	r := writeTickers(t, tickersSample)

	for _, country := range []string{"GB", "RU", "DE"} {
		res := r.Lookup(context.Background(), "Apple", country)
		assert.Equal(t, types.RegistryUnsupported, res.Status, country)
	}
}

func TestLookupLoadFailure(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "missing.json"))

	res := r.Lookup(context.Background(), "Apple", "US")
	assert.Equal(t, types.RegistryNotFound, res.Status)
	assert.NotEmpty(t, res.Error)
}

func TestLookupExpiredContext(t *testing.T) {
	r := writeTickers(t, tickersSample)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.Lookup(ctx, "Apple", "US")
	assert.Equal(t, types.RegistryNotFound, res.Status)
	assert.Equal(t, SourceEDGAR, res.Source)
	assert.NotEmpty(t, res.Error)
}

func TestParseBadJSON(t *testing.T) {
	r := writeTickers(t, "{not json")

	res := r.Lookup(context.Background(), "Apple", "US")
	assert.Equal(t, types.RegistryNotFound, res.Status)
	assert.NotEmpty(t, res.Error)
}
